// Package trees folds a flat list of project paths into the folder hierarchy
// of a solution.
package trees

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/ZanzyTHEbar/csprojtool/cspt/filesystem/common"
	"github.com/ZanzyTHEbar/csprojtool/cspt/locator"
	"github.com/ZanzyTHEbar/csprojtool/cspt/paths"
	"github.com/ZanzyTHEbar/csprojtool/cspt/project"

	"github.com/google/uuid"
)

// Node is either a *Directory or a *ProjectLeaf.
type Node interface {
	isNode()
}

// ProjectLeaf is a project placed in the tree. Name is the project name
// shown in the solution, the descriptor file name without extension.
type ProjectLeaf struct {
	Name string
	Path string
	GUID uuid.UUID
}

// Directory maps child names to nodes and remembers the order in which the
// names were first added.
type Directory struct {
	names []string
	nodes map[string]Node
}

func (*Directory) isNode()   {}
func (*ProjectLeaf) isNode() {}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{nodes: make(map[string]Node)}
}

// Names lists the children in insertion order.
func (d *Directory) Names() []string {
	return append([]string(nil), d.names...)
}

// Get returns the child called name.
func (d *Directory) Get(name string) (Node, bool) {
	n, ok := d.nodes[name]
	return n, ok
}

// Len is the number of direct children.
func (d *Directory) Len() int {
	return len(d.names)
}

// subdirectory returns the child directory called name, creating it when it
// does not exist yet.
func (d *Directory) subdirectory(name string) (*Directory, error) {
	switch n := d.nodes[name].(type) {
	case nil:
		child := NewDirectory()
		d.names = append(d.names, name)
		d.nodes[name] = child
		return child, nil
	case *Directory:
		return n, nil
	default:
		return nil, common.PathError(common.ErrNameCollision, name)
	}
}

func (d *Directory) addLeaf(name string, leaf *ProjectLeaf) error {
	if _, taken := d.nodes[name]; taken {
		return common.PathError(common.ErrNameCollision, name)
	}
	d.names = append(d.names, name)
	d.nodes[name] = leaf
	return nil
}

// Visitor is called for every node below the root, parent before children.
// dir is the slash-separated path of the node's parent relative to the root
// ("" for top-level nodes).
type Visitor func(dir, name string, node Node) error

// Walk visits the tree in pre-order, children in insertion order.
func (d *Directory) Walk(visit Visitor) error {
	return d.walk("", visit)
}

func (d *Directory) walk(prefix string, visit Visitor) error {
	for _, name := range d.names {
		node := d.nodes[name]
		if err := visit(prefix, name, node); err != nil {
			return err
		}
		if sub, ok := node.(*Directory); ok {
			if err := sub.walk(joinSlash(prefix, name), visit); err != nil {
				return err
			}
		}
	}
	return nil
}

func joinSlash(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// Build places every project under the directory of slnPath. Projects keep
// the order they are given in. A project outside that directory, or a name
// used both as a folder and as a project, is an error. Project paths are
// expected to be canonical; the solution directory is resolved the same way
// even when it does not exist yet.
func Build(slnPath string, projects []project.Project) (*Directory, error) {
	slnDir, err := locator.CanonicalPrefix(filepath.Dir(paths.Simplify(slnPath)))
	if err != nil {
		return nil, err
	}
	slog.Debug("Building solution tree", "solution_dir", slnDir, "projects", len(projects))

	root := NewDirectory()
	for _, p := range projects {
		if err := root.insert(slnDir, p); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func (d *Directory) insert(slnDir string, p project.Project) error {
	rel, err := paths.Relative(slnDir, p.Path)
	if err != nil {
		return err
	}
	slog.Debug("Adding project", "path", p.Path, "relative", rel)

	components := paths.Components(rel)
	if len(components) == 0 {
		return common.PathError(common.ErrUnsupportedComponent, p.Path)
	}

	dir := d
	for i, comp := range components {
		switch comp {
		case "..":
			return fmt.Errorf("%w: %s", common.ErrOutsideSolution, p.Path)
		case ".", "":
			return fmt.Errorf("%w: %q in %s", common.ErrUnsupportedComponent, comp, p.Path)
		}

		if i < len(components)-1 {
			if dir, err = dir.subdirectory(comp); err != nil {
				return fmt.Errorf("%w (while adding %s)", err, p.Path)
			}
			continue
		}
		if err := dir.addLeaf(comp, &ProjectLeaf{Name: p.Name(), Path: p.Path, GUID: p.GUID}); err != nil {
			return fmt.Errorf("%w (while adding %s)", err, p.Path)
		}
	}
	return nil
}
