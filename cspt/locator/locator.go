// Package locator discovers project descriptors on disk and, on request,
// extends the set along reference edges in either direction.
package locator

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/ZanzyTHEbar/csprojtool/cspt/filesystem/common"
	"github.com/ZanzyTHEbar/csprojtool/cspt/filesystem/interfaces"
	"github.com/ZanzyTHEbar/csprojtool/cspt/project"

	"github.com/RoaringBitmap/roaring"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// Locator implements interfaces.ProjectLocator on the local filesystem.
type Locator struct {
	walker
	vcs    interfaces.VersionControl
	errors *common.ErrorUtils
}

// Option customizes a Locator.
type Option func(*Locator)

// WithWorkers bounds the number of directories read concurrently. Zero or
// less picks a value from the CPU count.
func WithWorkers(n int) Option {
	return func(l *Locator) {
		if n > 0 {
			l.maxWorkers = n
		}
	}
}

// WithGitignore toggles honouring .gitignore files during the walk.
func WithGitignore(respect bool) Option {
	return func(l *Locator) {
		l.respectGitignore = respect
	}
}

// WithVersionControl sets the collaborator used to find the workspace root
// when incoming references are followed.
func WithVersionControl(vcs interfaces.VersionControl) Option {
	return func(l *Locator) {
		l.vcs = vcs
	}
}

// New creates a Locator for descriptors of the given schema.
func New(schema project.Schema, opts ...Option) *Locator {
	l := &Locator{
		walker: walker{
			schema:           schema,
			maxWorkers:       defaultWorkers(),
			respectGitignore: true,
		},
		errors: common.NewErrorUtils(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Canonical makes path absolute and resolves symlinks.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path of %s: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", abs, err)
	}
	return resolved, nil
}

// CanonicalPrefix is Canonical for paths that may not exist yet: the deepest
// existing ancestor has its symlinks resolved and the missing tail is joined
// back on lexically.
func CanonicalPrefix(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path of %s: %w", path, err)
	}

	existing, tail := abs, ""
	for {
		_, err := os.Lstat(existing)
		if err == nil {
			break
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to access %s: %w", existing, err)
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		tail = filepath.Join(filepath.Base(existing), tail)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", existing, err)
	}
	if tail == "" {
		return resolved, nil
	}
	return filepath.Join(resolved, tail), nil
}

// Discover implements interfaces.ProjectLocator.
func (l *Locator) Discover(root string, followIncoming, followOutgoing bool) ([]project.Project, error) {
	canonical, err := Canonical(root)
	if err != nil {
		return nil, err
	}

	seeds, err := l.walk(canonical)
	if err != nil {
		return nil, err
	}

	if !followIncoming && !followOutgoing {
		return l.loadAll(seeds)
	}

	universe := seeds
	if followIncoming {
		workspace := l.workspaceRoot(canonical)
		if workspace != canonical {
			if universe, err = l.walk(workspace); err != nil {
				return nil, err
			}
		}
	}

	loaded, err := l.closeOverReferences(universe)
	if err != nil {
		return nil, err
	}
	return l.follow(loaded, seeds, followIncoming, followOutgoing), nil
}

func (l *Locator) workspaceRoot(dir string) string {
	if l.vcs != nil {
		if root, ok := l.vcs.Root(dir); ok {
			return root
		}
	}
	return dir
}

func (l *Locator) loadAll(paths []string) ([]project.Project, error) {
	projects := make([]project.Project, 0, len(paths))
	for _, path := range paths {
		p, err := project.Load(path, l.schema)
		if err != nil {
			return nil, l.errors.WrapError(err, "failed to load project %s", path)
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// closeOverReferences loads every path and, transitively, every existing
// descriptor they reference that was not in the starting set. The result is
// sorted by path.
func (l *Locator) closeOverReferences(paths []string) ([]project.Project, error) {
	byPath := make(map[string]project.Project, len(paths))
	queue := append([]string(nil), paths...)
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		if _, ok := byPath[path]; ok {
			continue
		}
		p, err := project.Load(path, l.schema)
		if err != nil {
			return nil, l.errors.WrapError(err, "failed to load project %s", path)
		}
		byPath[path] = p
		for _, ref := range p.References {
			if _, ok := byPath[ref]; ok {
				continue
			}
			if _, err := os.Stat(ref); err != nil {
				slog.Debug("Skipping dangling project reference", "from", path, "to", ref)
				continue
			}
			queue = append(queue, ref)
		}
	}

	projects := make([]project.Project, 0, len(byPath))
	for _, p := range byPath {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Path < projects[j].Path })
	return projects, nil
}

// follow walks the reference graph from the seeds and returns the reached
// projects in path order. Node ids are indexes into the sorted projects, so
// iterating the bitmap yields that order.
func (l *Locator) follow(projects []project.Project, seeds []string, incoming, outgoing bool) []project.Project {
	ids := make(map[string]int64, len(projects))
	for i, p := range projects {
		ids[p.Path] = int64(i)
	}

	forward := simple.NewDirectedGraph()
	reverse := simple.NewDirectedGraph()
	for i := range projects {
		forward.AddNode(simple.Node(i))
		reverse.AddNode(simple.Node(i))
	}
	for i, p := range projects {
		for _, ref := range p.References {
			j, ok := ids[ref]
			if !ok || j == int64(i) {
				continue
			}
			forward.SetEdge(forward.NewEdge(simple.Node(i), simple.Node(j)))
			reverse.SetEdge(reverse.NewEdge(simple.Node(j), simple.Node(i)))
		}
	}

	reached := roaring.New()
	walk := func(g *simple.DirectedGraph) {
		var bf traverse.BreadthFirst
		bf.Visit = func(n graph.Node) {
			reached.Add(uint32(n.ID()))
		}
		for _, seed := range seeds {
			if id, ok := ids[seed]; ok {
				bf.Walk(g, simple.Node(id), nil)
			}
		}
	}
	for _, seed := range seeds {
		if id, ok := ids[seed]; ok {
			reached.Add(uint32(id))
		}
	}
	if outgoing {
		walk(forward)
	}
	if incoming {
		walk(reverse)
	}

	result := make([]project.Project, 0, reached.GetCardinality())
	it := reached.Iterator()
	for it.HasNext() {
		result = append(result, projects[it.Next()])
	}

	slog.Debug("Followed project references",
		"seeds", len(seeds),
		"incoming", incoming,
		"outgoing", outgoing,
		"projects", len(result))
	return result
}

// Ensure Locator implements the ProjectLocator interface
var _ interfaces.ProjectLocator = (*Locator)(nil)
