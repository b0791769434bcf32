// Package relocate moves a project descriptor together with its directory and
// keeps every reference to and from it pointing at the right place.
package relocate

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/csprojtool/cspt/document"
	"github.com/ZanzyTHEbar/csprojtool/cspt/filesystem/common"
	"github.com/ZanzyTHEbar/csprojtool/cspt/filesystem/interfaces"
	"github.com/ZanzyTHEbar/csprojtool/cspt/locator"
	"github.com/ZanzyTHEbar/csprojtool/cspt/paths"
	"github.com/ZanzyTHEbar/csprojtool/cspt/project"

	"github.com/beevik/etree"
)

// Engine performs project moves. It is not safe for concurrent use.
type Engine struct {
	schema  project.Schema
	vcs     interfaces.VersionControl
	locator interfaces.ProjectLocator
	workDir string
	errors  *common.ErrorUtils
}

// Option customizes an Engine.
type Option func(*Engine)

// WithWorkDir sets the directory relative paths are resolved against
// and the fallback workspace root. Defaults to the process working directory.
func WithWorkDir(dir string) Option {
	return func(e *Engine) {
		e.workDir = dir
	}
}

// New creates an Engine.
func New(schema project.Schema, vcs interfaces.VersionControl, loc interfaces.ProjectLocator, opts ...Option) *Engine {
	e := &Engine{
		schema:  schema,
		vcs:     vcs,
		locator: loc,
		errors:  common.NewErrorUtils(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan is a resolved move, computed before anything on disk changes.
type Plan struct {
	OldDir  string
	OldFile string
	NewDir  string
	NewFile string
	Root    string
}

// Result summarizes a completed move.
type Result struct {
	Plan
	// UpdatedProjects lists the projects whose references were rewritten.
	UpdatedProjects []string
	// RewrittenValues counts out-of-tree values rewritten in the moved project.
	RewrittenValues int
	// IdentityAdded is set when RootNamespace or AssemblyName was inserted.
	IdentityAdded bool
}

// Move relocates the project named by from to to. The stages run in order
// and the first failure is returned as is; nothing is rolled back.
func (e *Engine) Move(from, to string) (*Result, error) {
	slog.Info("Moving project", "from", from, "to", to)

	plan, err := e.Plan(from, to)
	if err != nil {
		return nil, err
	}

	workspace, err := e.locator.Discover(plan.Root, false, false)
	if err != nil {
		return nil, e.errors.WrapError(err, "failed to discover projects under %s", plan.Root)
	}
	if err := checkNested(plan, workspace); err != nil {
		return nil, err
	}

	if err := e.moveFiles(plan); err != nil {
		return nil, err
	}

	result := &Result{Plan: *plan}
	for _, p := range workspace {
		if p.Path == plan.OldFile {
			continue
		}
		updated, err := e.fixInbound(p, plan)
		if err != nil {
			return nil, err
		}
		if updated {
			result.UpdatedProjects = append(result.UpdatedProjects, p.Path)
		}
	}

	if err := e.fixMoved(plan, result); err != nil {
		return nil, err
	}

	slog.Info("Project moved",
		"from", plan.OldFile,
		"to", plan.NewFile,
		"updated_projects", len(result.UpdatedProjects),
		"rewritten_values", result.RewrittenValues)
	return result, nil
}

// Plan resolves the source and destination of a move and validates them
// without touching anything.
func (e *Engine) Plan(from, to string) (*Plan, error) {
	if from == "" || to == "" {
		return nil, common.ErrPathEmpty
	}

	workDir, err := e.resolveWorkDir()
	if err != nil {
		return nil, err
	}

	oldDir, oldFile, err := e.resolveSource(from, workDir)
	if err != nil {
		return nil, err
	}
	slog.Debug("Determined old path", "path", oldFile)

	newDir, newFile, err := e.resolveDestination(to, workDir, oldFile)
	if err != nil {
		return nil, err
	}
	if paths.Within(oldDir, newDir) {
		return nil, common.PathError(common.ErrDestinationInside, newDir)
	}
	if _, err := os.Stat(newDir); err == nil {
		return nil, common.PathError(common.ErrDestinationExists, newDir)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to check destination %s: %w", newDir, err)
	}
	slog.Debug("Determined new path", "path", newFile)

	root := workDir
	if r, ok := e.vcs.Root(oldDir); ok {
		root = r
	}
	slog.Debug("Workspace root", "root", root)

	return &Plan{
		OldDir:  oldDir,
		OldFile: oldFile,
		NewDir:  newDir,
		NewFile: newFile,
		Root:    root,
	}, nil
}

func (e *Engine) resolveWorkDir() (string, error) {
	dir := e.workDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}
	return locator.Canonical(dir)
}

func (e *Engine) resolveSource(from, workDir string) (dir, file string, err error) {
	old, err := locator.Canonical(paths.Absolute(from, workDir))
	if err != nil {
		return "", "", err
	}
	info, err := os.Stat(old)
	if err != nil {
		return "", "", fmt.Errorf("failed to stat %s: %w", old, err)
	}

	switch {
	case info.Mode().IsRegular():
		return filepath.Dir(old), old, nil
	case info.IsDir():
		entries, err := os.ReadDir(old)
		if err != nil {
			return "", "", fmt.Errorf("failed to read directory %s: %w", old, err)
		}
		var found []string
		for _, entry := range entries {
			if entry.Type().IsRegular() && e.schema.IsDescriptor(entry.Name()) {
				found = append(found, filepath.Join(old, entry.Name()))
			}
		}
		switch len(found) {
		case 0:
			return "", "", common.PathError(common.ErrNoProject, old)
		case 1:
			return old, found[0], nil
		default:
			return "", "", common.PathError(common.ErrAmbiguousProject, found...)
		}
	default:
		return "", "", common.PathError(common.ErrNotAFileOrDirectory, old)
	}
}

// resolveDestination treats to as the new descriptor path when it carries the
// descriptor extension, otherwise as the new directory keeping the file name.
// The existing part of the destination has its symlinks resolved so it can be
// related to the canonical workspace paths.
func (e *Engine) resolveDestination(to, workDir, oldFile string) (dir, file string, err error) {
	dest, err := locator.CanonicalPrefix(paths.Absolute(to, workDir))
	if err != nil {
		return "", "", err
	}
	if e.schema.IsDescriptor(dest) {
		return filepath.Dir(dest), dest, nil
	}
	return dest, filepath.Join(dest, filepath.Base(oldFile)), nil
}

func checkNested(plan *Plan, workspace []project.Project) error {
	all := make([]string, 0, len(workspace))
	for _, p := range workspace {
		all = append(all, p.Path)
	}

	idx := locator.NewIndex(all)
	slog.Debug("Checking for nested projects", "workspace_projects", idx.Len(), "dir", plan.OldDir)
	if !idx.Contains(plan.OldFile) {
		slog.Warn("Moved project is outside the discovered workspace, references to it may be missed",
			"project", plan.OldFile,
			"root", plan.Root)
	}

	var nested []string
	for _, p := range idx.Under(plan.OldDir) {
		if p != plan.OldFile {
			nested = append(nested, p)
		}
	}
	if len(nested) > 0 {
		return common.PathError(common.ErrNestedProject, nested...)
	}
	return nil
}

func (e *Engine) moveFiles(plan *Plan) error {
	if err := e.vcs.Move(plan.OldDir, plan.NewDir); err != nil {
		return err
	}
	current := filepath.Join(plan.NewDir, filepath.Base(plan.OldFile))
	if current != plan.NewFile {
		if err := e.vcs.Move(current, plan.NewFile); err != nil {
			return err
		}
	}
	return nil
}

// fixInbound rewrites the references in p that point at the old project and
// stages its file when one did.
func (e *Engine) fixInbound(p project.Project, plan *Plan) (bool, error) {
	path, dir := p.Path, p.Dir()
	var rewriteErr error

	changed, err := document.Transform(path, func(doc *document.Document) (bool, error) {
		edited := document.VisitElements(doc.Root(), func(el *etree.Element) bool {
			if el.Tag != e.schema.ReferenceElement {
				return false
			}
			attr := el.SelectAttr(e.schema.ReferenceAttribute)
			if attr == nil || paths.Absolute(attr.Value, dir) != plan.OldFile {
				return false
			}
			rel, err := paths.Relative(dir, plan.NewFile)
			if err != nil {
				rewriteErr = err
				return false
			}
			slog.Debug("Replacing project reference",
				"old", attr.Value,
				"new", rel,
				"project", path)
			attr.Value = rel
			return true
		})
		return edited, rewriteErr
	})
	if err != nil {
		return false, e.errors.WrapError(err, "failed to update references in %s", path)
	}
	if changed {
		if err := e.vcs.Stage(path); err != nil {
			return false, err
		}
	}
	return changed, nil
}

// fixMoved rewrites out-of-tree values in the moved document, backfills its
// identity properties and stages it when either changed something.
func (e *Engine) fixMoved(plan *Plan, result *Result) error {
	name := project.Project{Path: plan.NewFile}.Name()

	changed, err := document.Transform(plan.NewFile, func(doc *document.Document) (bool, error) {
		rewrite := func(value string) (string, bool) {
			next, ok := RewriteOutOfTree(value, plan.OldDir, plan.NewDir, exists)
			if ok {
				result.RewrittenValues++
			}
			return next, ok
		}
		edited := document.VisitNodes(doc.Root(), func(node etree.Token) bool {
			switch n := node.(type) {
			case *etree.Element:
				return document.RewriteAttributes(n, rewrite)
			case *etree.CharData:
				return document.RewriteText(n, rewrite)
			}
			return false
		})

		if project.EnsureIdentity(doc.Root(), name) {
			result.IdentityAdded = true
			edited = true
		}
		return edited, nil
	})
	if err != nil {
		return e.errors.WrapError(err, "failed to update moved project %s", plan.NewFile)
	}
	if changed {
		return e.vcs.Stage(plan.NewFile)
	}
	return nil
}

// RewriteOutOfTree re-expresses a relative value that escapes oldDir so that
// it resolves to the same target from newDir. Values that do not look out of
// tree, are rooted, or whose old target does not exist are left alone.
func RewriteOutOfTree(value, oldDir, newDir string, exists func(string) bool) (string, bool) {
	if !paths.LooksOutOfTree(value) {
		return value, false
	}
	simplified := paths.Simplify(value)
	if filepath.IsAbs(simplified) {
		return value, false
	}
	target := paths.Absolute(simplified, oldDir)
	if !exists(target) {
		slog.Debug("Leaving unresolved relative path alone", "value", value, "resolved", target)
		return value, false
	}
	rel, err := paths.Relative(newDir, target)
	if err != nil {
		return value, false
	}
	if rel == value {
		return value, false
	}
	slog.Debug("Rewriting relative path", "old", value, "new", rel)
	return rel, true
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
