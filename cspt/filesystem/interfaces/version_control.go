package interfaces

import "github.com/ZanzyTHEbar/csprojtool/cspt/project"

// VersionControl performs history-preserving filesystem changes. Every call
// blocks until the underlying tool has finished; failures are fatal to the
// caller.
type VersionControl interface {
	// Move relocates a tracked file or directory.
	Move(src, dst string) error
	// Stage records the current on-disk content of path for the next commit.
	Stage(path string) error
	// Root returns the repository root containing dir, if any.
	Root(dir string) (string, bool)
}

// ProjectLocator discovers project descriptors under a search root.
type ProjectLocator interface {
	// Discover returns the projects under root, optionally extended by the
	// projects they reference (outgoing) and the projects referencing them
	// (incoming). The result is deduplicated by canonical path and its order
	// is stable across calls on an unchanged tree.
	Discover(root string, followIncoming, followOutgoing bool) ([]project.Project, error)
}
