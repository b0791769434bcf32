package services

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/csprojtool/cspt"
	"github.com/ZanzyTHEbar/csprojtool/cspt/filesystem/interfaces"
)

// GitServiceImpl moves and stages files through the git command line.
// Commands run to completion; there is no timeout.
type GitServiceImpl struct {
	binary string
}

// NewGitService creates a git service using binary, or "git" when empty.
func NewGitService(binary string) *GitServiceImpl {
	if binary == "" {
		binary = internal.DefaultGitBinary
	}
	return &GitServiceImpl{binary: binary}
}

// runGitCommand executes git in repoDir and returns its combined output.
func (gs *GitServiceImpl) runGitCommand(repoDir string, args ...string) (string, error) {
	cmdArgs := append([]string{"-C", repoDir}, args...)
	cmd := exec.Command(gs.binary, cmdArgs...)

	slog.Debug("Executing git command",
		"dir", repoDir,
		"args", args)

	output, err := cmd.CombinedOutput()
	if err != nil {
		slog.Error("Git command failed",
			"dir", repoDir,
			"args", args,
			"output", string(output),
			"error", err)
		return string(output), fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(output)), err)
	}

	return string(output), nil
}

// Move runs `git mv src dst` from the parent directory of src. Missing parent
// directories of dst are created first.
func (gs *GitServiceImpl) Move(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create parent of %s: %w", dst, err)
	}
	if _, err := gs.runGitCommand(filepath.Dir(src), "mv", src, dst); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", src, dst, err)
	}
	slog.Debug("Moved path with git", "from", src, "to", dst)
	return nil
}

// Stage runs `git add path` from the directory containing path.
func (gs *GitServiceImpl) Stage(path string) error {
	if _, err := gs.runGitCommand(filepath.Dir(path), "add", path); err != nil {
		return fmt.Errorf("failed to add file %s: %w", path, err)
	}
	slog.Debug("Added file to git index", "file", path)
	return nil
}

// Root walks up from dir looking for a .git directory or file.
func (gs *GitServiceImpl) Root(dir string) (string, bool) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return current, true
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// Ensure GitServiceImpl implements the VersionControl interface
var _ interfaces.VersionControl = (*GitServiceImpl)(nil)
