package locator

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ZanzyTHEbar/csprojtool/cspt/filesystem/common"
	"github.com/ZanzyTHEbar/csprojtool/cspt/project"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/sourcegraph/conc/pool"
)

const gitignoreFile = ".gitignore"

// ignoreRule is a compiled .gitignore together with the directory it lives
// in; patterns are matched against paths relative to that directory.
type ignoreRule struct {
	base    string
	matcher *ignore.GitIgnore
}

// walkJob is one directory waiting to be read, with the ignore rules
// inherited from its ancestors.
type walkJob struct {
	dir   string
	rules []ignoreRule
}

// walkStats counts what a walk touched.
type walkStats struct {
	DirsProcessed int64
	Descriptors   int64
	Ignored       int64
}

// walker finds descriptor files below a root, one directory level at a time,
// reading the directories of a level concurrently.
type walker struct {
	schema           project.Schema
	maxWorkers       int
	respectGitignore bool
}

func defaultWorkers() int {
	// I/O bound: twice the cores, bounded on both sides
	return min(max(runtime.NumCPU()*2, 4), 32)
}

// walk returns the canonical paths of all descriptors under root, sorted.
func (w *walker) walk(root string) ([]string, error) {
	var stats walkStats

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access search root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, common.PathError(common.ErrNotAFileOrDirectory, root)
	}

	var (
		found   []string
		foundMu sync.Mutex
	)
	currentLevel := []walkJob{{dir: root}}

	for len(currentLevel) > 0 {
		var (
			nextLevel   []walkJob
			nextLevelMu sync.Mutex
		)
		levelPool := pool.New().WithErrors().WithMaxGoroutines(w.maxWorkers)

		for _, job := range currentLevel {
			levelPool.Go(func() error {
				dirs, files, err := w.readDir(job, &stats)
				if err != nil {
					return err
				}
				atomic.AddInt64(&stats.DirsProcessed, 1)
				atomic.AddInt64(&stats.Descriptors, int64(len(files)))

				foundMu.Lock()
				found = append(found, files...)
				foundMu.Unlock()

				nextLevelMu.Lock()
				nextLevel = append(nextLevel, dirs...)
				nextLevelMu.Unlock()
				return nil
			})
		}

		if err := levelPool.Wait(); err != nil {
			return nil, err
		}
		currentLevel = nextLevel
	}

	sort.Strings(found)
	slog.Debug("Descriptor walk completed",
		"root", root,
		"dirs", stats.DirsProcessed,
		"descriptors", stats.Descriptors,
		"ignored", stats.Ignored)

	return found, nil
}

// readDir lists one directory and splits it into subdirectories to descend
// into and descriptor files.
func (w *walker) readDir(job walkJob, stats *walkStats) ([]walkJob, []string, error) {
	entries, err := os.ReadDir(job.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read directory %s: %w", job.dir, err)
	}

	rules := job.rules
	if w.respectGitignore {
		rule, err := loadIgnoreRule(job.dir)
		if err != nil {
			return nil, nil, err
		}
		if rule != nil {
			rules = append(append([]ignoreRule(nil), job.rules...), *rule)
		}
	}

	var dirs []walkJob
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		childPath := filepath.Join(job.dir, name)
		if isIgnored(rules, childPath, entry.IsDir()) {
			slog.Debug("Ignoring path", "path", childPath)
			atomic.AddInt64(&stats.Ignored, 1)
			continue
		}

		switch {
		case entry.IsDir():
			dirs = append(dirs, walkJob{dir: childPath, rules: rules})
		case entry.Type().IsRegular() && w.schema.IsDescriptor(name):
			files = append(files, childPath)
		}
	}
	return dirs, files, nil
}

func loadIgnoreRule(dir string) (*ignoreRule, error) {
	path := filepath.Join(dir, gitignoreFile)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error checking for %s: %w", path, err)
	}
	matcher, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return &ignoreRule{base: dir, matcher: matcher}, nil
}

func isIgnored(rules []ignoreRule, path string, isDir bool) bool {
	for _, rule := range rules {
		rel, err := filepath.Rel(rule.base, path)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if rule.matcher.MatchesPath(rel) {
			return true
		}
		if isDir && rule.matcher.MatchesPath(rel+"/") {
			return true
		}
	}
	return false
}
