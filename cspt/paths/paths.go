// Package paths implements the lexical path arithmetic shared by the
// relocation engine and the solution builder. Nothing in here touches the
// filesystem, so it works for paths whose target does not exist yet.
package paths

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// outOfTree matches a parent-directory segment followed by either separator.
var outOfTree = regexp.MustCompile(`\.\.[/\\]`)

// Simplify collapses "." and ".." segments and converts both '/' and '\'
// into the OS separator.
func Simplify(path string) string {
	if path == "" {
		return ""
	}
	unified := strings.ReplaceAll(path, `\`, "/")
	return filepath.Clean(filepath.FromSlash(unified))
}

// Absolute joins path onto base when it is not rooted, then simplifies.
func Absolute(path, base string) string {
	p := Simplify(path)
	if filepath.IsAbs(p) {
		return p
	}
	return Simplify(filepath.Join(base, p))
}

// Relative returns the shortest path that expresses target from baseDir.
// Both arguments must be either absolute or relative.
func Relative(baseDir, target string) (string, error) {
	base := Simplify(baseDir)
	tgt := Simplify(target)
	if filepath.IsAbs(base) != filepath.IsAbs(tgt) {
		return "", fmt.Errorf("cannot relate %s to %s: mixed absolute and relative paths", tgt, base)
	}
	rel, err := filepath.Rel(base, tgt)
	if err != nil {
		return "", fmt.Errorf("cannot relate %s to %s: %w", tgt, base, err)
	}
	return rel, nil
}

// LooksOutOfTree reports whether value contains "../" or "..\" anywhere.
// It is a substring test, so "foo..\bar" also matches.
func LooksOutOfTree(value string) bool {
	return outOfTree.MatchString(value)
}

// Within reports whether path is dir itself or lies underneath it, comparing
// whole components.
func Within(dir, path string) bool {
	rel, err := filepath.Rel(Simplify(dir), Simplify(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Stem returns the file name without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Components splits a relative path into its segments. A "." path yields no
// components.
func Components(rel string) []string {
	rel = Simplify(rel)
	if rel == "." || rel == "" {
		return nil
	}
	return strings.Split(filepath.ToSlash(rel), "/")
}
