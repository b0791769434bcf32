package locator

import (
	"path/filepath"
	"strings"

	"github.com/armon/go-radix"
)

// Index answers "which descriptors live under this directory" with a prefix
// walk over a radix tree keyed by slash-separated path.
type Index struct {
	tree *radix.Tree
}

// NewIndex builds an index over the given descriptor paths.
func NewIndex(paths []string) *Index {
	tree := radix.New()
	for _, p := range paths {
		tree.Insert(indexKey(p), p)
	}
	return &Index{tree: tree}
}

// Len returns the number of indexed paths.
func (idx *Index) Len() int {
	return idx.tree.Len()
}

// Contains reports whether path was indexed.
func (idx *Index) Contains(path string) bool {
	_, ok := idx.tree.Get(indexKey(path))
	return ok
}

// Under returns the indexed paths lying strictly below dir, in key order.
func (idx *Index) Under(dir string) []string {
	prefix := strings.TrimSuffix(indexKey(dir), "/") + "/"
	var found []string
	idx.tree.WalkPrefix(prefix, func(_ string, v interface{}) bool {
		found = append(found, v.(string))
		return false
	})
	return found
}

func indexKey(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}
