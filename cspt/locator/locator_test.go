package locator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/csprojtool/cspt/project"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoot struct {
	root string
}

func (f fakeRoot) Move(src, dst string) error { return nil }
func (f fakeRoot) Stage(path string) error    { return nil }
func (f fakeRoot) Root(dir string) (string, bool) {
	return f.root, true
}

// writeProject creates rel (slash separated, relative to root) with a
// ProjectReference for each refs entry, written relative to the project.
func writeProject(t *testing.T, root, rel string, refs ...string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	var items strings.Builder
	for _, ref := range refs {
		target := filepath.Join(root, filepath.FromSlash(ref))
		include, err := filepath.Rel(filepath.Dir(path), target)
		require.NoError(t, err)
		fmt.Fprintf(&items, "    <ProjectReference Include=%q />\n", include)
	}
	content := fmt.Sprintf("<Project>\n  <PropertyGroup/>\n  <ItemGroup>\n%s  </ItemGroup>\n</Project>\n", items.String())
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func canonicalTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func projectPaths(projects []project.Project) []string {
	out := make([]string, 0, len(projects))
	for _, p := range projects {
		out = append(out, p.Path)
	}
	return out
}

// discoveredPaths runs a discovery without following references.
func discoveredPaths(l *Locator, root string) ([]string, error) {
	projects, err := l.Discover(root, false, false)
	if err != nil {
		return nil, err
	}
	return projectPaths(projects), nil
}

func TestPaths_SortedAndFiltered(t *testing.T) {
	root := canonicalTempDir(t)
	b := writeProject(t, root, "src/B/B.csproj")
	a := writeProject(t, root, "src/A/A.csproj")
	c := writeProject(t, root, "C.CSPROJ")
	writeProject(t, root, ".hidden/H/H.csproj")
	writeProject(t, root, "src/A/bin/Debug/Copy.csproj")
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "A", "A.cs"), []byte("class A {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("bin/\n"), 0o644))

	l := New(project.DefaultSchema(), WithWorkers(2))
	found, err := discoveredPaths(l, root)

	require.NoError(t, err)
	assert.Equal(t, []string{c, a, b}, found)
}

func TestPaths_GitignoreCanBeDisabled(t *testing.T) {
	root := canonicalTempDir(t)
	writeProject(t, root, "A/A.csproj")
	writeProject(t, root, "A/obj/Gen.csproj")
	require.NoError(t, os.WriteFile(filepath.Join(root, "A", ".gitignore"), []byte("obj\n"), 0o644))

	withRules, err := discoveredPaths(New(project.DefaultSchema()), root)
	require.NoError(t, err)
	assert.Len(t, withRules, 1)

	without, err := discoveredPaths(New(project.DefaultSchema(), WithGitignore(false)), root)
	require.NoError(t, err)
	assert.Len(t, without, 2)
}

func TestPaths_StableAcrossRuns(t *testing.T) {
	root := canonicalTempDir(t)
	for i := 0; i < 20; i++ {
		writeProject(t, root, fmt.Sprintf("d%02d/sub/P%02d.csproj", i, i))
	}

	l := New(project.DefaultSchema(), WithWorkers(8))
	first, err := discoveredPaths(l, root)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := discoveredPaths(l, root)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Len(t, first, 20)
}

func TestPaths_RootMustBeDirectory(t *testing.T) {
	root := canonicalTempDir(t)
	file := writeProject(t, root, "A.csproj")

	_, err := discoveredPaths(New(project.DefaultSchema()), file)
	assert.Error(t, err)

	_, err = discoveredPaths(New(project.DefaultSchema()), filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestDiscover_NoFollow(t *testing.T) {
	root := canonicalTempDir(t)
	writeProject(t, root, "lib/Core/Core.csproj")
	app := writeProject(t, root, "apps/App/App.csproj", "lib/Core/Core.csproj")

	projects, err := New(project.DefaultSchema()).Discover(filepath.Join(root, "apps"), false, false)

	require.NoError(t, err)
	assert.Equal(t, []string{app}, projectPaths(projects))
	require.Len(t, projects[0].References, 1)
	assert.Equal(t, filepath.Join(root, "lib", "Core", "Core.csproj"), projects[0].References[0])
}

func TestDiscover_FollowOutgoing(t *testing.T) {
	root := canonicalTempDir(t)
	util := writeProject(t, root, "lib/Util/Util.csproj")
	core := writeProject(t, root, "lib/Core/Core.csproj", "lib/Util/Util.csproj")
	app := writeProject(t, root, "apps/App/App.csproj", "lib/Core/Core.csproj", "lib/Missing/Missing.csproj")
	writeProject(t, root, "lib/Unused/Unused.csproj")

	projects, err := New(project.DefaultSchema()).Discover(filepath.Join(root, "apps"), false, true)

	require.NoError(t, err)
	assert.Equal(t, []string{app, core, util}, projectPaths(projects))
}

func TestDiscover_FollowIncoming(t *testing.T) {
	root := canonicalTempDir(t)
	core := writeProject(t, root, "lib/Core/Core.csproj")
	app := writeProject(t, root, "apps/App/App.csproj", "lib/Core/Core.csproj")
	tests := writeProject(t, root, "tests/AppTests/AppTests.csproj", "apps/App/App.csproj")
	writeProject(t, root, "tools/Other/Other.csproj")

	l := New(project.DefaultSchema(), WithVersionControl(fakeRoot{root: root}))
	projects, err := l.Discover(filepath.Join(root, "lib"), true, false)

	require.NoError(t, err)
	assert.Equal(t, []string{app, core, tests}, projectPaths(projects))
}

func TestDiscover_FollowBoth(t *testing.T) {
	root := canonicalTempDir(t)
	util := writeProject(t, root, "lib/Util/Util.csproj")
	core := writeProject(t, root, "lib/Core/Core.csproj", "lib/Util/Util.csproj")
	app := writeProject(t, root, "apps/App/App.csproj", "lib/Core/Core.csproj")
	writeProject(t, root, "tools/Other/Other.csproj")

	l := New(project.DefaultSchema(), WithVersionControl(fakeRoot{root: root}))
	projects, err := l.Discover(filepath.Join(root, "lib", "Core"), true, true)

	require.NoError(t, err)
	assert.Equal(t, []string{app, core, util}, projectPaths(projects))
}

func TestDiscover_SelfReferenceIsIgnored(t *testing.T) {
	root := canonicalTempDir(t)
	self := writeProject(t, root, "A/A.csproj", "A/A.csproj")

	projects, err := New(project.DefaultSchema()).Discover(root, true, true)

	require.NoError(t, err)
	assert.Equal(t, []string{self}, projectPaths(projects))
}

func TestDiscover_MalformedProjectIsFatal(t *testing.T) {
	root := canonicalTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "Bad.csproj"), []byte("<Project>"), 0o644))

	_, err := New(project.DefaultSchema()).Discover(root, false, false)
	assert.Error(t, err)
}

func TestIndex_Under(t *testing.T) {
	idx := NewIndex([]string{
		"/repo/A/A.csproj",
		"/repo/A/Nested/N.csproj",
		"/repo/AB/AB.csproj",
		"/repo/B/B.csproj",
	})

	assert.Equal(t, 4, idx.Len())
	assert.True(t, idx.Contains("/repo/A/./A.csproj"))
	assert.False(t, idx.Contains("/repo/A"))
	assert.Equal(t, []string{"/repo/A/A.csproj", "/repo/A/Nested/N.csproj"}, idx.Under("/repo/A"))
	assert.Equal(t, []string{"/repo/A/A.csproj", "/repo/A/Nested/N.csproj"}, idx.Under("/repo/A/"))
	assert.Empty(t, idx.Under("/repo/C"))
}

func TestCanonicalPrefix(t *testing.T) {
	target := canonicalTempDir(t)
	require.NoError(t, os.MkdirAll(filepath.Join(target, "existing"), 0o755))
	link := filepath.Join(canonicalTempDir(t), "link")
	require.NoError(t, os.Symlink(target, link))

	t.Run("existing path through a link", func(t *testing.T) {
		got, err := CanonicalPrefix(filepath.Join(link, "existing"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(target, "existing"), got)
	})

	t.Run("missing tail is kept", func(t *testing.T) {
		got, err := CanonicalPrefix(filepath.Join(link, "existing", "new", "All.sln"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(target, "existing", "new", "All.sln"), got)
	})

	t.Run("agrees with Canonical on existing paths", func(t *testing.T) {
		want, err := Canonical(link)
		require.NoError(t, err)
		got, err := CanonicalPrefix(link)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}
