package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
  </PropertyGroup>
  <ItemGroup>
    <ProjectReference Include="../B/B.csproj" />
    <None Include="../shared/logo.png" />
  </ItemGroup>
  <!-- ../not/visited -->
</Project>
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVisitElementsPreOrder(t *testing.T) {
	doc, err := Parse("sample.csproj", []byte(sample), 0o644)
	require.NoError(t, err)

	var tags []string
	changed := VisitElements(doc.Root(), func(el *etree.Element) bool {
		tags = append(tags, el.Tag)
		return false
	})

	assert.False(t, changed)
	assert.Equal(t, []string{"Project", "PropertyGroup", "TargetFramework", "ItemGroup", "ProjectReference", "None"}, tags)
}

func TestVisitElementsSeesChildrenAddedByVisitor(t *testing.T) {
	doc, err := Parse("sample.csproj", []byte(sample), 0o644)
	require.NoError(t, err)

	var tags []string
	changed := VisitElements(doc.Root(), func(el *etree.Element) bool {
		tags = append(tags, el.Tag)
		if el.Tag == "PropertyGroup" {
			el.CreateElement("RootNamespace").SetText("A")
			return true
		}
		return false
	})

	assert.True(t, changed)
	assert.Contains(t, tags, "RootNamespace")
}

func TestVisitNodesIncludesText(t *testing.T) {
	doc, err := Parse("sample.csproj", []byte(sample), 0o644)
	require.NoError(t, err)

	var texts []string
	var elements int
	VisitNodes(doc.Root(), func(node etree.Token) bool {
		switch n := node.(type) {
		case *etree.Element:
			elements++
		case *etree.CharData:
			if s := strings.TrimSpace(n.Data); s != "" {
				texts = append(texts, s)
			}
		}
		return false
	})

	assert.Equal(t, 6, elements)
	assert.Equal(t, []string{"net8.0"}, texts, "comments are not visited")
}

func TestRewriteAttributesAndText(t *testing.T) {
	doc, err := Parse("sample.csproj", []byte(sample), 0o644)
	require.NoError(t, err)

	upper := func(v string) (string, bool) {
		if strings.HasPrefix(v, "../") {
			return strings.ToUpper(v), true
		}
		return v, false
	}

	changed := VisitNodes(doc.Root(), func(node etree.Token) bool {
		switch n := node.(type) {
		case *etree.Element:
			return RewriteAttributes(n, upper)
		case *etree.CharData:
			return RewriteText(n, upper)
		}
		return false
	})

	require.True(t, changed)
	ref := doc.FindElement("//ProjectReference")
	require.NotNil(t, ref)
	assert.Equal(t, "../B/B.CSPROJ", ref.SelectAttrValue("Include", ""))
}

func TestTransformSkipsWriteWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "A.csproj", sample)
	before, err := os.Stat(path)
	require.NoError(t, err)

	changed, err := Transform(path, func(doc *Document) (bool, error) {
		return VisitElements(doc.Root(), func(*etree.Element) bool { return false }), nil
	})

	require.NoError(t, err)
	assert.False(t, changed)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sample, string(data))
	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestTransformWritesWhenChanged(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "A.csproj", sample)

	changed, err := Transform(path, func(doc *Document) (bool, error) {
		pg := doc.Root().SelectElement("PropertyGroup")
		pg.CreateElement("AssemblyName").SetText("A")
		return true, nil
	})

	require.NoError(t, err)
	assert.True(t, changed)

	reloaded, err := Load(path)
	require.NoError(t, err)
	name := reloaded.FindElement("//PropertyGroup/AssemblyName")
	require.NotNil(t, name)
	assert.Equal(t, "A", name.Text())
	assert.NotNil(t, reloaded.FindElement("//ProjectReference"))
}

func TestTransformPropagatesVisitorError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "A.csproj", sample)

	_, err := Transform(path, func(doc *Document) (bool, error) {
		return true, assert.AnError
	})

	assert.ErrorIs(t, err, assert.AnError)
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, sample, string(data))
}

func TestByteOrderMarkIsPreserved(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "A.csproj", "\ufeff"+sample)

	_, err := Transform(path, func(doc *Document) (bool, error) {
		doc.Root().CreateElement("ItemGroup")
		return true, nil
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\ufeff<Project"))
}

func TestLoadRejectsMalformedDocuments(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(writeFile(t, dir, "broken.csproj", "<Project><PropertyGroup></Project>"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, dir, "empty.csproj", ""))
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.csproj"))
	assert.Error(t, err)
}
