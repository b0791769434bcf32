// Package project reads the parts of a project descriptor that the relocation
// engine and the solution builder care about: reference edges, the project
// GUID and the identity properties.
package project

import (
	"log/slog"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/csprojtool/cspt"
	"github.com/ZanzyTHEbar/csprojtool/cspt/document"
	"github.com/ZanzyTHEbar/csprojtool/cspt/paths"

	"github.com/beevik/etree"
	"github.com/google/uuid"
)

const (
	PropertyGroup = "PropertyGroup"
	RootNamespace = "RootNamespace"
	AssemblyName  = "AssemblyName"
	ProjectGUID   = "ProjectGuid"
)

// pathNamespace seeds GUIDs for projects that do not declare one.
var pathNamespace = uuid.MustParse("5c4a3ad2-8f0e-4f2b-9a8e-2b5f0e7c1d33")

// Schema names the file extension and reference element of a descriptor
// format.
type Schema struct {
	Extension          string
	ReferenceElement   string
	ReferenceAttribute string
}

// DefaultSchema describes MSBuild C# projects.
func DefaultSchema() Schema {
	return Schema{
		Extension:          internal.DefaultProjectExtension,
		ReferenceElement:   internal.DefaultReferenceElement,
		ReferenceAttribute: internal.DefaultReferenceAttribute,
	}
}

// IsDescriptor reports whether name carries the schema's extension.
func (s Schema) IsDescriptor(name string) bool {
	return strings.EqualFold(filepath.Ext(name), s.Extension)
}

// Project is a discovered project descriptor.
type Project struct {
	Path       string    `json:"path" yaml:"path"`
	GUID       uuid.UUID `json:"guid" yaml:"guid"`
	References []string  `json:"references,omitempty" yaml:"references,omitempty"`
}

// Dir is the directory holding the descriptor.
func (p Project) Dir() string {
	return filepath.Dir(p.Path)
}

// Name is the descriptor file name without extension.
func (p Project) Name() string {
	return paths.Stem(p.Path)
}

// Load parses the descriptor at path, which must be absolute and canonical.
func Load(path string, schema Schema) (Project, error) {
	doc, err := document.Load(path)
	if err != nil {
		return Project{}, err
	}
	return FromDocument(path, doc.Document, schema), nil
}

// FromDocument extracts a Project from an already parsed document.
func FromDocument(path string, doc *etree.Document, schema Schema) Project {
	p := Project{Path: path, GUID: GUIDFor(path, doc)}
	dir := p.Dir()
	for _, include := range ReferenceValues(doc.Root(), schema) {
		p.References = append(p.References, paths.Absolute(include, dir))
	}
	return p
}

// GUIDFor returns the declared ProjectGuid, or a GUID derived from path when
// the document has none or it does not parse.
func GUIDFor(path string, doc *etree.Document) uuid.UUID {
	if doc != nil {
		if el := doc.FindElement("//" + PropertyGroup + "/" + ProjectGUID); el != nil {
			raw := strings.Trim(strings.TrimSpace(el.Text()), "{}")
			if id, err := uuid.Parse(raw); err == nil {
				return id
			}
			slog.Warn("Ignoring malformed project GUID", "path", path, "value", el.Text())
		}
	}
	return uuid.NewSHA1(pathNamespace, []byte(filepath.ToSlash(path)))
}

// ReferenceValues lists the raw path attribute of every reference element
// below root, in document order.
func ReferenceValues(root *etree.Element, schema Schema) []string {
	var values []string
	document.VisitElements(root, func(el *etree.Element) bool {
		if el.Tag != schema.ReferenceElement {
			return false
		}
		if attr := el.SelectAttr(schema.ReferenceAttribute); attr != nil {
			values = append(values, attr.Value)
		}
		return false
	})
	return values
}

// FirstPropertyGroup returns the first PropertyGroup directly under root.
func FirstPropertyGroup(root *etree.Element) *etree.Element {
	return root.SelectElement(PropertyGroup)
}

// EnsureIdentity inserts RootNamespace and AssemblyName into the first
// PropertyGroup when that group lacks them. Each property is checked on its
// own. It reports whether anything was inserted; a project without any
// PropertyGroup is left alone.
func EnsureIdentity(root *etree.Element, name string) bool {
	pg := FirstPropertyGroup(root)
	if pg == nil {
		slog.Warn("Project has no PropertyGroup, identity properties not checked", "name", name)
		return false
	}

	modified := false
	for _, key := range []string{RootNamespace, AssemblyName} {
		if el := pg.SelectElement(key); el != nil {
			slog.Debug("Project already contains "+key, "value", el.Text())
			continue
		}
		slog.Info("Adding "+key+" to project", "name", name)
		appendProperty(pg, key, name)
		modified = true
	}
	return modified
}

// appendProperty adds <key>value</key> as the last child of pg, copying the
// indentation of the group's existing children when there are any.
func appendProperty(pg *etree.Element, key, value string) {
	indent, closing := indentationOf(pg)
	if indent != "" {
		trimTrailingWhitespace(pg)
		pg.CreateText(indent)
	}
	pg.CreateElement(key).SetText(value)
	if closing != "" {
		pg.CreateText(closing)
	}
}

// indentationOf returns the whitespace preceding the first child element and
// the whitespace preceding the closing tag.
func indentationOf(pg *etree.Element) (indent, closing string) {
	for _, tok := range pg.Child {
		if cd, ok := tok.(*etree.CharData); ok && strings.TrimSpace(cd.Data) == "" {
			indent = cd.Data
			break
		}
		if _, ok := tok.(*etree.Element); ok {
			break
		}
	}
	if n := len(pg.Child); n > 0 {
		if cd, ok := pg.Child[n-1].(*etree.CharData); ok && strings.TrimSpace(cd.Data) == "" {
			closing = cd.Data
		}
	}
	return indent, closing
}

func trimTrailingWhitespace(pg *etree.Element) {
	if n := len(pg.Child); n > 0 {
		if cd, ok := pg.Child[n-1].(*etree.CharData); ok && strings.TrimSpace(cd.Data) == "" {
			pg.RemoveChildAt(n - 1)
		}
	}
}
