// Package document applies visitors to project descriptor documents and
// writes them back only when a visitor reported a change.
package document

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/beevik/etree"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Document is a parsed descriptor together with the file it came from.
type Document struct {
	*etree.Document
	Path string
	bom  bool
	perm os.FileMode
}

// Load parses the document stored at path. A leading UTF-8 byte order mark is
// remembered and written back by Save.
func Load(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(path, data, info.Mode().Perm())
}

// Parse builds a Document from raw bytes without touching the filesystem.
func Parse(path string, data []byte, perm os.FileMode) (*Document, error) {
	d := &Document{Document: etree.NewDocument(), Path: path, perm: perm}
	if bytes.HasPrefix(data, utf8BOM) {
		d.bom = true
		data = data[len(utf8BOM):]
	}
	if err := d.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if d.Root() == nil {
		return nil, fmt.Errorf("failed to parse %s: document has no root element", path)
	}
	return d, nil
}

// Bytes serializes the document, including the byte order mark if the source
// had one.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if d.bom {
		buf.Write(utf8BOM)
	}
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize %s: %w", d.Path, err)
	}
	return buf.Bytes(), nil
}

// Save writes the document back to its path.
func (d *Document) Save() error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	perm := d.perm
	if perm == 0 {
		perm = 0o644
	}
	if err := os.WriteFile(d.Path, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", d.Path, err)
	}
	return nil
}

// Transform loads path, hands the document to fn and saves it only when fn
// reports a change. An unchanged document leaves the file untouched.
func Transform(path string, fn func(doc *Document) (bool, error)) (bool, error) {
	doc, err := Load(path)
	if err != nil {
		return false, err
	}
	changed, err := fn(doc)
	if err != nil {
		return false, err
	}
	if !changed {
		slog.Debug("Document unchanged, skipping write", "path", path)
		return false, nil
	}
	if err := doc.Save(); err != nil {
		return false, err
	}
	slog.Debug("Document written", "path", path)
	return true, nil
}
