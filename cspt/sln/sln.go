// Package sln writes a solution tree as a Visual Studio solution file.
package sln

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/csprojtool/cspt/trees"

	"github.com/google/uuid"
)

const (
	crlf = "\r\n"

	formatVersion       = "12.00"
	visualStudioMajor   = "17"
	visualStudioVersion = "17.0.31903.59"
	minimumVersion      = "10.0.40219.1"
)

var (
	// FolderType is the project type GUID of solution folders.
	FolderType = uuid.MustParse("2150E333-8FDC-42A3-9474-1A3956D46DE8")
	// CSharpType is the project type GUID of SDK-style C# projects.
	CSharpType = uuid.MustParse("9A19103F-16F7-4668-BE54-9A1E7A4F7556")

	folderNamespace = uuid.MustParse("0b6a7b0e-6b1c-4cf1-9d07-4f1f3f5d2a10")

	configurations = []string{"Debug|Any CPU", "Release|Any CPU"}
)

// FolderGUID is the GUID given to the solution folder at the slash-separated
// path. It only depends on the path.
func FolderGUID(path string) uuid.UUID {
	return uuid.NewSHA1(folderNamespace, []byte(path))
}

// entry is one Project(...) line.
type entry struct {
	typeGUID uuid.UUID
	name     string
	path     string
	guid     uuid.UUID
	parent   *uuid.UUID
}

// collect flattens the tree into entries, parents before children.
func collect(root *trees.Directory) ([]entry, error) {
	var entries []entry
	folders := map[string]uuid.UUID{}

	err := root.Walk(func(dir, name string, node trees.Node) error {
		var parent *uuid.UUID
		if dir != "" {
			id := folders[dir]
			parent = &id
		}
		full := name
		if dir != "" {
			full = dir + "/" + name
		}

		switch n := node.(type) {
		case *trees.Directory:
			id := FolderGUID(full)
			folders[full] = id
			entries = append(entries, entry{
				typeGUID: FolderType,
				name:     name,
				path:     name,
				guid:     id,
				parent:   parent,
			})
		case *trees.ProjectLeaf:
			entries = append(entries, entry{
				typeGUID: CSharpType,
				name:     n.Name,
				path:     strings.ReplaceAll(full, "/", `\`),
				guid:     n.GUID,
				parent:   parent,
			})
		default:
			return fmt.Errorf("unexpected node %T at %s", node, full)
		}
		return nil
	})
	return entries, err
}

func braced(id uuid.UUID) string {
	return "{" + strings.ToUpper(id.String()) + "}"
}

// Write serializes root to w.
func Write(w io.Writer, root *trees.Directory) error {
	entries, err := collect(root)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(bw, format, args...)
		bw.WriteString(crlf)
	}

	line("")
	line("Microsoft Visual Studio Solution File, Format Version %s", formatVersion)
	line("# Visual Studio Version %s", visualStudioMajor)
	line("VisualStudioVersion = %s", visualStudioVersion)
	line("MinimumVisualStudioVersion = %s", minimumVersion)

	for _, e := range entries {
		line("Project(\"%s\") = \"%s\", \"%s\", \"%s\"", braced(e.typeGUID), e.name, e.path, braced(e.guid))
		line("EndProject")
	}

	line("Global")
	line("\tGlobalSection(SolutionConfigurationPlatforms) = preSolution")
	for _, c := range configurations {
		line("\t\t%s = %s", c, c)
	}
	line("\tEndGlobalSection")

	line("\tGlobalSection(ProjectConfigurationPlatforms) = postSolution")
	for _, e := range entries {
		if e.typeGUID == FolderType {
			continue
		}
		for _, c := range configurations {
			line("\t\t%s.%s.ActiveCfg = %s", braced(e.guid), c, c)
			line("\t\t%s.%s.Build.0 = %s", braced(e.guid), c, c)
		}
	}
	line("\tEndGlobalSection")

	line("\tGlobalSection(SolutionProperties) = preSolution")
	line("\t\tHideSolutionNode = FALSE")
	line("\tEndGlobalSection")

	nested := false
	for _, e := range entries {
		if e.parent == nil {
			continue
		}
		if !nested {
			line("\tGlobalSection(NestedProjects) = preSolution")
			nested = true
		}
		line("\t\t%s = %s", braced(e.guid), braced(*e.parent))
	}
	if nested {
		line("\tEndGlobalSection")
	}
	line("EndGlobal")

	return bw.Flush()
}

// WriteFile creates or truncates path and writes root to it.
func WriteFile(path string, root *trees.Directory) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Write(f, root); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	slog.Debug("Solution written", "path", path)
	return nil
}
