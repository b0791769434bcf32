package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ZanzyTHEbar/csprojtool/cspt/project"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatYAML = "yaml"
	formatJSON = "json"
)

func newListCmd(a *app) *cobra.Command {
	var (
		flags  discoveryFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered projects",
		Long: `List the projects found under the search path (default: the working directory),
optionally following project references in either direction.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			search := flags.searchPath
			if search == "" {
				search = "."
			}
			projects, err := a.locator().Discover(search, flags.incoming, flags.outgoing)
			if err != nil {
				return err
			}
			return writeProjects(cmd.OutOrStdout(), projects, format)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, yaml or json")
	return cmd
}

func writeProjects(w io.Writer, projects []project.Project, format string) error {
	if projects == nil {
		projects = []project.Project{}
	}

	switch format {
	case formatText:
		for _, p := range projects {
			fmt.Fprintln(w, p.Path)
		}
		return nil
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(projects); err != nil {
			return fmt.Errorf("failed to encode projects: %w", err)
		}
		return enc.Close()
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(projects); err != nil {
			return fmt.Errorf("failed to encode projects: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
