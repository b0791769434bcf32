package cli

import (
	"fmt"
	"path/filepath"

	"github.com/ZanzyTHEbar/csprojtool/cspt/locator"
	"github.com/ZanzyTHEbar/csprojtool/cspt/sln"
	"github.com/ZanzyTHEbar/csprojtool/cspt/trees"

	"github.com/spf13/cobra"
)

// discoveryFlags are shared by the commands that list projects.
type discoveryFlags struct {
	searchPath string
	incoming   bool
	outgoing   bool
}

func (f *discoveryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.searchPath, "search-path", "s", "", "directory to search for projects")
	cmd.Flags().BoolVarP(&f.incoming, "incoming", "i", false, "also include projects that reference the found projects")
	cmd.Flags().BoolVarP(&f.outgoing, "outgoing", "o", false, "also include projects referenced by the found projects")
}

func newSolutionCmd(a *app) *cobra.Command {
	var flags discoveryFlags

	cmd := &cobra.Command{
		Use:   "sln OUTPUT",
		Short: "Generate a solution file",
		Long: `Generate a solution file containing the discovered projects, nested in solution
folders that mirror their directories. Projects must live below the directory
of the solution file. The search path defaults to that directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// discovered paths are symlink-free, so the output must be too
			output, err := locator.CanonicalPrefix(args[0])
			if err != nil {
				return err
			}
			search := flags.searchPath
			if search == "" {
				search = filepath.Dir(output)
			}

			a.logger.Info().
				Str("output", output).
				Str("search_path", search).
				Bool("incoming", flags.incoming).
				Bool("outgoing", flags.outgoing).
				Msg("Generating solution")

			projects, err := a.locator().Discover(search, flags.incoming, flags.outgoing)
			if err != nil {
				return err
			}
			tree, err := trees.Build(output, projects)
			if err != nil {
				return err
			}
			if err := sln.WriteFile(output, tree); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s with %d projects\n",
				successColor.Sprint("Wrote"), pathColor.Sprint(output), len(projects))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
