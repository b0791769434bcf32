package cli

import (
	"fmt"

	"github.com/ZanzyTHEbar/csprojtool/cspt/relocate"

	"github.com/spf13/cobra"
)

func newMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mv FROM TO",
		Short: "Move a project",
		Long: `Move a project and its directory with git, then rewrite every ProjectReference
that pointed at it and every relative path inside it that leaves its directory.

FROM is a project file or a directory holding exactly one project file. TO is
either a new project file path or a new directory, which must not exist.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.logger.Info().Str("from", args[0]).Str("to", args[1]).Msg("Moving project")

			engine := relocate.New(a.schema(), a.gitService(), a.locator())
			result, err := engine.Move(args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s -> %s\n", successColor.Sprint("Moved"),
				pathColor.Sprint(result.OldFile), pathColor.Sprint(result.NewFile))
			for _, p := range result.UpdatedProjects {
				fmt.Fprintf(out, "  updated %s\n", p)
			}
			a.logger.Debug().
				Int("updated_projects", len(result.UpdatedProjects)).
				Int("rewritten_values", result.RewrittenValues).
				Bool("identity_added", result.IdentityAdded).
				Msg("Move summary")
			return nil
		},
	}
}
