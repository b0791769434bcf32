package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	internal "github.com/ZanzyTHEbar/csprojtool/cspt"
	"github.com/ZanzyTHEbar/csprojtool/cspt/config"
	"github.com/ZanzyTHEbar/csprojtool/cspt/filesystem/services"
	"github.com/ZanzyTHEbar/csprojtool/cspt/locator"
	"github.com/ZanzyTHEbar/csprojtool/cspt/project"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Colors for help output sections
	sectionTitleColor = color.New(color.FgBlue, color.Bold)
	successColor      = color.New(color.FgGreen)
	pathColor         = color.New(color.FgCyan)
)

// app carries what every subcommand needs once the persistent flags have
// been parsed.
type app struct {
	configPath string
	logLevel   string
	noColor    bool

	cfg    *config.Config
	logger zerolog.Logger
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg

	if a.noColor {
		color.NoColor = true
	}
	a.logger = internal.GetLogger(cmd.ErrOrStderr(), cfg.Log.Level, a.noColor || color.NoColor)
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: slogLevel(cfg.Log.Level),
	})))
	return nil
}

func slogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal", "panic":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (a *app) schema() project.Schema {
	return project.Schema{
		Extension:          a.cfg.Project.Extension,
		ReferenceElement:   a.cfg.Project.ReferenceElement,
		ReferenceAttribute: a.cfg.Project.ReferenceAttribute,
	}
}

func (a *app) gitService() *services.GitServiceImpl {
	return services.NewGitService(a.cfg.Git.Binary)
}

func (a *app) locator() *locator.Locator {
	return locator.New(a.schema(),
		locator.WithWorkers(a.cfg.Discovery.Workers),
		locator.WithGitignore(a.cfg.Discovery.RespectGitignore),
		locator.WithVersionControl(a.gitService()),
	)
}

// customHelpFunc prints the help text with colored section titles.
func customHelpFunc(cmd *cobra.Command, args []string) {
	var help strings.Builder

	if cmd.Long != "" {
		help.WriteString(cmd.Long)
		help.WriteString("\n\n")
	} else if cmd.Short != "" {
		help.WriteString(cmd.Short)
		help.WriteString("\n\n")
	}

	help.WriteString(sectionTitleColor.Sprint("Usage:"))
	help.WriteString("\n")
	fmt.Fprintf(&help, "  %s\n\n", cmd.UseLine())

	hasCommands := false
	for _, c := range cmd.Commands() {
		if c.Hidden || !c.IsAvailableCommand() {
			continue
		}
		if !hasCommands {
			help.WriteString(sectionTitleColor.Sprint("Commands:"))
			help.WriteString("\n")
			hasCommands = true
		}
		fmt.Fprintf(&help, "  %-11s %s\n", c.Name(), c.Short)
	}
	if hasCommands {
		help.WriteString("\n")
	}

	if cmd.HasAvailableLocalFlags() || cmd.HasAvailablePersistentFlags() {
		help.WriteString(sectionTitleColor.Sprint("Flags:"))
		help.WriteString("\n")
		help.WriteString(cmd.LocalFlags().FlagUsages())
		help.WriteString(cmd.InheritedFlags().FlagUsages())
		help.WriteString("\n")
	}

	if hasCommands {
		fmt.Fprintf(&help, "Use \"%s [command] --help\" for more information about a command.\n", cmd.CommandPath())
	}

	fmt.Fprint(cmd.OutOrStdout(), help.String())
}

// newRootCmd builds the command tree. Each call returns independent flag
// state.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     internal.DefaultAppName,
		Version: "dev",
		Short:   "Move C# projects and generate solutions from the project tree",
		Long: `cspt keeps ProjectReference paths intact when projects are moved around a
repository, and generates a solution file whose folders mirror the directory
layout of the discovered projects.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	rootCmd.SetHelpFunc(customHelpFunc)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ./.cspt.yaml, then ~/.config/cspt/config.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newMoveCmd(a))
	rootCmd.AddCommand(newSolutionCmd(a))
	rootCmd.AddCommand(newListCmd(a))

	return rootCmd, a
}

// SetVersion sets the version printed by --version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var version = "dev"

// Execute runs the command line and logs a failure once.
func Execute() error {
	return execute(os.Args[1:], os.Stdout, os.Stderr)
}

func execute(args []string, stdout, stderr io.Writer) error {
	rootCmd, a := newRootCmd()
	rootCmd.Version = version
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	if err != nil {
		if a.cfg == nil {
			// flags or config never got parsed
			a.logger = internal.GetLogger(stderr, internal.DefaultLogLevel, a.noColor)
		}
		a.logger.Error().Err(err).Msg("Command failed")
	}
	return err
}
