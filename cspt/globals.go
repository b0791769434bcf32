package internal

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

var (
	// DefaultAppName is the short name used for config paths and env prefixes
	DefaultAppName          = "cspt"
	DefaultConfigPath       = filepath.Join(getHomeDir(), ".config", DefaultAppName)
	DefaultGlobalConfigFile = filepath.Join(DefaultConfigPath, "config.yaml")
	DefaultLocalConfigName  = "." + DefaultAppName
	DefaultEnvPrefix        = "CSPT"

	// Project descriptor defaults
	DefaultProjectExtension   = ".csproj"
	DefaultReferenceElement   = "ProjectReference"
	DefaultReferenceAttribute = "Include"
	DefaultGitBinary          = "git"
	DefaultLogLevel           = "info"
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// GetLogger returns a console zerolog logger writing to w at the given level.
// Unknown levels fall back to info.
func GetLogger(w io.Writer, level string, noColor bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: w, NoColor: noColor, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
