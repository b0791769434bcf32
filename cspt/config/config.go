package config

import (
	"fmt"
	"os"
	"strings"

	internal "github.com/ZanzyTHEbar/csprojtool/cspt"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Project   ProjectConfig   `mapstructure:"project"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Git       GitConfig       `mapstructure:"git"`
	Log       LogConfig       `mapstructure:"log"`
}

// ProjectConfig describes the project descriptor format.
type ProjectConfig struct {
	Extension          string `mapstructure:"extension"`
	ReferenceElement   string `mapstructure:"referenceElement"`
	ReferenceAttribute string `mapstructure:"referenceAttribute"`
}

// DiscoveryConfig tunes the project walk.
type DiscoveryConfig struct {
	Workers          int  `mapstructure:"workers"`
	RespectGitignore bool `mapstructure:"respectGitignore"`
}

// GitConfig stores the version control settings.
type GitConfig struct {
	Binary string `mapstructure:"binary"`
}

// LogConfig stores logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	return &Config{
		Project: ProjectConfig{
			Extension:          internal.DefaultProjectExtension,
			ReferenceElement:   internal.DefaultReferenceElement,
			ReferenceAttribute: internal.DefaultReferenceAttribute,
		},
		Discovery: DiscoveryConfig{RespectGitignore: true},
		Git:       GitConfig{Binary: internal.DefaultGitBinary},
		Log:       LogConfig{Level: internal.DefaultLogLevel},
	}
}

// LoadConfig reads configuration from file or environment variables.
// An empty configPath looks for .cspt.yaml in the working directory, then for
// the user-wide config.yaml.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(internal.DefaultLocalConfigName)
		v.SetConfigType("yaml")
	}

	def := Default()
	v.SetDefault("project.extension", def.Project.Extension)
	v.SetDefault("project.referenceElement", def.Project.ReferenceElement)
	v.SetDefault("project.referenceAttribute", def.Project.ReferenceAttribute)
	v.SetDefault("discovery.workers", def.Discovery.Workers)
	v.SetDefault("discovery.respectGitignore", def.Discovery.RespectGitignore)
	v.SetDefault("git.binary", def.Git.Binary)
	v.SetDefault("log.level", def.Log.Level)

	v.SetEnvPrefix(internal.DefaultEnvPrefix)
	v.AutomaticEnv()
	// project.extension becomes CSPT_PROJECT_EXTENSION
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no local file, fall back to the user-wide one
		if _, statErr := os.Stat(internal.DefaultGlobalConfigFile); statErr == nil {
			v.SetConfigFile(internal.DefaultGlobalConfigFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if !strings.HasPrefix(cfg.Project.Extension, ".") {
		cfg.Project.Extension = "." + cfg.Project.Extension
	}

	return &cfg, nil
}
