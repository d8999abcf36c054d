package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drydock-sh/drydock/internal/config"
	"github.com/drydock-sh/drydock/internal/logger"
)

var (
	debugMode             bool
	quietMode             bool
	version, commit, date string
)

// SetVersionInfo sets version information from ldflags
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
}

var rootCmd = &cobra.Command{
	Use:   "drydock",
	Short: "Protocol-layer tooling for Claude Code agent sessions",
	Long: `Drydock consumes the stream-json output of Claude Code sessions:
it decodes events, answers tool-approval requests, extracts orchestration
plans from assistant text, and indexes past sessions for search.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initLogging)
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "Reduce logging to info level only")
}

func initLogging() {
	if quietMode {
		logger.SetDebug(false)
	} else if debugMode {
		logger.SetDebug(true)
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(versionTemplate())
	return rootCmd.Execute()
}

func versionTemplate() string {
	if commit != "none" && commit != "" {
		return fmt.Sprintf("drydock %s\n  commit: %s\n  built:  %s\n", version, commit, date)
	}
	return fmt.Sprintf("drydock %s\n", version)
}

// loadConfig resolves and loads the user config, merged with defaults.
func loadConfig() (*config.Config, error) {
	fp, err := config.Path()
	if err != nil {
		return nil, fmt.Errorf("error locating config: %w", err)
	}
	cfg, err := config.LoadAndMerge(fp)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, nil
}
