// Package main is the entry point for the sigma CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/flemzord/sigma/internal/core"
	"github.com/flemzord/sigma/pkg/app"
	"github.com/spf13/cobra"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	dataDir    string
	logLevel   string
}

func (g *globalFlags) runParams() (app.RunParams, error) {
	params := app.RunParams{
		ConfigPath: g.configPath,
		DataDir:    g.dataDir,
		Version:    version,
		Commit:     commit,
		Date:       date,
	}
	if g.logLevel != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(g.logLevel)); err != nil {
			return params, fmt.Errorf("invalid --log-level %q: %w", g.logLevel, err)
		}
		params.LogLevel = &lvl
	}
	return params, nil
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "sigma",
		Short:         "A Telegram bot that relays conversations to Gemini",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "Directory for the session database (default $XDG_DATA_HOME/sigma)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")

	root.AddCommand(
		versionCmd(),
		startCmd(flags),
		configCmd(flags),
		initCmd(),
		serviceCmd(flags),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sigma %s (commit: %s, built: %s)\n", version, commit, date)
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, mod := range core.GetModules() {
				fmt.Fprintf(out, "  %s\n", mod.ID)
			}
		},
	}
}

func startCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start sigma with all configured modules",
		RunE: func(_ *cobra.Command, _ []string) error {
			params, err := flags.runParams()
			if err != nil {
				return err
			}
			return app.Run(params)
		},
	}
}
