// Command aircheck is a CLI client for a broadcast-transcript archive: it
// searches transcripts, renders episodes with wall-clock timelines, and
// manages quote-editing sessions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/aircheck-cli/cmd"
	"github.com/otherjamesbrown/aircheck-cli/config"
	"github.com/otherjamesbrown/aircheck-cli/pkg/buildinfo"
)

// Global flags.
var (
	flagServer  string
	flagTimeout time.Duration
	flagOutput  string
	flagDebug   bool
)

var rootCmd = &cobra.Command{
	Use:   "aircheck",
	Short: "Browse and quote a broadcast-transcript archive",
	Long: `aircheck is a client for a broadcast-transcript archive.

It searches archived transcripts, renders episodes with each segment's
wall-clock position in the recording, and manages local quote-editing
sessions that are pushed back to the archive.

Configuration lives in ~/.aircheck/config.yaml and can be overridden with
AIRCHECK_* environment variables or the global flags below.

Getting started:
  aircheck config init
  aircheck auth login
  aircheck search "evening news"
  aircheck episode 42 --term="weather"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		switch c.Name() {
		case "version", "help", "completion":
			return nil
		}
		// Promote changed global flags to environment overrides so every
		// config load below this command sees them.
		if c.Flags().Changed("server") {
			os.Setenv("AIRCHECK_SERVER_URL", flagServer)
		}
		if c.Flags().Changed("timeout") {
			os.Setenv("AIRCHECK_TIMEOUT", flagTimeout.String())
		}
		if c.Flags().Changed("output") {
			os.Setenv("AIRCHECK_OUTPUT_FORMAT", flagOutput)
		}
		if flagDebug {
			os.Setenv("AIRCHECK_DEBUG", "true")
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(c *cobra.Command, args []string) {
		info := buildinfo.Get("aircheck-cli")
		fmt.Printf("aircheck %s\n", info.Version)
		fmt.Printf("  commit: %s\n", info.Commit)
		fmt.Printf("  built:  %s\n", info.BuildTime)
		fmt.Printf("  go:     %s\n", info.GoVersion)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		path, _ := config.ConfigPath()
		fmt.Printf("# %s\n", path)
		fmt.Printf("server_url:    %s\n", cfg.ServerURL)
		fmt.Printf("timeout:       %s\n", cfg.Timeout)
		fmt.Printf("output_format: %s\n", cfg.OutputFormat)
		fmt.Printf("page_size:     %d\n", cfg.PageSize)
		fmt.Printf("search_mode:   %s\n", cfg.SearchMode)
		fmt.Printf("debug:         %t\n", cfg.Debug)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(c *cobra.Command, args []string) error {
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and save it.

Keys: server_url, timeout, output_format, page_size, search_mode, debug`,
	Args: cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		key, value := args[0], args[1]
		switch key {
		case "server_url":
			cfg.ServerURL = value
		case "timeout":
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid timeout: %s", value)
			}
			cfg.Timeout = d
		case "output_format":
			cfg.OutputFormat = config.OutputFormat(value)
		case "page_size":
			var n int
			if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
				return fmt.Errorf("invalid page_size: %s", value)
			}
			cfg.PageSize = n
		case "search_mode":
			cfg.SearchMode = value
		case "debug":
			cfg.Debug = value == "true" || value == "1"
		default:
			return fmt.Errorf("unknown key: %s (see 'aircheck config set --help')", key)
		}

		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.SaveConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("Set %s = %s\n", key, value)
		return nil
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate a shell completion script.

Examples:
  # bash (add to ~/.bashrc)
  source <(aircheck completion bash)

  # zsh
  aircheck completion zsh > "${fpath[1]}/_aircheck"

  # fish
  aircheck completion fish | source`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	RunE: func(c *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "Archive URL (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "Request timeout (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagOutput, "output", "", "Default output format: text, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	rootCmd.AddGroup(
		&cobra.Group{ID: "archive", Title: "Archive Commands:"},
		&cobra.Group{ID: "session", Title: "Quote Session Commands:"},
		&cobra.Group{ID: "setup", Title: "Setup Commands:"},
	)

	searchCmd := cmd.NewSearchCommand(nil)
	searchCmd.GroupID = "archive"
	episodeCmd := cmd.NewEpisodeCommand(nil)
	episodeCmd.GroupID = "archive"
	quoteCmd := cmd.NewQuoteCommand(nil)
	quoteCmd.GroupID = "session"

	cmd.AuthCmd.GroupID = "setup"
	configCmd.GroupID = "setup"

	configCmd.AddCommand(configShowCmd, configInitCmd, configSetCmd)

	rootCmd.AddCommand(searchCmd, episodeCmd, quoteCmd, cmd.AuthCmd, configCmd, versionCmd, completionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
