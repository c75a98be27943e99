package main

import (
	"fmt"
	"os"

	"github.com/aretw0/tablecast/internal/cli"
	"github.com/spf13/cobra"
)

var settings = cli.NewViper()

var rootCmd = &cobra.Command{
	Use:   "tablecast",
	Short: "tablecast renders match text into table images",
	Long: `tablecast turns team and player lines into a table image by driving an external
table service through a prioritized list of strategies (HTTP endpoints, then a
headless browser).

Settings come from the --config YAML file, flags and TABLECAST_* environment
variables (for example TABLECAST_LOG_LEVEL or TABLECAST_DISCORD_TOKEN).`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "YAML configuration file (defaults are used when empty)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("driver", "", "browser driver for every browser strategy: rod, chromedp or playwright")
	flags.Int("max-sessions", 0, "maximum concurrent browser sessions")
	flags.Bool("trace", false, "log every strategy attempt")

	bind(flags.Lookup("config"), cli.KeyConfig)
	bind(flags.Lookup("log-level"), cli.KeyLogLevel)
	bind(flags.Lookup("log-format"), cli.KeyLogFormat)
	bind(flags.Lookup("driver"), cli.KeyDriver)
	bind(flags.Lookup("max-sessions"), cli.KeyMaxSessions)
	bind(flags.Lookup("trace"), cli.KeyTrace)
}
