package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/tablecast/internal/cli"
	"github.com/aretw0/tablecast/pkg/config"
	"github.com/spf13/cobra"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the configured strategies in attempt order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig(settings)
		if err != nil {
			return err
		}
		cli.PrintMarkdown(os.Stdout, strategyTable(cfg))
		return nil
	},
}

func strategyTable(cfg config.Config) string {
	var b strings.Builder
	b.WriteString("| # | Name | Type | Timeout | Target |\n|---|---|---|---|---|\n")
	for i, s := range cfg.Strategies {
		target := ""
		switch s.Type {
		case config.TypeHTTP:
			target = fmt.Sprintf("%s (%d candidates)", s.HTTP.BaseURL, len(s.HTTP.Candidates))
		case config.TypeBrowser:
			target = fmt.Sprintf("%s via %s", s.Browser.URL, s.Driver)
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n", i+1, s.Name, s.Type, s.Timeout, target)
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
