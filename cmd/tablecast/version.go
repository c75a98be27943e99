package main

import (
	"fmt"

	"github.com/aretw0/tablecast"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tablecast",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tablecast version %s\n", tablecast.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
