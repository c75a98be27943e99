package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/tablecast/internal/cli"
	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render a table once",
	Long: `Reads table text from file, --text or stdin, renders it and writes the image to
--output (stdout when omitted; a terminal is refused).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		output, _ := cmd.Flags().GetString("output")

		if !cmd.Flags().Changed("text") {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			var err error
			if text, err = cli.ReadInput(path, os.Stdin); err != nil {
				return err
			}
		}
		if (output == "" || output == "-") && cli.IsTerminal(os.Stdout) {
			return cli.ErrTerminalOutput
		}

		_, logger, r, err := setup(nil)
		if err != nil {
			return err
		}
		defer r.Close()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		res, err := r.Render(ctx, text)
		if err != nil {
			var failure *domain.Failure
			if errors.As(err, &failure) {
				cli.PrintMarkdown(os.Stderr, failure.Summary())
				return errors.New("render failed")
			}
			return err
		}

		logger.Info("rendered", "strategy", res.Strategy, "bytes", len(res.Image), "failed_attempts", len(res.Attempts))
		if err := cli.WriteImage(output, res.Image, os.Stdout); err != nil {
			return err
		}
		if output != "" && output != "-" {
			fmt.Fprintf(os.Stderr, "wrote %s (%d bytes, %s)\n", output, len(res.Image), res.Strategy)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringP("output", "o", "", "output file (stdout when empty or -)")
	renderCmd.Flags().StringP("text", "t", "", "table text, instead of a file or stdin")
}
