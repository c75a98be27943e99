package main

import (
	"net/http"
	"os"

	"github.com/aretw0/tablecast"
	"github.com/aretw0/tablecast/internal/cli"
	"github.com/aretw0/tablecast/internal/presentation/tui"
	httpadapter "github.com/aretw0/tablecast/pkg/adapters/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Serves POST /v1/render, GET /v1/strategies, /healthz, /metrics and /openapi.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		cfg, logger, r, err := setup(reg)
		if err != nil {
			return err
		}
		defer r.Close()

		handler, err := httpadapter.NewHandler(r,
			httpadapter.WithLogger(logger),
			httpadapter.WithGatherer(reg),
		)
		if err != nil {
			return err
		}

		if cli.IsTerminal(os.Stderr) {
			tui.PrintBanner(os.Stderr, tablecast.Version)
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
			WriteTimeout:      cfg.HTTP.WriteTimeout,
		}
		err = httpadapter.ListenAndServe(ctx, srv, logger)
		if sig := ctx.Signal(); sig != nil {
			logger.Info("server stopped", "signal", sig.String())
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "listen address (default from config, :8080)")
	bind(serveCmd.Flags().Lookup("addr"), cli.KeyHTTPAddr)
}
