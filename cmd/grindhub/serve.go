package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"grindhub/pkg/logx"
	"grindhub/pkg/server"
	"grindhub/pkg/session"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.ListenAddr = listen
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.store.Close()

			sweeper := session.NewSweeper(a.store, cfg.Session.IdleTimeout, cfg.Session.SweepSchedule)
			if err := sweeper.Start(); err != nil {
				return err
			}
			defer sweeper.Stop()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var gatherer prometheus.Gatherer
			if a.registry != nil {
				gatherer = a.registry
			}
			err = server.New(cfg.Server, a.engine, a.store, gatherer).ListenAndServe(ctx)
			t := a.usage.Totals()
			logx.NewLogger("grindhub").Info("served %d LLM requests, $%.4f", t.RequestCount, t.TotalCost)
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides server.listen_addr)")
	return cmd
}
