package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/healthlens-cli/internal/server"
	"github.com/spf13/cobra"
)

var (
	srvAddr string
	srvBins int
)

var serveCmd = &cobra.Command{
	Use:   "serve [file]",
	Short: "Serve the report page, charts, and JSON API over HTTP",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(args)
		if err != nil {
			return err
		}
		// Fail fast on a bad source instead of on the first request.
		if _, err := s.Table(); err != nil {
			return err
		}
		params, err := runParams("", srvBins)
		if err != nil {
			return err
		}
		addr := srvAddr
		if addr == "" {
			addr = cfg.ListenAddr
		}
		if addr == "" {
			addr = "127.0.0.1:8080"
		}
		srv := server.New(s, server.Options{DefaultMetric: params.Metric, Bins: params.Bins, HTML: htmlOptions()})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "%s Serving %s on http://%s (Ctrl+C to stop)\n", okMark("✓"), s.Path(), addr)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (default from listen_addr)")
	serveCmd.Flags().IntVar(&srvBins, "bins", 0, "histogram bins, 2-50")
}
