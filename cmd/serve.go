package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/solarcmp/internal/server"
)

var (
	srvAddr    string
	srvPreload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the comparison API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.ServerAddress
		if cmd.Flags().Changed("addr") && srvAddr != "" {
			addr = srvAddr
		}
		if srvPreload {
			if _, err := eng.LoadUnifiedDataset(); err != nil {
				return err
			}
		}
		app := server.New(eng, server.Config{HistogramBins: cfg.HistogramBins})

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			log.Info().Msg("shutting down")
			_ = app.Shutdown()
		}()

		log.Info().Str("address", addr).Msg("serving solarcmp API")
		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (overrides server_address)")
	serveCmd.Flags().BoolVar(&srvPreload, "preload", true, "load the dataset before accepting requests")
	rootCmd.AddCommand(serveCmd)
}
