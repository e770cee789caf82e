package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"scoreview/internal/gameserver"
	"scoreview/internal/logging"
	"scoreview/internal/server"
	"scoreview/internal/storage"
	"scoreview/internal/view"
	"scoreview/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the result views over HTTP",
	Long:  `Serve the result pages, their JSON API and the websocket sessions. Public views are refreshed in the background and every fetched payload is kept as a snapshot.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.ListenAddr = addr
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		client := gameserver.New(cfg.Gameserver, gameserver.WithLogger(logging.Component(logger, "gameserver")))
		recorder := storage.NewRecorder(client, store, endpointViews(cfg), logging.Component(logger, "storage"))

		opts := viewOptions(cfg)
		watcher := watch.New(recorder, cfg.PushInterval(), logging.Component(logger, "watch"),
			watch.Target{Kind: view.KindScoreboard, Endpoint: cfg.Gameserver.Endpoints.Scoreboard, View: view.NewScoreboardView(opts.StatusPath)},
			watch.Target{Kind: view.KindStatus, Endpoint: cfg.Gameserver.Endpoints.Status, View: view.NewStatusView(opts.Density)},
		)
		watcher.Start()
		defer watcher.Stop()

		srv, err := server.New(server.Options{
			Config:  cfg,
			Fetcher: recorder,
			Watcher: watcher,
			Store:   store,
			Logger:  logging.Component(logger, "server"),
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown")
			}
		}()

		logger.Info().
			Str("gameserver", client.BaseURL()).
			Dur("interval", watcher.Interval()).
			Str("storage", cfg.Storage.Driver).
			Msg("scoreview starting")
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "address for the web server (overrides listen_addr)")
	rootCmd.AddCommand(serveCmd)
}
