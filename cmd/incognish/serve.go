package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	appservices "github.com/incognish/incognish/internal/app/services"
	"github.com/incognish/incognish/internal/server"
	"github.com/incognish/incognish/internal/server/routes"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	session := appservices.NewRunSession(ctx, a.orchestrator.RunBrokers, a.cfg.Runs.StreamIdleTimeout, a.log)

	srv := server.New(a.log)
	srv.RegisterRouter(routes.NewAPIRoutes(a.tracker))
	srv.RegisterRouter(routes.NewRunRoutes(session, a.tracker))

	g, gCtx := errgroup.WithContext(ctx)
	if a.cfg.Database.LogTiming {
		g.Go(func() error {
			logDBLatencyStats(gCtx, a.log, a.database)
			return nil
		})
	}
	g.Go(func() error {
		addr := fmt.Sprintf("127.0.0.1:%d", a.cfg.Server.Port)
		slog.Info("Starting server", "addr", addr, "environment", a.cfg.Environment)
		if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown server", "error", err)
		}
		return nil
	})

	err = g.Wait()
	if session.InProgress() {
		slog.Info("Waiting for the active run to finish")
	}
	session.Wait()
	return err
}
