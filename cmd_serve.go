package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bargain-backend/controller"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	// Background runs stop with the process, not with the request that started them.
	runCtx, cancelRuns := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelRuns()

	var history controller.HistoryReader
	if a.results != nil {
		history = a.results
	}
	tasks := controller.NewTaskController(runCtx, a.coordinator, history, a.logger.Named("http"))

	server := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           controller.NewRouter(tasks, a.registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
	case <-ctx.Done():
		a.logger.Info("shut down signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown failed", zap.Error(err))
	}

	// Give running comparisons the rest of the shutdown window, then cut them off.
	done := make(chan struct{})
	go func() {
		a.coordinator.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		a.logger.Warn("cancelling unfinished comparisons")
		cancelRuns()
		<-done
	}

	a.logger.Info("shut down gracefully")
	return nil
}
