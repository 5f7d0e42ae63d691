package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Run starts every component and blocks until ctx is canceled or a fatal
// error occurs.
func (a *App) Run(ctx context.Context) error {
	if err := a.Session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord gateway: %w", err)
	}
	a.Logger.InfoContext(ctx, "Discord gateway connected",
		slog.String("guild_id", a.Config.Discord.GuildID),
	)

	if err := a.Queue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start queue: %w", err)
	}

	errCh := make(chan error, 2)

	go func() {
		a.Logger.InfoContext(ctx, "HTTP projection listening",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server failed: %w", err)
		}
	}()

	go func() {
		if err := a.watermillRouter.Run(ctx); err != nil {
			errCh <- fmt.Errorf("message router failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.Logger.Info("Shutdown signal received")
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops everything in reverse start order: stop accepting new work, let
// the queue drain, flush what the counter still holds, then drop connections.
func (a *App) Close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("HTTP server shutdown failed", slog.Any("error", err))
	}

	if err := a.Queue.Stop(shutdownCtx); err != nil {
		a.Logger.Error("Queue shutdown failed", slog.Any("error", err))
	}

	if err := a.Session.Close(); err != nil {
		a.Logger.Error("Discord session close failed", slog.Any("error", err))
	}

	// Counts buffered since the last flush would be lost with the process.
	if _, err := a.Service.Flush(shutdownCtx); err != nil {
		a.Logger.Error("Final flush failed", slog.Any("error", err))
	}

	if err := a.watermillRouter.Close(); err != nil {
		a.Logger.Error("Message router close failed", slog.Any("error", err))
	}
	if err := a.Bus.Close(); err != nil {
		a.Logger.Error("Event bus close failed", slog.Any("error", err))
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("Database close failed", slog.Any("error", err))
	}

	a.Logger.Info("Application shut down gracefully")
}
