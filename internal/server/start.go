package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/makerhub/makerhub/internal/websocket"
)

// Start runs the server: the bridge and dispatcher goroutines, the request
// bus subscription, and the HTTP listener. It blocks until an interrupt or
// terminate signal arrives, then shuts everything down in order.
func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.bridge.Run(ctx)

	go func() {
		if err := s.dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("Dispatcher stopped unexpectedly", "error", err)
		}
	}()

	if err := s.bus.Subscribe(ctx, websocket.TopicEngineRequests, s.router.Handle); err != nil {
		slog.Error("Failed to subscribe to request topic", "error", err)
		os.Exit(1)
	}

	if err := s.templates.StartWatcher(ctx); err != nil {
		slog.Error("Failed to start template watcher", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := s.E.Start(s.Cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			s.E.Logger.Fatalf("shutting down the server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down")

	// Stop accepting requests first, then tear down the workers. Responses
	// still queued in the dispatcher are dropped, not flushed.
	cancel()
	s.templates.StopWatcher()
	if err := s.bus.Close(); err != nil {
		slog.Error("Failed to close message bus", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if s.DB != nil {
		s.DB.Close(shutdownCtx)
	}
	if err := s.E.Shutdown(shutdownCtx); err != nil {
		s.E.Logger.Fatal(err)
	}
}
