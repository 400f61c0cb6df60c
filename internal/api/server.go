package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// StartServer serves handler on port in the background. name only labels
// the log lines ("api", "metrics").
func StartServer(name string, handler http.Handler, port string) *http.Server {
	srv := &http.Server{
		Addr:              net.JoinHostPort("", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("server", name).Str("address", srv.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("server", name).Msg("Failed to start server")
		}
	}()

	return srv
}

// ShutdownServer stops accepting connections and waits up to timeout for
// in-flight requests
func ShutdownServer(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Str("address", srv.Addr).Msg("HTTP server stopped")
	return nil
}
