package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

type Server interface {
	Serve(listener net.Listener) error
	Shutdown(ctx context.Context) error
}

// RunServer listens on addr and serves until ctx is done, then shuts the
// server down within shutdownTimeout. Serve and shutdown errors go to errChan.
func RunServer(
	ctx context.Context,
	server Server,
	addr string,
	errChan chan<- error,
	wgr *sync.WaitGroup,
	shutdownTimeout time.Duration,
	logger *slog.Logger,
) error {
	return runServer(ctx, server, addr, errChan, wgr, net.Listen, shutdownTimeout, logger)
}

func runServer(
	ctx context.Context,
	server Server,
	addr string,
	errChan chan<- error,
	wgr *sync.WaitGroup,
	listen func(string, string) (net.Listener, error),
	shutdownTimeout time.Duration,
	logger *slog.Logger,
) error {
	listener, err := listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("can't listen tcp addr %s: %w", addr, err)
	}
	if logger != nil {
		logger.Info("http server listening", "addr", listener.Addr().String())
	}

	wgr.Add(1)

	go func() {
		defer wgr.Done()

		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("can't start http server: %w", err)
		}
	}()

	wgr.Add(1)

	go func() {
		defer wgr.Done()

		<-ctx.Done()

		sdCtx := context.Background()
		if shutdownTimeout > 0 {
			var cancel context.CancelFunc
			sdCtx, cancel = context.WithTimeout(sdCtx, shutdownTimeout)
			defer cancel()
		}
		if logger != nil {
			logger.Info("http server shutting down")
		}
		if err := server.Shutdown(sdCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("can't shutdown http server: %w", err)
		}
	}()

	return nil
}
