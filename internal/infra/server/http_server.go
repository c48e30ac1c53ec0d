package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type HTTPOptions struct {
	Address     string
	CertFile    string
	KeyFile     string
	StopTimeout time.Duration
}

func NewHTTPServer(o HTTPOptions, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              o.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// ServeHTTP serves srv until ctx is done, then shuts it down within
// o.StopTimeout.
func ServeHTTP(ctx context.Context, srv *http.Server, o HTTPOptions, logger *zap.Logger) error {
	lis, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	return serveHTTP(ctx, srv, lis, o, logger)
}

func serveHTTP(ctx context.Context, srv *http.Server, lis net.Listener, o HTTPOptions, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", lis.Addr().String()), zap.Bool("tls", o.CertFile != ""))
		var err error
		if o.CertFile != "" {
			err = srv.ServeTLS(lis, o.CertFile, o.KeyFile)
		} else {
			err = srv.Serve(lis)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := o.StopTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(stopCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}
