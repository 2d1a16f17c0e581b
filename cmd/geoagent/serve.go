package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"geoagent/internal"
	"geoagent/internal/logger"
	"geoagent/internal/mcpserver"
	"geoagent/internal/server"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if addr == "" {
				addr = app.Config.Server.Addr
			}

			srv := server.New(app.Config, app.Agent, app.Pipeline, app.Registry)
			if app.Config.Server.EnableMCP {
				mcpSrv, err := mcpserver.New(app.Registry)
				if err != nil {
					return err
				}
				srv.MountMCP(mcpserver.Handler(mcpSrv))
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}

			httpSrv := &http.Server{
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, syscall.SIGTERM, syscall.SIGINT)

			stopHTTP, errHTTPCh := serveHTTP(httpSrv, ln)
			defer stopHTTP()

			select {
			case err := <-errHTTPCh:
				return err
			case <-shutdown:
				logger.Infof("Shutdown signal received")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides server.addr")
	return cmd
}

func serveHTTP(srv *http.Server, ln net.Listener) (func(), <-chan error) {
	errHTTPCh := make(chan error, 1)
	go func() {
		defer close(errHTTPCh)

		logger.Successf("Listening on http://%s", ln.Addr().String())

		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errHTTPCh <- fmt.Errorf("http server failed: %w", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), internal.DEFAULT_SHUTDOWN_TIMEOUT*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Errorf("HTTP shutdown failed: %v", err)
		}

		<-errHTTPCh
		logger.Infof("HTTP server stopped")
	}, errHTTPCh
}
