package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"doc-triage/internal/api"
	"doc-triage/internal/mcptool"
)

const version = "0.3.0"

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the triage HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			db, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			var history api.History
			if db != nil {
				defer db.Close()
				history = db
			}

			srv := &http.Server{
				Addr:              a.cfg.Server.Addr,
				Handler:           api.NewServer(a.factory(db), a.stats, history, a.log, a.cfg.Server),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("listening", "addr", srv.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			a.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the triage_documents tool over MCP stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
			}

			server := mcp.NewServer(&mcp.Implementation{Name: "doc-triage", Version: version}, nil)
			mcptool.NewTriager(a.factory(db), nil).Register(server)

			a.log.Info("serving mcp over stdio")
			return server.Run(ctx, &mcp.StdioTransport{})
		},
	}
}
