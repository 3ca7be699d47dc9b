package main

import (
	"context"
	"os/signal"
	"syscall"

	mcpserver "github.com/felixgeelhaar/pencil/internal/mcp"
	"github.com/felixgeelhaar/pencil/internal/player"
	"github.com/spf13/cobra"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve exercise sessions as MCP tools",
		Long: `Serve exercise sessions over the Model Context Protocol. Each pencil_start
call opens a player session; the other tools edit, run, submit and reset the
code of that session. Stdio is used unless --http is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			manager := player.NewManager(opts.cfg.MCP.MaxSessions, a.logger)
			defer manager.Close()

			srv := mcpserver.NewServer(mcpserver.Config{
				Manager:  manager,
				Registry: a.registry,
				Player:   a.playerConfig(),
				Version:  Version,
				Logger:   a.logger,
			})

			if httpAddr != "" {
				a.logger.Info("serving MCP over HTTP", "addr", httpAddr)
				return srv.ServeHTTP(ctx, httpAddr)
			}
			return srv.ServeStdio(ctx)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve over HTTP on this address instead of stdio")
	return cmd
}
