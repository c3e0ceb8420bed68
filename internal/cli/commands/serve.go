package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/prisma-engine/internal/server"
)

func newServeCommand(g *globals) *cobra.Command {
	var addr string
	var push bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve queries over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := g.boot(ctx, cmd)
			if err != nil {
				return err
			}
			defer c.Close(context.WithoutCancel(ctx))
			if push {
				if err := c.Push(ctx); err != nil {
					return err
				}
			}

			cfg := c.Config()
			if addr == "" {
				addr = cfg.Server.Addr
			}
			h := server.New(c.Executor(), c.Schema(),
				server.WithTimeout(cfg.Server.Timeout),
				server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
				server.WithLogger(c.Logger()))
			return server.ListenAndServe(ctx, addr, h, c.Logger())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :4466)")
	cmd.Flags().BoolVar(&push, "push", false, "Create the schema's tables before serving")
	return cmd
}
