package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/deezr/internal/server"
	"github.com/desertthunder/deezr/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the catalog proxy until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("%w: port %d", shared.ErrInvalidFlag, cfg.Port)
	}

	logger := shared.WithLogger(r.logger, "component", "server")
	proxy := server.NewDeezerProxy(r.config.Catalog.BaseURL, r.httpClient, logger)
	return server.Serve(ctx, cfg.Addr(), server.NewProxyRouter(proxy, logger), logger)
}
