package cli

import (
	"context"

	"github.com/julianstephens/sprout/internal/server"
)

type ServeCmd struct {
	Address string `help:"Listen address. Overrides server.address."`
}

func (c *ServeCmd) Run(ctx *Context) error {
	cfg := ctx.Config.Server
	if c.Address != "" {
		cfg.Address = c.Address
	}

	srv := server.New(cfg, server.Deps{
		Accounts: ctx.Accounts,
		Sessions: ctx.Sessions,
		Journal:  ctx.Journal,
	})
	return srv.Run(context.Background())
}
