package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/forevershiningA/memorial/internal/server"
)

// serveCommand creates the serve command, which runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the design rendering HTTP server",
		Long: `Serve starts the HTTP API. Configuration is read from MEMORIAL_* environment
variables; --addr, --assets, --designs and --catalog override them when set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := server.LoadConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Addr = addr
			}
			if flags.Changed("assets") {
				cfg.AssetDir = c.assetDir
			}
			if flags.Changed("designs") {
				cfg.DesignDir = c.designDir
			}
			if flags.Changed("catalog") {
				cfg.Catalog = c.catalogPath
			}
			return c.runServe(cmd.Context(), *cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg server.Config) error {
	srv, err := server.Open(ctx, cfg, c.Logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	printInfo("Listening on %s", StyleLink.Render("http://"+displayAddr(cfg.Addr)))
	return srv.Run(ctx)
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
