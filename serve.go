package main

import (
	"fmt"

	"menuscout/internal/events"
	"menuscout/internal/server"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var (
		flags    loadFlags
		addr     string
		watchURL string
		watch    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cached menu over HTTP",
		Long: `serve exposes the cached menu to the browser extension and other local
tools. With --watch it also keeps a menu page open, re-captures it as it
changes and accepts refresh requests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if a.cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx := cmd.Context()
			bus := events.NewBus()
			var refresher server.Refresher

			g, ctx := errgroup.WithContext(ctx)
			if watch || watchURL != "" {
				lw, err := openWatch(ctx, a, &flags, normalizeURL(watchURL), bus)
				if err != nil {
					return err
				}
				defer lw.Close()
				refresher = lw.watcher
				g.Go(func() error { return lw.Run(ctx) })
			}

			handler := server.NewHandler(a.cache, bus, refresher, a.cfg.Server.RefreshPerMinute)
			router := server.SetupRouter(a.cfg.Server.AllowedOrigins, handler)
			g.Go(func() error { return server.Serve(ctx, a.cfg.Server.Addr, router) })

			if err := g.Wait(); err != nil {
				return fmt.Errorf("server stopped: %w", err)
			}
			log.Info("server stopped")
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Also watch the menu page of --site (rostics by default)")
	cmd.Flags().StringVar(&watchURL, "watch-url", "", "Also watch this menu page")
	return cmd
}
