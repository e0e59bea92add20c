package main

import (
	"context"
	"fmt"

	"menuscout/internal/browser"
	"menuscout/internal/events"
	generic "menuscout/internal/sites/generic"
	"menuscout/internal/watcher"

	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"
)

// liveWatch is an open menu page with a watcher re-extracting it.
type liveWatch struct {
	page    *generic.LivePage
	probe   *browser.Probe
	watcher *watcher.Watcher
}

// openWatch opens target in a browser and wires a watcher to it. bus may be nil.
func openWatch(ctx context.Context, a *app, flags *loadFlags, target string, bus *events.Bus) (*liveWatch, error) {
	if err := flags.validate(); err != nil {
		return nil, err
	}
	site, err := resolveSite(flags.site, target)
	if err != nil {
		return nil, err
	}

	ms := generic.NewMenuScraper(site, browser.Config{Headless: true})
	page, err := ms.Open(ctx, target, flags.options(a.cfg))
	if err != nil {
		return nil, err
	}

	probe, err := page.Probe(a.cfg.Watch.BottomOffset)
	if err != nil {
		page.Close()
		return nil, err
	}

	opts := []watcher.Option{watcher.WithNotifier(page), watcher.WithURL(page.URL())}
	if bus != nil {
		opts = append(opts, watcher.WithBus(bus))
	}

	return &liveWatch{
		page:    page,
		probe:   probe,
		watcher: watcher.New(a.cfg.WatcherConfig(), page.Extract, a.cache, opts...),
	}, nil
}

// Run watches until ctx is done.
func (lw *liveWatch) Run(ctx context.Context) error {
	return lw.watcher.Watch(ctx, lw.probe)
}

func (lw *liveWatch) Close() {
	lw.page.Close()
}

func newWatchCmd() *cobra.Command {
	var (
		flags      loadFlags
		autoScroll bool
	)

	cmd := &cobra.Command{
		Use:   "watch [URL]",
		Short: "Keep a menu page open and re-capture it as more dishes load",
		Long: `watch opens the menu page, captures it once the page has settled and then
re-captures it whenever new dishes are inserted or the page is scrolled to
the bottom. Press Ctrl+C to stop.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if cmd.Flags().Changed("autoscroll") {
				a.cfg.Watch.AutoScroll = autoScroll
			}

			var target string
			if len(args) > 0 {
				target = normalizeURL(args[0])
			}

			ctx := cmd.Context()
			lw, err := openWatch(ctx, a, &flags, target, nil)
			if err != nil {
				return err
			}
			defer lw.Close()

			log.WithField("url", lw.page.URL()).Info("watching menu page, press Ctrl+C to stop")
			if err := lw.Run(ctx); err != nil {
				return fmt.Errorf("failed to watch page: %w", err)
			}

			st := lw.watcher.Status()
			fmt.Printf("Stopped after %d captures, last at %s\n", st.Runs, formatRunTime(st))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&autoScroll, "autoscroll", false, "Scroll the page to the bottom on every poll to load all dishes")
	return cmd
}

func formatRunTime(st watcher.Status) string {
	if st.LastRun.IsZero() {
		return "never"
	}
	return st.LastRun.Format("15:04:05")
}
