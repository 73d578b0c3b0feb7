package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"timelane/internal/capture"
	"timelane/internal/config"
	"timelane/internal/ics"
	"timelane/internal/layout"
	appLog "timelane/internal/log"
	"timelane/internal/render"
	"timelane/internal/source"
	"timelane/internal/store"
	"timelane/internal/web"
)

const (
	watchDebounce   = 500 * time.Millisecond
	shutdownTimeout = 5 * time.Second
)

var formats = []string{"svg", "json", "text"}

// writeLayout renders l to w in the named format.
func writeLayout(w io.Writer, l layout.Layout, format string, style config.StyleConfig) error {
	switch format {
	case "svg":
		return render.SVG(w, l, style)
	case "json":
		return render.JSON(w, l)
	case "text":
		return render.Text(w, l, render.TextOptions{})
	default:
		return fmt.Errorf("unknown format %q (want svg, json or text)", format)
	}
}

// runOnce loads every source, lays the items out and writes one rendering.
// Source failures are logged; the run fails only when nothing loaded.
func runOnce(ctx context.Context, conf *config.Config, format, output string) error {
	if !slices.Contains(formats, format) {
		return fmt.Errorf("unknown format %q (want svg, json or text)", format)
	}

	loader := source.NewLoader(conf, ics.NewFetcher(conf.ICSCacheDir(), nil))
	events, err := loader.Load(ctx)
	if err != nil {
		if len(events) == 0 {
			return err
		}
		appLog.Warn("some sources failed; rendering the rest", "err", err)
	}

	l, err := layout.Compute(events, layout.Options{DayWidth: conf.DayWidth})
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if output != "" && output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := writeLayout(w, l, format, conf.Style); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	appLog.Info("timeline written", "format", format, "output", output, "items", len(events), "lanes", l.LaneCount())
	return nil
}

// serve runs the HTTP server with scheduled and file-triggered refreshes
// until ctx is cancelled.
func serve(ctx context.Context, conf *config.Config) error {
	st := store.New()
	loader := source.NewLoader(conf, ics.NewFetcher(conf.ICSCacheDir(), nil))

	ln, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		return err
	}
	snap := newSnapshotter(conf, ln.Addr().String())

	refresh := newRefresh(ctx, loader, st, snap)

	if _, err := refresh(ctx); err != nil {
		appLog.Error("initial load incomplete", err)
	}

	srv := &http.Server{
		Handler:           web.NewServer(conf, st, refresh).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	c, err := startScheduler(ctx, conf, refresh)
	if err != nil {
		_ = srv.Close()
		return err
	}
	defer c.Stop()

	go func() {
		if err := source.Watch(ctx, conf.FilePaths(), watchDebounce, func() {
			if _, err := refresh(ctx); err != nil {
				appLog.Error("reload after file change incomplete", err)
			}
		}); err != nil {
			appLog.Error("file watch stopped", err)
		}
	}()

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		appLog.Warn("sd_notify failed", "err", err)
	} else if ok {
		appLog.Debug("systemd notified ready")
	}

	select {
	case <-ctx.Done():
		appLog.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	snap.wait()
	return nil
}

// newRefresh returns a reload that captures a new preview whenever the store
// changed. The capture runs on life, not on the caller's context, so it
// outlives the request that triggered it.
func newRefresh(life context.Context, loader *source.Loader, st *store.Store, snap *snapshotter) web.ReloadFunc {
	return func(ctx context.Context) (int, error) {
		before := st.Revision()
		n, err := loader.Refresh(ctx, st)
		if st.Revision() != before {
			snap.trigger(life)
		}
		return n, err
	}
}

// startScheduler runs refresh on conf.RefreshCron in the configured zone.
func startScheduler(ctx context.Context, conf *config.Config, refresh web.ReloadFunc) (*cron.Cron, error) {
	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		loc = time.UTC
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithLocation(loc))
	if _, err := c.AddFunc(conf.RefreshCron, func() {
		if _, err := refresh(ctx); err != nil {
			appLog.Error("scheduled refresh incomplete", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", conf.RefreshCron, err)
	}
	c.Start()
	appLog.Info("refresh scheduled", "cron", conf.RefreshCron, "timezone", loc.String())
	return c, nil
}

// snapshotter captures the PNG preview in the background. Triggers while a
// capture is running are dropped.
type snapshotter struct {
	enabled bool
	opts    capture.Options
	shoot   func(context.Context, capture.Options) error
	running sync.Mutex
	wg      sync.WaitGroup
}

func newSnapshotter(conf *config.Config, addr string) *snapshotter {
	u := url.URL{Scheme: "http", Host: addr, Path: "/timeline.svg"}
	if ba := conf.BasicAuth; ba != nil && ba.Username != "" && ba.Password != "" {
		u.User = url.UserPassword(ba.Username, ba.Password)
	}
	return &snapshotter{
		enabled: conf.Capture.Enabled,
		shoot:   capture.TimelinePNG,
		opts: capture.Options{
			URL:        u.String(),
			OutputPath: conf.PreviewPath(),
			Width:      conf.Capture.Width,
			Height:     conf.Capture.Height,
		},
	}
}

func (s *snapshotter) trigger(ctx context.Context) {
	if !s.enabled || !s.running.TryLock() {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Unlock()
		start := time.Now()
		if err := s.shoot(ctx, s.opts); err != nil {
			appLog.Error("preview capture failed", err)
			return
		}
		appLog.Info("preview captured", "path", s.opts.OutputPath, "took", time.Since(start).String())
	}()
}

func (s *snapshotter) wait() { s.wg.Wait() }
