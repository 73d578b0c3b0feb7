package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"timelane/internal/capture"
	"timelane/internal/config"
	"timelane/internal/ics"
	"timelane/internal/layout"
	"timelane/internal/render"
	"timelane/internal/source"
	"timelane/internal/store"
)

func onceConfig(t *testing.T, items string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "items.yaml")
	if err := os.WriteFile(path, []byte(items), 0o600); err != nil {
		t.Fatalf("write items: %v", err)
	}
	cfg := &config.Config{Items: []string{path}, CacheDir: filepath.Join(dir, "cache")}
	cfg.Normalize()
	return cfg
}

func TestRunOnceFormats(t *testing.T) {
	t.Parallel()
	items := `
- {id: "1", name: Kickoff, start: "2025-01-28", end: "2025-01-30"}
- {id: "2", name: Build, start: "2025-01-29", end: "2025-02-02"}
`
	tests := []struct {
		format string
		check  func(t *testing.T, out string)
	}{
		{"svg", func(t *testing.T, out string) {
			if !strings.Contains(out, "<svg") || !strings.Contains(out, ">Kickoff</text>") {
				t.Fatalf("unexpected SVG output")
			}
		}},
		{"json", func(t *testing.T, out string) {
			var doc render.Document
			if err := json.Unmarshal([]byte(out), &doc); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(doc.Lanes) != 2 || doc.Axis.TotalDays != 11 {
				t.Fatalf("doc = %+v", doc)
			}
		}},
		{"text", func(t *testing.T, out string) {
			if !strings.Contains(out, "Jan 2025") || !strings.Contains(out, "[Kickoff") {
				t.Fatalf("text output = %q", out)
			}
		}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()
			cfg := onceConfig(t, items)
			out := filepath.Join(t.TempDir(), "out."+tt.format)
			if err := runOnce(context.Background(), cfg, tt.format, out); err != nil {
				t.Fatalf("runOnce() error: %v", err)
			}
			data, err := os.ReadFile(out)
			if err != nil {
				t.Fatalf("read output: %v", err)
			}
			tt.check(t, string(data))
		})
	}
}

func TestRunOnceErrors(t *testing.T) {
	t.Parallel()

	if err := runOnce(context.Background(), onceConfig(t, "[]"), "pdf", "-"); err == nil {
		t.Fatal("expected error for unknown format")
	}

	err := runOnce(context.Background(), onceConfig(t, "[]"), "json", filepath.Join(t.TempDir(), "out.json"))
	if !errors.Is(err, layout.ErrNoEvents) {
		t.Fatalf("empty items error = %v, want ErrNoEvents", err)
	}
}

func TestStartSchedulerRejectsBadSpec(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{RefreshCron: "every now and then"}
	cfg.Normalize()
	if _, err := startScheduler(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

// shots records every preview capture and the state of its context once the
// capture finishes.
type shots struct {
	mu   sync.Mutex
	errs []error
}

func (s *shots) shoot(ctx context.Context, _ capture.Options) error {
	select {
	case <-ctx.Done():
	case <-time.After(50 * time.Millisecond):
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, ctx.Err())
	return ctx.Err()
}

func (s *shots) taken() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

func TestRefreshCapturesOnlyOnChange(t *testing.T) {
	t.Parallel()
	items := `- {id: "1", name: Kickoff, start: "2025-01-28", end: "2025-01-30"}`
	edited := `- {id: "1", name: Kickoff, start: "2025-01-28", end: "2025-02-03"}`

	tests := []struct {
		name     string
		edit     func(t *testing.T, path string)
		captures int
	}{
		{"unchanged", func(*testing.T, string) {}, 1},
		{"edited", func(t *testing.T, path string) {
			if err := os.WriteFile(path, []byte(edited), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
		}, 2},
		{"removed", func(t *testing.T, path string) {
			if err := os.Remove(path); err != nil {
				t.Fatalf("remove: %v", err)
			}
		}, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := onceConfig(t, items)
			loader := source.NewLoader(cfg, ics.NewFetcher(cfg.ICSCacheDir(), nil))
			rec := &shots{}
			snap := &snapshotter{enabled: true, shoot: rec.shoot}
			refresh := newRefresh(context.Background(), loader, store.New(), snap)

			if _, err := refresh(context.Background()); err != nil {
				t.Fatalf("first refresh: %v", err)
			}
			snap.wait()
			tt.edit(t, cfg.Items[0])
			_, _ = refresh(context.Background())
			snap.wait()

			if got := len(rec.taken()); got != tt.captures {
				t.Fatalf("captures = %d, want %d", got, tt.captures)
			}
		})
	}
}

func TestRefreshCaptureOutlivesRequest(t *testing.T) {
	t.Parallel()
	cfg := onceConfig(t, `- {id: "1", name: Kickoff, start: "2025-01-28", end: "2025-01-30"}`)
	loader := source.NewLoader(cfg, ics.NewFetcher(cfg.ICSCacheDir(), nil))
	rec := &shots{}
	snap := &snapshotter{enabled: true, shoot: rec.shoot}
	refresh := newRefresh(context.Background(), loader, store.New(), snap)

	reqCtx, cancel := context.WithCancel(context.Background())
	if _, err := refresh(reqCtx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	cancel()
	snap.wait()

	got := rec.taken()
	if len(got) != 1 || got[0] != nil {
		t.Fatalf("capture context errors = %v, want one uncancelled capture", got)
	}
}
