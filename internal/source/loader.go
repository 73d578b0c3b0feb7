// Package source gathers timeline items from the configured files and
// calendar subscriptions.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"timelane/internal/config"
	"timelane/internal/ics"
	appLog "timelane/internal/log"
	"timelane/internal/model"
	"timelane/internal/store"
)

// ErrNothingLoaded is returned by Refresh when every source failed and the
// store was left as it was.
var ErrNothingLoaded = errors.New("no source could be loaded")

// Loader reads every configured source into one event set.
type Loader struct {
	cfg     *config.Config
	fetcher *ics.Fetcher
	loc     *time.Location
	now     func() time.Time
}

// NewLoader builds a Loader. The ICS fetcher may be nil when no ICS
// sources are configured.
func NewLoader(cfg *config.Config, fetcher *ics.Fetcher) *Loader {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; using UTC", err, "name", cfg.Timezone)
		loc = time.UTC
	}
	return &Loader{cfg: cfg, fetcher: fetcher, loc: loc, now: time.Now}
}

// Load reads all sources. A failing source is logged and skipped; its
// error is part of the joined error returned next to whatever loaded.
// Events with an ID already seen are dropped.
func (l *Loader) Load(ctx context.Context) ([]model.Event, error) {
	var (
		all  []model.Event
		errs []error
	)
	add := func(name string, events []model.Event, err error) {
		if err != nil {
			appLog.Error("source load failed", err, "source", name, "loaded", len(events))
			errs = append(errs, fmt.Errorf("source %s: %w", name, err))
		}
		all = append(all, events...)
	}

	for _, path := range l.cfg.Items {
		events, err := LoadItemsFile(path)
		add(path, events, err)
	}
	for _, src := range l.cfg.CSV {
		events, err := LoadCSV(src)
		add(src.Path, events, err)
	}
	if len(l.cfg.ICS) > 0 {
		events, err := l.loadICS(ctx)
		add("ics", events, err)
	}

	events := dedupe(all)
	appLog.Info("sources loaded", "events", len(events), "failed", len(errs))
	return events, errors.Join(errs...)
}

// Refresh loads all sources into st and returns the number of items now
// stored. When loading failed and produced nothing, st keeps its items and
// the error wraps ErrNothingLoaded.
func (l *Loader) Refresh(ctx context.Context, st *store.Store) (int, error) {
	events, err := l.Load(ctx)
	if err != nil && len(events) == 0 {
		return st.Len(), fmt.Errorf("%w: %w", ErrNothingLoaded, err)
	}
	if !st.Replace(events) {
		appLog.Debug("sources unchanged", "events", len(events))
	}
	return len(events), err
}

func (l *Loader) loadICS(ctx context.Context) ([]model.Event, error) {
	if l.fetcher == nil {
		return nil, errors.New("no ICS fetcher configured")
	}

	sources := make([]ics.Source, 0, len(l.cfg.ICS))
	for _, c := range l.cfg.ICS {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			id = c.Name
		}
		if id == "" {
			id = c.URL
		}
		sources = append(sources, ics.Source{ID: id, URL: c.URL})
	}

	results, fetchErr := l.fetcher.FetchAll(ctx, sources)
	errs := []error{fetchErr}

	var parsed []ics.ParsedEvent
	for _, res := range results {
		events, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, fmt.Errorf("ics source %s: %w", res.Source.ID, err))
			continue
		}
		parsed = append(parsed, events...)
	}

	window := time.Duration(l.cfg.ICSWindowDays) * 24 * time.Hour
	now := l.now()
	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		RangeStart: now.Add(-window),
		RangeEnd:   now.Add(window),
	})
	if err != nil {
		return nil, errors.Join(append(errs, err)...)
	}
	return ics.Events(expanded.Occurrences, l.loc), errors.Join(errs...)
}

func dedupe(events []model.Event) []model.Event {
	seen := make(map[string]struct{}, len(events))
	out := events[:0]
	for _, ev := range events {
		if _, dup := seen[ev.ID]; dup {
			appLog.Warn("duplicate item id dropped", "id", ev.ID, "source", ev.SourceID)
			continue
		}
		seen[ev.ID] = struct{}{}
		out = append(out, ev)
	}
	return out
}
