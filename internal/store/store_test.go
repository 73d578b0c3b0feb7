package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"timelane/internal/model"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func seed() []model.Event {
	return []model.Event{
		{ID: "a", Name: "Alpha", Start: day("2025-01-01"), End: day("2025-01-03"), SourceID: "file:a.yaml"},
		{ID: "b", Name: "Beta", Start: day("2025-01-02"), End: day("2025-01-02"), SourceID: "file:a.yaml"},
	}
}

func TestReplaceAndList(t *testing.T) {
	t.Parallel()
	s := New()
	if s.Revision() != 0 || s.Len() != 0 {
		t.Fatalf("new store: revision=%d len=%d", s.Revision(), s.Len())
	}

	in := seed()
	s.Replace(in)
	in[0].Name = "mutated"

	got := s.List()
	if len(got) != 2 || got[0].Name != "Alpha" || got[1].ID != "b" {
		t.Fatalf("List() = %+v", got)
	}
	got[1].Name = "mutated"
	if ev, _ := s.Get("b"); ev.Name != "Beta" {
		t.Fatalf("List() leaked internal slice")
	}
	if s.Revision() != 1 {
		t.Fatalf("Revision() = %d, want 1", s.Revision())
	}
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ev      model.Event
		wantErr error
	}{
		{
			name: "valid",
			ev:   model.Event{ID: "a", Name: "Alpha 2", Start: day("2025-01-05"), End: day("2025-01-06")},
		},
		{
			name:    "inverted",
			ev:      model.Event{ID: "a", Start: day("2025-01-06"), End: day("2025-01-05")},
			wantErr: model.ErrInvalidInterval,
		},
		{
			name:    "unknown",
			ev:      model.Event{ID: "zzz", Start: day("2025-01-06"), End: day("2025-01-06")},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := New()
			s.Replace(seed())

			got, err := s.Update(tt.ev)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Update() error = %v, want %v", err, tt.wantErr)
				}
				if s.Revision() != 1 {
					t.Fatalf("failed update bumped revision to %d", s.Revision())
				}
				if ev, _ := s.Get("a"); ev.Name != "Alpha" {
					t.Fatalf("failed update changed item: %+v", ev)
				}
				return
			}
			if err != nil {
				t.Fatalf("Update() error: %v", err)
			}
			if got.SourceID != "file:a.yaml" {
				t.Fatalf("SourceID = %q, want kept", got.SourceID)
			}
			stored, _ := s.Get("a")
			if stored.Name != "Alpha 2" || !stored.Start.Equal(day("2025-01-05")) {
				t.Fatalf("stored = %+v", stored)
			}
			if list := s.List(); list[0].ID != "a" {
				t.Fatalf("update moved item: %+v", list)
			}
			if s.Revision() != 2 {
				t.Fatalf("Revision() = %d, want 2", s.Revision())
			}
		})
	}
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()
	s := New()
	s.Replace(seed())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Update(model.Event{ID: "b", Start: day("2025-01-02"), End: day("2025-01-04")})
		}()
		go func() {
			defer wg.Done()
			_ = s.List()
			_ = s.Revision()
		}()
	}
	wg.Wait()
	if s.Revision() != 9 {
		t.Fatalf("Revision() = %d, want 9", s.Revision())
	}
}

func TestSnapshotMatchesRevision(t *testing.T) {
	t.Parallel()
	s := New()
	s.Replace(seed())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			s.Replace(seed()[:1+i%2])
		}
	}()

	// Odd revisions hold two events, even revisions one.
	for i := 0; i < 100; i++ {
		events, rev := s.Snapshot()
		want := 1
		if rev%2 == 1 {
			want = 2
		}
		if len(events) != want {
			t.Fatalf("revision %d has %d events, want %d", rev, len(events), want)
		}
	}
	wg.Wait()
}

func TestReplaceReportsChange(t *testing.T) {
	t.Parallel()

	renamed := seed()
	renamed[1].Name = "Beta 2"
	shifted := seed()
	shifted[0].End = day("2025-01-04")

	tests := []struct {
		name    string
		next    []model.Event
		changed bool
	}{
		{"identical", seed(), false},
		{"renamed", renamed, true},
		{"shifted", shifted, true},
		{"reordered", []model.Event{seed()[1], seed()[0]}, true},
		{"shorter", seed()[:1], true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := New()
			if !s.Replace(seed()) {
				t.Fatal("first Replace() reported no change")
			}
			if got := s.Replace(tt.next); got != tt.changed {
				t.Fatalf("Replace() = %v, want %v", got, tt.changed)
			}
			want := uint64(1)
			if tt.changed {
				want = 2
			}
			if s.Revision() != want {
				t.Fatalf("Revision() = %d, want %d", s.Revision(), want)
			}
		})
	}
}

func TestReplaceEmptyStoreCountsOnce(t *testing.T) {
	t.Parallel()
	s := New()
	if !s.Replace(nil) || s.Revision() != 1 {
		t.Fatalf("first empty Replace: revision %d", s.Revision())
	}
	if s.Replace(nil) || s.Revision() != 1 {
		t.Fatalf("second empty Replace bumped revision to %d", s.Revision())
	}
}
