package drawday

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/playperu/drawcast/internal/eventbus"
	"github.com/playperu/drawcast/internal/gameday"
)

func TestGamesLifecycleEmitsEvents(t *testing.T) {
	repo := newMemRepo()
	events := &captureEmitter{}
	cache := newSpyCache()
	games := NewGames(repo, events, cache, discardLogger())
	games.newID = func() string { return "G1" }
	ctx := context.Background()

	g, err := games.Create(ctx, GameInput{Name: "  Kalyan ", ResultTime: "05:30 PM"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.Name != "Kalyan" {
		t.Errorf("Name = %q, want Kalyan", g.Name)
	}

	if _, err := games.Update(ctx, g.ID, GameInput{Name: "Kalyan Night", ResultTime: "23:15"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := games.Delete(ctx, g.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	want := []eventbus.Event{
		{Kind: eventbus.GameCreated, GameID: "G1", Name: "Kalyan"},
		{Kind: eventbus.GameUpdated, GameID: "G1", Name: "Kalyan Night"},
		{Kind: eventbus.GameDeleted, GameID: "G1"},
	}
	got := events.all()
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if cache.purges != 2 {
		t.Errorf("purges = %d, want 2", cache.purges)
	}
}

func TestGamesValidation(t *testing.T) {
	games := NewGames(newMemRepo(), &captureEmitter{}, nil, discardLogger())
	ctx := context.Background()

	tests := []struct {
		name string
		in   GameInput
	}{
		{"empty name", GameInput{Name: " "}},
		{"bad time", GameInput{Name: "Kalyan", ResultTime: "half past five"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verr *ValidationError
			if _, err := games.Create(ctx, tt.in); !errors.As(err, &verr) {
				t.Errorf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestGamesMissing(t *testing.T) {
	events := &captureEmitter{}
	games := NewGames(newMemRepo(), events, nil, discardLogger())
	ctx := context.Background()

	if _, err := games.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get err = %v, want ErrNotFound", err)
	}
	if _, err := games.Update(ctx, "nope", GameInput{Name: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update err = %v, want ErrNotFound", err)
	}
	if err := games.Delete(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete err = %v, want ErrNotFound", err)
	}
	if n := len(events.all()); n != 0 {
		t.Errorf("emitted %d events for missing games", n)
	}
}

func TestResultsForDayUsesCache(t *testing.T) {
	repo := newMemRepo(Game{ID: "G1", Name: "Kalyan"})
	cache := newSpyCache()
	clock := gameday.MustNew("Asia/Kolkata", 6)
	p, _ := newTestPublisher(repo, cache)
	results := NewResults(clock, repo, cache)
	ctx := context.Background()

	day, _ := clock.ParseDay("2025-12-06")

	empty, err := results.ForDay(ctx, day)
	if err != nil {
		t.Fatalf("ForDay: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("ForDay = %v, want empty non-nil slice", empty)
	}
	if _, ok := cache.Get(ctx, "2025-12-06"); !ok {
		t.Fatal("ForDay did not populate the cache")
	}

	if _, err := p.Publish(ctx, "G1", "07", ist(t, "2025-12-06T20:00")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got, err := results.ForDay(ctx, day)
	if err != nil {
		t.Fatalf("ForDay: %v", err)
	}
	if len(got) != 1 || got[0].Value != "07" {
		t.Errorf("ForDay after publish = %+v, want one result 07", got)
	}
}

func TestResultsForDayDoesNotCacheListingOutdatedByPublish(t *testing.T) {
	base := newMemRepo(Game{ID: "G1", Name: "Kalyan"}, Game{ID: "G2", Name: "Milan"})
	cache := newSpyCache()
	clock := gameday.MustNew("Asia/Kolkata", 6)
	p, _ := newTestPublisher(base, cache)
	ctx := context.Background()
	day, _ := clock.ParseDay("2025-12-06")

	tests := []struct {
		name  string
		write func() error
	}{
		{"publish", func() error {
			_, err := p.Publish(ctx, "G1", "07", ist(t, "2025-12-06T20:00"))
			return err
		}},
		{"game renamed", func() error {
			games := NewGames(base, &captureEmitter{}, cache, discardLogger())
			_, err := games.Update(ctx, "G2", GameInput{Name: "Milan Night"})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache.Invalidate(ctx, day.String())
			repo := &slowListRepo{memRepo: base, during: func() {
				if err := tt.write(); err != nil {
					t.Fatalf("write during read: %v", err)
				}
			}}
			results := NewResults(clock, repo, cache)

			if _, err := results.ForDay(ctx, day); err != nil {
				t.Fatalf("ForDay: %v", err)
			}
			if cached, ok := cache.Get(ctx, day.String()); ok {
				t.Fatalf("listing read before the write was cached: %+v", cached)
			}

			want, _ := base.ListResultsForDay(ctx, day.String())
			got, err := results.ForDay(ctx, day)
			if err != nil {
				t.Fatalf("ForDay: %v", err)
			}
			if len(got) != len(want) || len(got) != 1 {
				t.Errorf("ForDay after write = %+v, want %+v", got, want)
			}
		})
	}
	if cache.skipped != 2 {
		t.Errorf("skipped sets = %d, want 2", cache.skipped)
	}
}

func TestResultsTodayAndHistory(t *testing.T) {
	repo := newMemRepo(Game{ID: "G1", Name: "Kalyan"})
	clock := gameday.MustNew("Asia/Kolkata", 6)
	p, _ := newTestPublisher(repo, nil)
	ctx := context.Background()

	// Published at 2025-12-07 03:00 IST: game day 12-06, calendar day 12-07.
	p.now = func() time.Time { return ist(t, "2025-12-07T03:00") }
	if _, err := p.Publish(ctx, "G1", "07", time.Time{}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	results := NewResults(clock, repo, nil)
	results.now = p.now

	day, today, err := results.Today(ctx)
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if day.String() != "2025-12-06" || len(today) != 1 {
		t.Errorf("Today = %s %+v, want 2025-12-06 with one result", day, today)
	}

	d6, _ := clock.ParseDay("2025-12-06")
	d7, _ := clock.ParseDay("2025-12-07")

	h6, err := results.History(ctx, d6)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(h6) != 0 {
		t.Errorf("History(12-06) = %+v, want none", h6)
	}
	h7, _ := results.History(ctx, d7)
	if len(h7) != 1 {
		t.Errorf("History(12-07) = %+v, want one", h7)
	}
}
