package drawday

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/playperu/drawcast/internal/eventbus"
)

// memRepo is an in-memory Repository. InsertResult enforces the
// (game, day) uniqueness under its lock, like a unique index would.
type memRepo struct {
	mu      sync.Mutex
	games   map[string]Game
	results map[string]Result
	err     error
}

func newMemRepo(games ...Game) *memRepo {
	r := &memRepo{
		games:   make(map[string]Game),
		results: make(map[string]Result),
	}
	for _, g := range games {
		r.games[g.ID] = g
	}
	return r
}

func (r *memRepo) ListGames(context.Context) ([]Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []Game
	for _, g := range r.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRepo) GameByID(_ context.Context, id string) (Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return Game{}, r.err
	}
	g, ok := r.games[id]
	if !ok {
		return Game{}, ErrNotFound
	}
	return g, nil
}

func (r *memRepo) InsertGame(_ context.Context, g Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[g.ID] = g
	return nil
}

func (r *memRepo) UpdateGame(_ context.Context, g Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[g.ID]; !ok {
		return ErrNotFound
	}
	r.games[g.ID] = g
	return nil
}

func (r *memRepo) DeleteGame(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[id]; !ok {
		return ErrNotFound
	}
	delete(r.games, id)
	for rid, res := range r.results {
		if res.GameID == id {
			delete(r.results, rid)
		}
	}
	return nil
}

func (r *memRepo) FindResultForGameOnDay(_ context.Context, gameID, gameDay string) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.results {
		if res.GameID == gameID && res.GameDay == gameDay {
			return res, nil
		}
	}
	return Result{}, ErrNotFound
}

func (r *memRepo) InsertResult(_ context.Context, res Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, existing := range r.results {
		if existing.GameID == res.GameID && existing.GameDay == res.GameDay {
			return ErrAlreadyPublished
		}
	}
	r.results[res.ID] = res
	return nil
}

func (r *memRepo) ResultByID(_ context.Context, id string) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[id]
	if !ok {
		return Result{}, ErrNotFound
	}
	return res, nil
}

func (r *memRepo) UpdateResultValue(_ context.Context, id, value string) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[id]
	if !ok {
		return Result{}, ErrNotFound
	}
	res.Value = value
	r.results[id] = res
	return res, nil
}

func (r *memRepo) DeleteResult(_ context.Context, id string) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[id]
	if !ok {
		return Result{}, ErrNotFound
	}
	delete(r.results, id)
	return res, nil
}

func (r *memRepo) ListResultsForDay(_ context.Context, gameDay string) ([]Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Result
	for _, res := range r.results {
		if res.GameDay == gameDay {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *memRepo) ListResultsPublishedBetween(_ context.Context, start, end time.Time) ([]Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Result
	for _, res := range r.results {
		if !res.PublishedAt.Before(start) && res.PublishedAt.Before(end) {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *memRepo) resultCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

// blindRepo never sees existing results, so only InsertResult can catch a
// duplicate. It models the window between check and insert.
type blindRepo struct{ *memRepo }

func (blindRepo) FindResultForGameOnDay(context.Context, string, string) (Result, error) {
	return Result{}, ErrNotFound
}

type captureEmitter struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (c *captureEmitter) Publish(e eventbus.Event) int {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
	return 1
}

func (c *captureEmitter) all() []eventbus.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]eventbus.Event(nil), c.events...)
}

// spyCache is a versioned in-memory DayCache that records invalidations.
type spyCache struct {
	mu          sync.Mutex
	days        map[string][]Result
	gens        map[string]int
	epoch       int
	invalidated []string
	purges      int
	skipped     int
}

func newSpyCache() *spyCache {
	return &spyCache{days: make(map[string][]Result), gens: make(map[string]int)}
}

func (c *spyCache) Get(_ context.Context, day string) ([]Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.days[day]
	return r, ok
}

func (c *spyCache) Version(_ context.Context, day string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versionLocked(day)
}

func (c *spyCache) versionLocked(day string) string {
	return fmt.Sprintf("%d:%d", c.gens[day], c.epoch)
}

func (c *spyCache) Set(_ context.Context, day, version string, results []Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version != c.versionLocked(day) {
		c.skipped++
		return
	}
	c.days[day] = results
}

func (c *spyCache) Invalidate(_ context.Context, day string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[day]++
	delete(c.days, day)
	c.invalidated = append(c.invalidated, day)
}

func (c *spyCache) Purge(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.days = make(map[string][]Result)
	c.purges++
}

// slowListRepo snapshots ListResultsForDay, runs during once, then returns
// the snapshot, so a write can land between the query and the cache fill.
type slowListRepo struct {
	*memRepo
	during func()
	once   sync.Once
}

func (r *slowListRepo) ListResultsForDay(ctx context.Context, gameDay string) ([]Result, error) {
	results, err := r.memRepo.ListResultsForDay(ctx, gameDay)
	r.once.Do(r.during)
	return results, err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
