package drawday

import (
	"context"
	"time"

	"github.com/playperu/drawcast/internal/gameday"
)

// Results serves read-side queries over published results.
type Results struct {
	clock *gameday.Clock
	repo  ResultRepository
	cache DayCache
	now   func() time.Time
}

func NewResults(clock *gameday.Clock, repo ResultRepository, cache DayCache) *Results {
	return &Results{
		clock: clock,
		repo:  repo,
		cache: orNoCache(cache),
		now:   time.Now,
	}
}

// ForDay lists the results bucketed into day.
func (s *Results) ForDay(ctx context.Context, day gameday.Day) ([]Result, error) {
	key := day.String()
	if cached, ok := s.cache.Get(ctx, key); ok {
		return cached, nil
	}
	// Taken before the read: a publish landing while we query bumps it and
	// the stale listing is not stored.
	version := s.cache.Version(ctx, key)
	results, err := s.repo.ListResultsForDay(ctx, key)
	if err != nil {
		return nil, repoErr("list results for day", err)
	}
	if results == nil {
		results = []Result{}
	}
	s.cache.Set(ctx, key, version, results)
	return results, nil
}

// Today lists the results of the current game day.
func (s *Results) Today(ctx context.Context) (gameday.Day, []Result, error) {
	day := s.clock.DayOf(s.now())
	results, err := s.ForDay(ctx, day)
	return day, results, err
}

// History lists results by when they were published, over the calendar
// day (midnight to midnight in the anchor zone) rather than the game day.
func (s *Results) History(ctx context.Context, day gameday.Day) ([]Result, error) {
	start, end := s.clock.CalendarWindow(day)
	results, err := s.repo.ListResultsPublishedBetween(ctx, start, end)
	if err != nil {
		return nil, repoErr("list results published between", err)
	}
	if results == nil {
		results = []Result{}
	}
	return results, nil
}
