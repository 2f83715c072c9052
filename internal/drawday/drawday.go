// Package drawday defines the draw-result domain: games, published results,
// and the services that mutate them. Storage is reached only through the
// repository interfaces below.
package drawday

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playperu/drawcast/internal/eventbus"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrGameNotFound     = errors.New("game not found")
	ErrAlreadyPublished = errors.New("result already published for this game day")
	ErrUnauthorized     = errors.New("caller is not privileged")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Msg
}

// RepositoryError wraps an unexpected storage fault. It is surfaced to
// callers untranslated; nothing in this package retries.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository: %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

type Game struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ResultTime string    `json:"resultTime"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Result is the one official outcome of a game on a game day.
type Result struct {
	ID          string    `json:"id"`
	GameID      string    `json:"gameId"`
	GameName    string    `json:"gameName,omitempty"`
	GameDay     string    `json:"gameDay"`
	Value       string    `json:"value"`
	PublishedAt time.Time `json:"publishedAt"`
	PublishedBy string    `json:"publishedBy,omitempty"`
}

type GameRepository interface {
	ListGames(ctx context.Context) ([]Game, error)
	GameByID(ctx context.Context, id string) (Game, error)
	InsertGame(ctx context.Context, g Game) error
	UpdateGame(ctx context.Context, g Game) error
	// DeleteGame removes the game and all of its results.
	DeleteGame(ctx context.Context, id string) error
}

type ResultRepository interface {
	FindResultForGameOnDay(ctx context.Context, gameID, gameDay string) (Result, error)
	// InsertResult must fail with ErrAlreadyPublished when a result for
	// (GameID, GameDay) already exists, atomically with the insert.
	InsertResult(ctx context.Context, r Result) error
	ResultByID(ctx context.Context, id string) (Result, error)
	UpdateResultValue(ctx context.Context, id, value string) (Result, error)
	DeleteResult(ctx context.Context, id string) (Result, error)
	ListResultsForDay(ctx context.Context, gameDay string) ([]Result, error)
	ListResultsPublishedBetween(ctx context.Context, start, end time.Time) ([]Result, error)
}

type Repository interface {
	GameRepository
	ResultRepository
}

// Emitter is the publishing side of the event bus.
type Emitter interface {
	Publish(e eventbus.Event) int
}

// DayCache caches ListResultsForDay. Implementations are best-effort and
// swallow their own errors.
//
// Version returns a token for gameDay that changes on every Invalidate of
// that day and every Purge. Set stores results only while version is still
// current, so a listing read before an invalidation is never cached after
// it. An empty version never matches.
type DayCache interface {
	Get(ctx context.Context, gameDay string) ([]Result, bool)
	Version(ctx context.Context, gameDay string) string
	Set(ctx context.Context, gameDay, version string, results []Result)
	Invalidate(ctx context.Context, gameDay string)
	Purge(ctx context.Context)
}

type noCache struct{}

func (noCache) Get(context.Context, string) ([]Result, bool)  { return nil, false }
func (noCache) Version(context.Context, string) string        { return "" }
func (noCache) Set(context.Context, string, string, []Result) {}
func (noCache) Invalidate(context.Context, string)            {}
func (noCache) Purge(context.Context)                         {}

func orNoCache(c DayCache) DayCache {
	if c == nil {
		return noCache{}
	}
	return c
}

// repoErr passes domain sentinels through and wraps everything else.
func repoErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAlreadyPublished), errors.Is(err, ErrGameNotFound):
		return err
	}
	return &RepositoryError{Op: op, Err: err}
}
