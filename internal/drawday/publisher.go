package drawday

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/drawcast/internal/eventbus"
	"github.com/playperu/drawcast/internal/gameday"
)

const maxValueLen = 8

// PublishCommand is an inbound request to publish a result. Privileged is
// decided by the caller's auth layer; this package only branches on it.
type PublishCommand struct {
	GameID     string
	Value      string
	Privileged bool
	By         string
	AsOf       time.Time
}

// Publisher is the only write path that creates results.
type Publisher struct {
	clock  *gameday.Clock
	repo   Repository
	events Emitter
	cache  DayCache
	logger *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewPublisher(clock *gameday.Clock, repo Repository, events Emitter, cache DayCache, logger *slog.Logger) *Publisher {
	return &Publisher{
		clock:  clock,
		repo:   repo,
		events: events,
		cache:  orNoCache(cache),
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// PublishResult checks the caller's privilege and then publishes.
func (p *Publisher) PublishResult(ctx context.Context, cmd PublishCommand) (Result, error) {
	if !cmd.Privileged {
		return Result{}, ErrUnauthorized
	}
	return p.publish(ctx, cmd.GameID, cmd.Value, cmd.By, cmd.AsOf)
}

// Publish records value as the result of gameID for the game day containing
// asOf (now when zero) and emits ResultPosted. A second publish for the same
// game and day fails with ErrAlreadyPublished.
func (p *Publisher) Publish(ctx context.Context, gameID, value string, asOf time.Time) (Result, error) {
	return p.publish(ctx, gameID, value, "", asOf)
}

func (p *Publisher) publish(ctx context.Context, gameID, value, by string, asOf time.Time) (Result, error) {
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return Result{}, &ValidationError{Field: "gameId", Msg: "is required"}
	}
	value, err := normalizeValue(value)
	if err != nil {
		return Result{}, err
	}
	if asOf.IsZero() {
		asOf = p.now()
	}

	day := p.clock.DayOf(asOf)

	game, err := p.repo.GameByID(ctx, gameID)
	if errors.Is(err, ErrNotFound) {
		return Result{}, ErrGameNotFound
	}
	if err != nil {
		return Result{}, repoErr("get game", err)
	}

	_, err = p.repo.FindResultForGameOnDay(ctx, gameID, day.String())
	switch {
	case err == nil:
		return Result{}, ErrAlreadyPublished
	case !errors.Is(err, ErrNotFound):
		return Result{}, repoErr("find result", err)
	}

	r := Result{
		ID:          p.newID(),
		GameID:      game.ID,
		GameName:    game.Name,
		GameDay:     day.String(),
		Value:       value,
		PublishedAt: p.now().UTC(),
		PublishedBy: by,
	}
	// The unique index decides races between concurrent publishers.
	if err := p.repo.InsertResult(ctx, r); err != nil {
		return Result{}, repoErr("insert result", err)
	}
	p.cache.Invalidate(ctx, r.GameDay)

	p.events.Publish(eventbus.Event{
		Kind:    eventbus.ResultPosted,
		GameID:  r.GameID,
		Value:   r.Value,
		GameDay: r.GameDay,
	})

	p.logger.Info("result published",
		"game_id", r.GameID,
		"game_day", r.GameDay,
		"result_id", r.ID,
	)
	return r, nil
}

// Amend corrects the value of an existing result. No event is emitted.
func (p *Publisher) Amend(ctx context.Context, resultID, newValue string) (Result, error) {
	value, err := normalizeValue(newValue)
	if err != nil {
		return Result{}, err
	}
	r, err := p.repo.UpdateResultValue(ctx, resultID, value)
	if err != nil {
		return Result{}, repoErr("update result", err)
	}
	p.cache.Invalidate(ctx, r.GameDay)

	p.logger.Info("result amended", "result_id", r.ID, "game_id", r.GameID, "game_day", r.GameDay)
	return r, nil
}

// Retract deletes a result. No event is emitted.
func (p *Publisher) Retract(ctx context.Context, resultID string) error {
	r, err := p.repo.DeleteResult(ctx, resultID)
	if err != nil {
		return repoErr("delete result", err)
	}
	p.cache.Invalidate(ctx, r.GameDay)

	p.logger.Info("result retracted", "result_id", r.ID, "game_id", r.GameID, "game_day", r.GameDay)
	return nil
}

func normalizeValue(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", &ValidationError{Field: "value", Msg: "is required"}
	}
	if len(v) > maxValueLen {
		return "", &ValidationError{Field: "value", Msg: "is too long"}
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return "", &ValidationError{Field: "value", Msg: "must contain only digits"}
		}
	}
	return v, nil
}
