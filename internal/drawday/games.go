package drawday

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/drawcast/internal/eventbus"
)

// GameInput is the editable part of a game.
type GameInput struct {
	Name       string `json:"name"`
	ResultTime string `json:"resultTime"`
}

func (in *GameInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.ResultTime = strings.TrimSpace(in.ResultTime)
	if in.Name == "" {
		return &ValidationError{Field: "name", Msg: "is required"}
	}
	if in.ResultTime == "" {
		return nil
	}
	for _, layout := range []string{"03:04 PM", "15:04"} {
		if _, err := time.Parse(layout, in.ResultTime); err == nil {
			return nil
		}
	}
	return &ValidationError{Field: "resultTime", Msg: `must look like "05:30 PM" or "17:30"`}
}

// Games manages the game catalogue and announces every change on the bus.
type Games struct {
	repo   GameRepository
	events Emitter
	cache  DayCache
	logger *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewGames(repo GameRepository, events Emitter, cache DayCache, logger *slog.Logger) *Games {
	return &Games{
		repo:   repo,
		events: events,
		cache:  orNoCache(cache),
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (s *Games) List(ctx context.Context) ([]Game, error) {
	games, err := s.repo.ListGames(ctx)
	return games, repoErr("list games", err)
}

func (s *Games) Get(ctx context.Context, id string) (Game, error) {
	g, err := s.repo.GameByID(ctx, id)
	return g, repoErr("get game", err)
}

func (s *Games) Create(ctx context.Context, in GameInput) (Game, error) {
	if err := in.validate(); err != nil {
		return Game{}, err
	}
	now := s.now().UTC()
	g := Game{
		ID:         s.newID(),
		Name:       in.Name,
		ResultTime: in.ResultTime,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertGame(ctx, g); err != nil {
		return Game{}, repoErr("insert game", err)
	}

	s.events.Publish(eventbus.Event{Kind: eventbus.GameCreated, GameID: g.ID, Name: g.Name})
	s.logger.Info("game created", "game_id", g.ID, "name", g.Name)
	return g, nil
}

func (s *Games) Update(ctx context.Context, id string, in GameInput) (Game, error) {
	if err := in.validate(); err != nil {
		return Game{}, err
	}
	g, err := s.repo.GameByID(ctx, id)
	if err != nil {
		return Game{}, repoErr("get game", err)
	}
	g.Name = in.Name
	g.ResultTime = in.ResultTime
	g.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateGame(ctx, g); err != nil {
		return Game{}, repoErr("update game", err)
	}
	// Cached result rows carry the game name.
	s.cache.Purge(ctx)

	s.events.Publish(eventbus.Event{Kind: eventbus.GameUpdated, GameID: g.ID, Name: g.Name})
	s.logger.Info("game updated", "game_id", g.ID, "name", g.Name)
	return g, nil
}

func (s *Games) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteGame(ctx, id); err != nil {
		return repoErr("delete game", err)
	}
	s.cache.Purge(ctx)

	s.events.Publish(eventbus.Event{Kind: eventbus.GameDeleted, GameID: id})
	s.logger.Info("game deleted", "game_id", id)
	return nil
}
