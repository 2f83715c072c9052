package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/drawcast/internal/drawday"
)

// GameRequest is the request body for creating or updating a game.
type GameRequest struct {
	Name       string `json:"name"`
	ResultTime string `json:"resultTime"`
}

func (req GameRequest) input() drawday.GameInput {
	return drawday.GameInput{Name: req.Name, ResultTime: req.ResultTime}
}

func handleListGames(games *drawday.Games, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := games.List(r.Context())
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleGetGame(games *drawday.Games, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := games.Get(r.Context(), chi.URLParam(r, "gameID"))
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func handleAdminCreateGame(games *drawday.Games, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		g, err := games.Create(r.Context(), req.input())
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		logger.Info("game created", "game_id", g.ID, "admin", adminFrom(r).Email)
		writeJSON(w, http.StatusCreated, g)
	}
}

func handleAdminUpdateGame(games *drawday.Games, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		g, err := games.Update(r.Context(), chi.URLParam(r, "gameID"), req.input())
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func handleAdminDeleteGame(games *drawday.Games, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "gameID")
		if err := games.Delete(r.Context(), id); err != nil {
			writeDomainError(w, logger, err)
			return
		}
		logger.Info("game deleted", "game_id", id, "admin", adminFrom(r).Email)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
