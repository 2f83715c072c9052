package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/drawcast/internal/drawday"
	"github.com/playperu/drawcast/internal/gameday"
	"github.com/playperu/drawcast/internal/metrics"
)

// PublishResultRequest is the request body for POST /api/results.
type PublishResultRequest struct {
	GameID string `json:"gameId"`
	Value  string `json:"value"`
}

// AmendResultRequest is the request body for PUT /api/admin/results/{resultID}.
type AmendResultRequest struct {
	Value string `json:"value"`
}

// ResultView is a result with its publish instant rendered in the anchor zone.
type ResultView struct {
	drawday.Result
	PublishedDate string `json:"publishedDate"`
	PublishedTime string `json:"publishedTime"`
}

// ResultsResponse is the response for the result listings.
type ResultsResponse struct {
	Day     string       `json:"day"`
	Results []ResultView `json:"results"`
}

func resultView(clock *gameday.Clock, res drawday.Result) ResultView {
	return ResultView{
		Result:        res,
		PublishedDate: clock.FormatDate(res.PublishedAt),
		PublishedTime: clock.FormatTime(res.PublishedAt),
	}
}

func resultViews(clock *gameday.Clock, results []drawday.Result) []ResultView {
	views := make([]ResultView, 0, len(results))
	for _, res := range results {
		views = append(views, resultView(clock, res))
	}
	return views
}

// dayParam parses the named query parameter, defaulting to the current game day.
func dayParam(r *http.Request, clock *gameday.Clock, name string, now func() time.Time) (gameday.Day, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return clock.DayOf(now()), nil
	}
	return clock.ParseDay(raw)
}

func handleResultsForDay(clock *gameday.Clock, results *drawday.Results, logger *slog.Logger, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, err := dayParam(r, clock, "day", now)
		if err != nil {
			writeError(w, http.StatusBadRequest, "day must be YYYY-MM-DD")
			return
		}

		list, err := results.ForDay(r.Context(), day)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, ResultsResponse{Day: day.String(), Results: resultViews(clock, list)})
	}
}

func handleResultsHistory(clock *gameday.Clock, results *drawday.Results, logger *slog.Logger, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, err := dayParam(r, clock, "date", now)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}

		list, err := results.History(r.Context(), day)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, ResultsResponse{Day: day.String(), Results: resultViews(clock, list)})
	}
}

// handlePublishResult publishes for admins only. Anyone may call it; the
// admin session decides the privilege flag.
func handlePublishResult(clock *gameday.Clock, pub *drawday.Publisher, admin AdminStore, rec *metrics.Recorder, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PublishResultRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sess, err := adminFromRequest(r, admin)
		if err != nil && !errors.Is(err, errNoAdminSession) {
			writeDomainError(w, logger, err)
			return
		}
		privileged := err == nil

		res, err := pub.PublishResult(r.Context(), drawday.PublishCommand{
			GameID:     req.GameID,
			Value:      req.Value,
			Privileged: privileged,
			By:         sess.Email,
		})
		rec.PublishOutcome(publishOutcome(err))
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, resultView(clock, res))
	}
}

func publishOutcome(err error) string {
	var verr *drawday.ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, drawday.ErrAlreadyPublished):
		return "already_published"
	case errors.Is(err, drawday.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, drawday.ErrGameNotFound):
		return "game_not_found"
	case errors.As(err, &verr):
		return "invalid"
	default:
		return "error"
	}
}

func handleAdminAmendResult(clock *gameday.Clock, pub *drawday.Publisher, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AmendResultRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := pub.Amend(r.Context(), chi.URLParam(r, "resultID"), req.Value)
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, resultView(clock, res))
	}
}

func handleAdminRetractResult(pub *drawday.Publisher, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pub.Retract(r.Context(), chi.URLParam(r, "resultID")); err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
