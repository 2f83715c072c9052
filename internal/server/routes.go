package server

import (
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/drawcast/internal/handler/health"
)

func addRoutes(r chi.Router, d Deps) {
	logger := d.Logger

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Drawcast API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, d.Checks).Routes())
	r.Handle("/metrics", d.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/clock", handleClock(d.Clock, d.Now))
		r.Get("/games", handleListGames(d.Games, logger))
		r.Get("/games/{gameID}", handleGetGame(d.Games, logger))
		r.Get("/results", handleResultsForDay(d.Clock, d.Results, logger, d.Now))
		r.Get("/results/history", handleResultsHistory(d.Clock, d.Results, logger, d.Now))
		r.Post("/results", handlePublishResult(d.Clock, d.Publisher, d.Store, d.Metrics, logger))

		// Viewer streams.
		r.Get("/events", handleEvents(d.Gateway, logger))
		r.Get("/events/ws", handleEventsWS(d.Gateway, logger))

		r.Post("/admin/login", handleAdminLogin(d.Store, logger))
		r.Post("/admin/logout", handleAdminLogout(d.Store, logger))
		r.Get("/admin/me", handleAdminMe(d.Store))

		r.Group(func(r chi.Router) {
			r.Use(adminAuthMiddleware(d.Store))
			r.Post("/admin/games", handleAdminCreateGame(d.Games, logger))
			r.Put("/admin/games/{gameID}", handleAdminUpdateGame(d.Games, logger))
			r.Delete("/admin/games/{gameID}", handleAdminDeleteGame(d.Games, logger))
			r.Put("/admin/results/{resultID}", handleAdminAmendResult(d.Clock, d.Publisher, logger))
			r.Delete("/admin/results/{resultID}", handleAdminRetractResult(d.Publisher, logger))
		})
	})

	if d.SPADir != "" {
		if info, err := os.Stat(d.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", d.SPADir)
			r.NotFound(handleSPA(d.SPADir))
		}
	}
}
