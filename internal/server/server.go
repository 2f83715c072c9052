package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/playperu/drawcast/internal/drawday"
	"github.com/playperu/drawcast/internal/gameday"
	"github.com/playperu/drawcast/internal/handler/health"
	"github.com/playperu/drawcast/internal/metrics"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Logger    *slog.Logger
	Store     Store
	Clock     *gameday.Clock
	Publisher *drawday.Publisher
	Games     *drawday.Games
	Results   *drawday.Results
	Gateway   *Gateway
	Metrics   *metrics.Recorder
	Checks    map[string]health.Checker

	CORSOrigins []string
	SPADir      string

	// Now defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	srv     *http.Server
	gateway *Gateway
	logger  *slog.Logger
}

func New(addr string, d Deps) *Server {
	if d.Now == nil {
		d.Now = time.Now
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(d.Logger))
	r.Use(metricsMiddleware(d.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(corsOptions(d.CORSOrigins)).Handler)

	addRoutes(r, d)

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		gateway: d.Gateway,
		logger:  d.Logger,
	}
}

// corsOptions sends the admin cookie cross-origin only to named origins.
// A wildcard entry allows any origin without credentials.
func corsOptions(origins []string) cors.Options {
	wildcard := slices.Contains(origins, "*")
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: !wildcard,
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown ends open viewer streams first; Shutdown would otherwise wait on
// them until the timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if s.gateway != nil {
		s.gateway.Close()
	}
	return s.srv.Shutdown(ctx)
}
