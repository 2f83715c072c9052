package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/playperu/drawcast/internal/database"
	"github.com/playperu/drawcast/internal/drawday"
	"github.com/playperu/drawcast/internal/eventbus"
	"github.com/playperu/drawcast/internal/gameday"
	"github.com/playperu/drawcast/internal/handler/health"
	"github.com/playperu/drawcast/internal/metrics"
	"github.com/playperu/drawcast/internal/migrations"
)

const (
	testAdminEmail    = "admin@drawcast.local"
	testAdminPassword = "changeme"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestStore opens a migrated in-memory database with one admin.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := migrations.RunContext(ctx, db); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	store := NewSQLiteStore(db)
	if _, err := store.EnsureAdmin(ctx, testAdminEmail, testAdminPassword); err != nil {
		t.Fatalf("seeding admin: %v", err)
	}
	return store
}

type testEnv struct {
	srv     *httptest.Server
	store   *SQLiteStore
	bus     *eventbus.Bus
	gateway *Gateway
	games   *drawday.Games
	metrics *metrics.Recorder
	clock   *gameday.Clock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := discardLogger()
	store := setupTestStore(t)
	clock := gameday.MustNew("Asia/Kolkata", 6)
	rec := metrics.NewRecorder()
	bus := eventbus.New()
	broker := NewBroker(bus, rec)

	games := drawday.NewGames(store, broker, nil, logger)
	gw := NewGateway(bus, logger, rec, time.Hour)

	s := New(":0", Deps{
		Logger:      logger,
		Store:       store,
		Clock:       clock,
		Publisher:   drawday.NewPublisher(clock, store, broker, nil, logger),
		Games:       games,
		Results:     drawday.NewResults(clock, store, nil),
		Gateway:     gw,
		Metrics:     rec,
		Checks:      map[string]health.Checker{"sqlite": store},
		CORSOrigins: []string{"*"},
	})

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		gw.Close()
		srv.Close()
	})

	return &testEnv{srv: srv, store: store, bus: bus, gateway: gw, games: games, metrics: rec, clock: clock}
}

// client returns an HTTP client with its own cookie jar.
func (e *testEnv) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

// adminClient returns a client already logged in as the seeded admin.
func (e *testEnv) adminClient(t *testing.T) *http.Client {
	t.Helper()
	c := e.client(t)
	resp := e.do(t, c, http.MethodPost, "/api/admin/login", AdminLoginRequest{Email: testAdminEmail, Password: testAdminPassword})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d", resp.StatusCode)
	}
	return c
}

func (e *testEnv) do(t *testing.T, c *http.Client, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func (e *testEnv) createGame(t *testing.T, name string) drawday.Game {
	t.Helper()
	g, err := e.games.Create(context.Background(), drawday.GameInput{Name: name, ResultTime: "05:30 PM"})
	if err != nil {
		t.Fatalf("creating game: %v", err)
	}
	return g
}
