package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/drawcast/internal/drawday"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse maps each dependency to its check status.
type HealthResponse map[string]struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
}

type dayQuery struct {
	Day string `query:"day" description:"Game day as YYYY-MM-DD. Defaults to the current game day."`
}

type dateQuery struct {
	Date string `query:"date" description:"Calendar date as YYYY-MM-DD. Defaults to the current game day."`
}

type gamePath struct {
	GameID string `path:"gameID"`
}

type gameUpdate struct {
	GameID     string `path:"gameID"`
	Name       string `json:"name"`
	ResultTime string `json:"resultTime"`
}

type resultPath struct {
	ResultID string `path:"resultID"`
}

type resultAmend struct {
	ResultID string `path:"resultID"`
	Value    string `json:"value"`
}

type operation struct {
	method, path, summary, description string
	req                                any
	resp                               []response
}

type response struct {
	body        any
	status      int
	contentType string
}

func respOK(body any) response { return response{body: body, status: http.StatusOK} }

func respCreated(body any) response { return response{body: body, status: http.StatusCreated} }

func respErr(status int) response { return response{body: ErrorResponse{}, status: status} }

func respStream(contentType string) response {
	return response{status: http.StatusOK, contentType: contentType}
}

var operations = []operation{
	{http.MethodGet, "/healthz", "Health check", "Returns the status of sqlite and, when configured, redis.", nil,
		[]response{respOK(HealthResponse{}), {body: HealthResponse{}, status: http.StatusServiceUnavailable}}},

	{http.MethodGet, "/api/clock", "Game-day clock", "Current game day, its publish window and calendar window.", nil,
		[]response{respOK(ClockResponse{})}},

	{http.MethodGet, "/api/games", "List games", "Returns every game ordered by name.", nil,
		[]response{respOK([]drawday.Game{})}},
	{http.MethodGet, "/api/games/{gameID}", "Get game", "", gamePath{},
		[]response{respOK(drawday.Game{}), respErr(http.StatusNotFound)}},

	{http.MethodGet, "/api/results", "Results for a game day", "Results published for the given game day.", dayQuery{},
		[]response{respOK(ResultsResponse{}), respErr(http.StatusBadRequest)}},
	{http.MethodGet, "/api/results/history", "Results by calendar date", "Results whose publish instant falls on the calendar date, midnight to midnight in the anchor zone.", dateQuery{},
		[]response{respOK(ResultsResponse{}), respErr(http.StatusBadRequest)}},
	{http.MethodPost, "/api/results", "Publish result", "Publishes the result of a game for the current game day. Requires admin_session cookie. At most one result per game per game day.", PublishResultRequest{},
		[]response{respCreated(ResultView{}), respErr(http.StatusBadRequest), respErr(http.StatusUnauthorized), respErr(http.StatusNotFound), respErr(http.StatusConflict)}},

	{http.MethodGet, "/api/events", "Event stream (SSE)", "Server-Sent Events. The first frame is Connected; comment pings keep the stream alive.", nil,
		[]response{respStream("text/event-stream")}},
	{http.MethodGet, "/api/events/ws", "Event stream (WebSocket)", "Same frames as /api/events, one JSON text message each.", nil,
		[]response{{status: http.StatusSwitchingProtocols, contentType: "text/plain"}}},

	{http.MethodPost, "/api/admin/login", "Admin login", "Authenticate with email and password. Sets admin_session cookie.", AdminLoginRequest{},
		[]response{respOK(AdminMeResponse{}), respErr(http.StatusUnauthorized)}},
	{http.MethodPost, "/api/admin/logout", "Admin logout", "Clears admin session and cookie.", nil,
		[]response{respOK(nil)}},
	{http.MethodGet, "/api/admin/me", "Current admin", "Returns the currently authenticated admin.", nil,
		[]response{respOK(AdminMeResponse{}), respErr(http.StatusUnauthorized)}},

	{http.MethodPost, "/api/admin/games", "Create game", "Requires admin_session cookie.", GameRequest{},
		[]response{respCreated(drawday.Game{}), respErr(http.StatusBadRequest), respErr(http.StatusUnauthorized)}},
	{http.MethodPut, "/api/admin/games/{gameID}", "Update game", "Requires admin_session cookie.", gameUpdate{},
		[]response{respOK(drawday.Game{}), respErr(http.StatusBadRequest), respErr(http.StatusNotFound), respErr(http.StatusUnauthorized)}},
	{http.MethodDelete, "/api/admin/games/{gameID}", "Delete game", "Deletes the game and its results. Requires admin_session cookie.", gamePath{},
		[]response{respOK(nil), respErr(http.StatusNotFound), respErr(http.StatusUnauthorized)}},
	{http.MethodPut, "/api/admin/results/{resultID}", "Amend result", "Corrects a published value. Not broadcast. Requires admin_session cookie.", resultAmend{},
		[]response{respOK(ResultView{}), respErr(http.StatusBadRequest), respErr(http.StatusNotFound), respErr(http.StatusUnauthorized)}},
	{http.MethodDelete, "/api/admin/results/{resultID}", "Retract result", "Removes a published result. Not broadcast. Requires admin_session cookie.", resultPath{},
		[]response{respOK(nil), respErr(http.StatusNotFound), respErr(http.StatusUnauthorized)}},
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Drawcast API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Daily draw results, bucketed by game day, with live viewer streams.")

	for _, op := range operations {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		if op.description != "" {
			oc.SetDescription(op.description)
		}
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		for _, resp := range op.resp {
			opts := []openapi.ContentOption{openapi.WithHTTPStatus(resp.status)}
			if resp.contentType != "" {
				opts = append(opts, openapi.WithContentType(resp.contentType))
			}
			oc.AddRespStructure(resp.body, opts...)
		}
		_ = r.AddOperation(oc)
	}

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
