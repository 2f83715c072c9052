package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/drawcast/internal/eventbus"
)

// wsSink writes one JSON text message per event and pings for keep-alive.
type wsSink struct {
	conn *websocket.Conn
}

func (s wsSink) WriteEvent(ctx context.Context, e eventbus.Event) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, s.conn, e)
}

func (s wsSink) WriteKeepAlive(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return s.conn.Ping(ctx)
}

func handleEventsWS(gw *Gateway, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		// Viewers only listen. CloseRead services pings and ends ctx when
		// the client goes away.
		ctx := conn.CloseRead(r.Context())

		err = gw.Serve(ctx, wsSink{conn: conn})
		switch {
		case errors.Is(err, ErrSlowConsumer):
			conn.Close(websocket.StatusPolicyViolation, "too slow")
		case errors.Is(err, errGatewayClosed):
			conn.Close(websocket.StatusGoingAway, "server shutting down")
		case err != nil:
			logger.Debug("websocket stream ended", "error", err)
		default:
			conn.Close(websocket.StatusNormalClosure, "")
		}
	}
}
