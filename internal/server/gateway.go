package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/drawcast/internal/eventbus"
	"github.com/playperu/drawcast/internal/metrics"
)

// ErrSlowConsumer closes a viewer stream whose outbox overflowed.
var ErrSlowConsumer = errors.New("viewer stream fell behind")

var errGatewayClosed = errors.New("gateway shutting down")

const defaultOutboxSize = 32

// Sink is the transport side of one viewer stream.
type Sink interface {
	WriteEvent(ctx context.Context, e eventbus.Event) error
	WriteKeepAlive(ctx context.Context) error
}

type connState int

const (
	stateConnecting connState = iota
	stateOpen
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateOpen:
		return "open"
	default:
		return "closed"
	}
}

type streamConn struct {
	id     string
	outbox chan eventbus.Event
	cancel context.CancelFunc

	mu     sync.Mutex
	handle eventbus.Handle
	state  connState
	err    error

	once sync.Once
}

func (c *streamConn) setState(s connState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *streamConn) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Gateway fans bus events out to long-lived viewer streams. Each stream has
// its own outbox and writer, so a stalled viewer never blocks the bus.
type Gateway struct {
	bus        *eventbus.Bus
	logger     *slog.Logger
	metrics    *metrics.Recorder
	keepAlive  time.Duration
	outboxSize int

	mu    sync.Mutex
	conns map[string]*streamConn
}

func NewGateway(bus *eventbus.Bus, logger *slog.Logger, rec *metrics.Recorder, keepAlive time.Duration) *Gateway {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &Gateway{
		bus:        bus,
		logger:     logger,
		metrics:    rec,
		keepAlive:  keepAlive,
		outboxSize: defaultOutboxSize,
		conns:      make(map[string]*streamConn),
	}
}

// Serve runs one viewer stream until ctx is cancelled, a write fails, or
// the viewer falls behind. A client disconnect returns nil.
func (g *Gateway) Serve(ctx context.Context, sink Sink) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := &streamConn{
		id:     uuid.NewString(),
		outbox: make(chan eventbus.Event, g.outboxSize),
		cancel: cancel,
		state:  stateConnecting,
	}

	g.mu.Lock()
	g.conns[c.id] = c
	g.mu.Unlock()
	g.metrics.ConnectionOpened()

	c.mu.Lock()
	c.handle = g.bus.Subscribe(eventbus.DomainKinds, func(e eventbus.Event) {
		g.deliver(c, e)
	})
	closed := c.state == stateClosed
	c.mu.Unlock()
	if closed {
		// Torn down by Close before the subscription existed.
		g.bus.Unsubscribe(c.handle)
		return c.closeErr()
	}

	g.logger.Debug("viewer connected", "connection_id", c.id)

	g.close(c, g.run(ctx, c, sink))
	return c.closeErr()
}

func (g *Gateway) run(ctx context.Context, c *streamConn, sink Sink) error {
	if err := sink.WriteEvent(ctx, eventbus.Event{Kind: eventbus.Connected, ConnectionID: c.id}); err != nil {
		return err
	}
	c.setState(stateOpen)

	ticker := time.NewTicker(g.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-c.outbox:
			if err := sink.WriteEvent(ctx, e); err != nil {
				return err
			}
		case <-ticker.C:
			if err := sink.WriteKeepAlive(ctx); err != nil {
				return err
			}
		}
	}
}

// deliver runs inside Bus.Publish and must not block.
func (g *Gateway) deliver(c *streamConn, e eventbus.Event) {
	select {
	case c.outbox <- e:
	default:
		g.metrics.FrameDropped()
		g.close(c, ErrSlowConsumer)
	}
}

// close tears c down exactly once. err records why; nil means the client left.
func (g *Gateway) close(c *streamConn, err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.state = stateClosed
		c.err = err
		h := c.handle
		c.mu.Unlock()

		c.cancel()
		g.bus.Unsubscribe(h)

		g.mu.Lock()
		delete(g.conns, c.id)
		g.mu.Unlock()
		g.metrics.ConnectionClosed()

		if err != nil {
			g.logger.Info("viewer stream closed", "connection_id", c.id, "reason", err.Error())
		} else {
			g.logger.Debug("viewer disconnected", "connection_id", c.id)
		}
	})
}

// Connections returns the number of streams not yet torn down.
func (g *Gateway) Connections() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.conns)
}

// Close ends every open stream. http.Server.Shutdown waits for handlers,
// so streams must be ended before it is called.
func (g *Gateway) Close() {
	g.mu.Lock()
	conns := make([]*streamConn, 0, len(g.conns))
	for _, c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.Unlock()

	for _, c := range conns {
		g.close(c, errGatewayClosed)
	}
}
