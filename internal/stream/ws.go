package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/oklog/ulid/v2"
)

// outboundBuffer is the per-connection outbound queue size. When the queue is
// full the connection is a slow consumer and events are dropped.
const outboundBuffer = 64

// writeTimeout bounds a single outbound write.
const writeTimeout = 5 * time.Second

// Gateway upgrades HTTP requests to WebSocket connections and bridges them to
// the [Coordinator]. One read loop per connection serializes that
// connection's handlers; a separate writer goroutine drains the outbound
// queue so sends never block the pipeline.
type Gateway struct {
	coord *Coordinator
}

// NewGateway creates a Gateway for coord.
func NewGateway(coord *Coordinator) *Gateway {
	return &Gateway{coord: coord}
}

// ServeHTTP implements [http.Handler].
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Browser clients are served from arbitrary origins during a live
		// presentation; auth happens at the reverse proxy.
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}

	conn := newWSConn(ulid.Make().String(), sock)
	slog.Info("connection opened", "conn_id", conn.id)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go conn.writeLoop(ctx)
	g.readLoop(ctx, conn)

	conn.close()
	g.coord.HandleDisconnect(context.WithoutCancel(ctx), conn.id)
	slog.Info("connection closed", "conn_id", conn.id)
}

// readLoop reads envelopes until the peer disconnects, dispatching each one
// synchronously so events for this connection are handled in order.
func (g *Gateway) readLoop(ctx context.Context, conn *wsConn) {
	for {
		var env Envelope
		if err := wsjson.Read(ctx, conn.sock, &env); err != nil {
			status := websocket.CloseStatus(err)
			if status == -1 && !errors.Is(err, context.Canceled) {
				slog.Debug("websocket read ended", "conn_id", conn.id, "error", err)
			}
			return
		}
		g.dispatch(ctx, conn, env)
	}
}

// dispatch routes one inbound envelope to its coordinator handler.
func (g *Gateway) dispatch(ctx context.Context, conn *wsConn, env Envelope) {
	switch env.Event {
	case EventSetLanguage:
		var p SetLanguagePayload
		if !decode(conn, env.Data, &p) {
			return
		}
		g.coord.HandleSetLanguage(ctx, conn, p)

	case EventTranscript:
		var p TranscriptPayload
		if !decode(conn, env.Data, &p) {
			return
		}
		g.coord.HandleTranscript(ctx, conn, p)

	case EventExportRequest:
		g.coord.HandleExport(ctx, conn)

	case EventSessionReset:
		g.coord.HandleReset(ctx, conn)

	case EventViewerJoin:
		g.coord.HandleViewerJoin(ctx, conn)

	default:
		conn.Send(Event{Event: EventError, Data: ErrorPayload{
			Message: "unknown event: " + env.Event,
		}})
	}
}

// decode unmarshals an inbound payload, reporting a protocol error to the
// sender on failure.
func decode(conn *wsConn, raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		conn.Send(Event{Event: EventError, Data: ErrorPayload{
			Message: "malformed payload: " + err.Error(),
		}})
		return false
	}
	return true
}

// wsConn is one live WebSocket connection. It implements [Sink].
type wsConn struct {
	id   string
	sock *websocket.Conn

	out       chan Event
	closeOnce sync.Once
	done      chan struct{}
}

var _ Sink = (*wsConn)(nil)

func newWSConn(id string, sock *websocket.Conn) *wsConn {
	return &wsConn{
		id:   id,
		sock: sock,
		out:  make(chan Event, outboundBuffer),
		done: make(chan struct{}),
	}
}

// ID implements [Sink].
func (c *wsConn) ID() string { return c.id }

// Send implements [Sink]. It never blocks: when the outbound queue is full
// the event is dropped and the drop is logged.
func (c *wsConn) Send(ev Event) {
	select {
	case <-c.done:
	case c.out <- ev:
	default:
		slog.Warn("dropping event for slow consumer",
			"conn_id", c.id, "event", ev.Event)
	}
}

// writeLoop drains the outbound queue onto the socket.
func (c *wsConn) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case ev := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c.sock, ev)
			cancel()
			if err != nil {
				slog.Debug("websocket write failed", "conn_id", c.id, "error", err)
				return
			}
		}
	}
}

// close tears the connection down exactly once.
func (c *wsConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.sock.Close(websocket.StatusNormalClosure, "")
	})
}
