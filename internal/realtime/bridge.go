// Package realtime subscribes to the push channel carrying
// operator-originated broadcast alerts and routes them into the dispatch
// path.
package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/seismowatch/quake-alert-service/internal/domain"
	"github.com/seismowatch/quake-alert-service/internal/observability"
)

// ConnState is the bridge's connection lifecycle. A new subscribe attempt is
// only permitted from the disconnected state.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// broadcastRecord is the realtime channel's wire schema for operator
// broadcasts.
type broadcastRecord struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Language  string    `json:"language"` // "all" or a language tag
	Sound     bool      `json:"sound"`
	CreatedAt time.Time `json:"created_at"`
}

// Handler receives each broadcast as an AlertMessage. Language filtering is
// the dispatcher's job, not the bridge's.
type Handler func(ctx context.Context, msg domain.AlertMessage)

// Bridge maintains one subscription to the broadcast channel. Subscribe is
// idempotent while a subscription is active; when the underlying connection
// drops, the bridge resets to disconnected so the next lifecycle pass may
// resubscribe. It never retries on its own; reconnection attempts are
// driven (and logged) by the caller's cadence.
type Bridge struct {
	url     string
	dialer  *websocket.Dialer
	handler Handler
	logger  *slog.Logger
	metrics *observability.Metrics

	mu    sync.Mutex
	state ConnState
	conn  *websocket.Conn
}

// New creates a Bridge for the given ws:// or wss:// URL.
func New(url string, handler Handler, logger *slog.Logger, metrics *observability.Metrics) *Bridge {
	return &Bridge{
		url:     url,
		dialer:  websocket.DefaultDialer,
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

// State reports the current connection state.
func (b *Bridge) State() ConnState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Subscribe dials the channel and starts the read loop. Calling it while a
// subscription is connecting or connected is a no-op.
func (b *Bridge) Subscribe(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateDisconnected {
		b.mu.Unlock()
		return nil
	}
	b.state = StateConnecting
	b.setStateGauge(StateConnecting)
	b.mu.Unlock()

	conn, _, err := b.dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		b.reset()
		return fmt.Errorf("dial realtime channel: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.state = StateConnected
	b.setStateGauge(StateConnected)
	b.mu.Unlock()

	b.logger.Info("realtime channel subscribed", "url", b.url)

	go b.readLoop(ctx, conn)
	go b.pingLoop(ctx, conn)
	return nil
}

// Close tears the subscription down as part of pipeline shutdown.
func (b *Bridge) Close() {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	b.reset()
}

// readLoop consumes broadcast records until the connection drops, then
// resets the subscription guard. The drop is logged, not retried here.
func (b *Bridge) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
		b.reset()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var rec broadcastRecord
		if err := conn.ReadJSON(&rec); err != nil {
			b.logger.Warn("realtime channel dropped", "error", err)
			return
		}
		b.metrics.RealtimeMessages.Inc()
		b.handler(ctx, domain.AlertMessage{
			Title:     rec.Title,
			Body:      rec.Body,
			Language:  rec.Language,
			Origin:    domain.OriginOperatorBroadcast,
			Sound:     rec.Sound,
			CreatedAt: rec.CreatedAt,
		})
	}
}

// pingLoop keeps the connection's liveness checks flowing. It exits when the
// context is cancelled or writes start failing; the read loop notices the
// dead connection and resets.
func (b *Bridge) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// reset returns the bridge to disconnected so a later Subscribe is permitted
// again. Without this the bridge would silently go dark after a drop.
func (b *Bridge) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conn = nil
	b.state = StateDisconnected
	b.setStateGauge(StateDisconnected)
}

func (b *Bridge) setStateGauge(s ConnState) {
	b.metrics.RealtimeState.Set(float64(s))
}
