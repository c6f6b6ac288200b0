package gateway

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/codeduel-live/arena-client/internal/protocol"
)

const writeTimeout = 3 * time.Second

// Channel is one live connection for one scope. Writes go through a
// single writer goroutine; Send never blocks and silently drops when
// the channel is not live. Close is idempotent.
type Channel struct {
	scope     Scope
	conn      *websocket.Conn
	handler   Handler
	keepAlive time.Duration
	log       *zap.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	writeCh   chan []byte
	live      atomic.Bool
	closeOnce sync.Once
	onClosed  func()
}

func newChannel(scope Scope, conn *websocket.Conn, keepAlive time.Duration, h Handler, log *zap.Logger) *Channel {
	ctx, cancel := context.WithCancel(context.Background())
	return &Channel{
		scope:     scope,
		conn:      conn,
		handler:   h,
		keepAlive: keepAlive,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		writeCh:   make(chan []byte, 16),
	}
}

func (c *Channel) start() {
	c.live.Store(true)
	go c.writeLoop()
	go c.readLoop()
}

func (c *Channel) Scope() Scope { return c.scope }

func (c *Channel) Live() bool { return c.live.Load() }

// Send enqueues one outbound message. Not live, full queue, and
// encode failures all drop the message: there is no buffering or
// replay, the UI re-requests state after a reopen if it needs to.
func (c *Channel) Send(m protocol.Outbound) {
	if !c.live.Load() {
		c.log.Debug("send dropped, channel not live")
		return
	}
	data, err := protocol.Encode(m)
	if err != nil {
		c.log.Error("encode outbound message", zap.Error(err))
		return
	}
	select {
	case c.writeCh <- data:
	default:
		c.log.Warn("send dropped, write queue full")
	}
}

// Close stops the keep-alive, releases the connection, and marks the
// channel dead. Safe to call any number of times.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.live.Store(false)
		c.cancel()
		_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
		if c.onClosed != nil {
			c.onClosed()
		}
		c.log.Info("channel closed")
	})
}

func (c *Channel) writeLoop() {
	ticker := time.NewTicker(c.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return

		case data := <-c.writeCh:
			if !c.write(data) {
				return
			}

		case <-ticker.C:
			if !c.live.Load() {
				return
			}
			ping, _ := protocol.Encode(protocol.Ping{})
			if !c.write(ping) {
				return
			}
		}
	}
}

func (c *Channel) write(data []byte) bool {
	ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		c.log.Warn("channel write failed", zap.Error(err))
		c.Close()
		return false
	}
	return true
}

func (c *Channel) readLoop() {
	for {
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				c.log.Info("channel closed by peer")
			default:
				if c.ctx.Err() == nil {
					c.log.Warn("channel read failed", zap.Error(err))
				}
			}
			c.Close()
			return
		}

		ev, err := protocol.DecodeEvent(data)
		if err != nil {
			// Malformed payloads are dropped, never surfaced.
			c.log.Warn("dropping malformed channel payload", zap.Error(err))
			continue
		}
		if u, ok := ev.(protocol.Unknown); ok {
			c.log.Info("dropping unknown channel event", zap.String("type", u.Type))
			continue
		}
		c.handler(ev)
	}
}
