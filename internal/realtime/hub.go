// Package realtime pushes journal change events to connected browsers.
// Events fan out through Redis pub/sub so every API replica reaches its own
// websocket clients; without Redis the hub delivers in-process.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/edgelog/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix = "journal:events:"
	sendBuffer    = 16
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = pongWait * 9 / 10
)

// Event types
const (
	EventTradeCreated   = "trade.created"
	EventTradeUpdated   = "trade.updated"
	EventTradeDeleted   = "trade.deleted"
	EventTradeConverted = "trade.converted"
	EventRiskUpdated    = "risk.updated"
	EventPlanChanged    = "plan.changed"
)

// Event is one change notification for a user
type Event struct {
	Type    string      `json:"type"`
	UserID  uint        `json:"user_id"`
	Source  string      `json:"source,omitempty"`
	TradeID uint        `json:"trade_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	At      time.Time   `json:"at"`
}

// Publisher is what services need to emit events
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	userID uint
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks websocket clients per user
type Hub struct {
	rdb     *redis.Client
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[uint]map[*client]struct{}
}

// NewHub creates a new Hub. rdb may be nil for single-process delivery.
func NewHub(rdb *redis.Client, logger *zap.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		rdb:     rdb,
		logger:  logger,
		metrics: m,
		clients: make(map[uint]map[*client]struct{}),
	}
}

func channelFor(userID uint) string {
	return channelPrefix + strconv.FormatUint(uint64(userID), 10)
}

func userFromChannel(channel string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(channel, channelPrefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad channel %q: %w", channel, err)
	}
	return uint(id), nil
}

// Publish sends ev to every client of ev.UserID on every replica
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if h.rdb == nil {
		h.deliver(ev.UserID, data)
		return nil
	}
	return h.rdb.Publish(ctx, channelFor(ev.UserID), data).Err()
}

// Run relays Redis messages to local clients until ctx is done
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		<-ctx.Done()
		return
	}

	sub := h.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	h.logger.Info("realtime hub subscribed", zap.String("pattern", channelPrefix+"*"))
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			userID, err := userFromChannel(msg.Channel)
			if err != nil {
				h.logger.Warn("realtime: dropping message", zap.Error(err))
				continue
			}
			h.deliver(userID, []byte(msg.Payload))
		}
	}
}

// ClientCount returns the number of live connections for a user
func (h *Hub) ClientCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) deliver(userID uint, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- data:
		default:
			// slow consumer; the write pump closes it on the next failed write
			h.logger.Debug("realtime: client buffer full", zap.Uint("user_id", userID))
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.mu.Unlock()
	h.metrics.RealtimeClients.Inc()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if set, ok := h.clients[c.userID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
			h.metrics.RealtimeClients.Dec()
		}
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
}

// ServeWS upgrades the request and streams userID's events to it
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("realtime: upgrade failed", zap.Error(err))
		return
	}

	c := &client{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	h.logger.Debug("realtime: client connected", zap.Uint("user_id", userID))

	go h.writePump(c)
	h.readPump(c)
}

// readPump only drains control frames; clients never send events
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
