package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/researchcanvas/canvasd/internal/bus"
	"github.com/researchcanvas/canvasd/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // canvas frontend runs on its own origin
	},
}

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Handler handles WebSocket connections
type Handler struct {
	bus    *bus.Bus
	logger *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(eventBus *bus.Bus, logger *zap.Logger) *Handler {
	return &Handler{
		bus:    eventBus,
		logger: logger,
	}
}

// connSink adapts a websocket connection to the bus sink interface.
// gorilla connections allow one concurrent writer, so sends and pings
// share a mutex.
type connSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *connSink) Send(event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *connSink) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

// HandleProjectStream streams a project's events over a WebSocket. The
// bus replays recent history on subscribe, so late joiners catch up
// before receiving live events.
func (h *Handler) HandleProjectStream(c *gin.Context) {
	projectID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established",
		zap.String("project_id", projectID),
		zap.String("client", c.ClientIP()))

	sink := &connSink{conn: conn}
	sub, err := h.bus.Subscribe(projectID, sink)
	if err != nil {
		h.logger.Warn("subscription failed during replay",
			zap.String("project_id", projectID),
			zap.Error(err))
		return
	}
	defer h.bus.Unsubscribe(sub)

	// Keepalive pings; a dead peer surfaces as a write error either
	// here or on the next event send.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := sink.ping(); err != nil {
					return
				}
			}
		}
	}()

	// Drain the read side until the client goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.logger.Info("WebSocket connection closed",
				zap.String("project_id", projectID))
			return
		}
	}
}
