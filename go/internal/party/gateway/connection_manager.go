package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager manages WebSocket connections subscribed to party feeds
type ConnectionManager struct {
	// Connection pools organized by party ID
	partyConnections map[uuid.UUID]map[*Connection]bool
	mu               sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	feed     *Feed
}

// Connection represents a WebSocket connection to one viewer of a party
type Connection struct {
	ID      string
	PartyID uuid.UUID
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time

	token     string
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

// ConnectionStats summarizes the open connections
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveParties    int            `json:"active_parties"`
	PartyConnections map[string]int `json:"party_connections"`
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		SendBuffer:      16,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(feed *Feed, config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		partyConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
		feed:   feed,
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and starts
// streaming the party feed to it
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, partyID uuid.UUID, token string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	connection := &Connection{
		ID:          uuid.New().String(),
		PartyID:     partyID,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBuffer),
		Manager:     cm,
		ConnectedAt: time.Now(),
		token:       token,
		cancel:      cancel,
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()
	go connection.feedPump(ctx)

	log.Info().
		Str("connection_id", connection.ID).
		Str("party_id", partyID.String()).
		Msg("WebSocket connection established")

	return nil
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.partyConnections[conn.PartyID] == nil {
		cm.partyConnections[conn.PartyID] = make(map[*Connection]bool)
	}
	cm.partyConnections[conn.PartyID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("party_id", conn.PartyID.String()).
		Int("total_connections", len(cm.partyConnections[conn.PartyID])).
		Msg("connection registered")
}

// unregisterConnection removes a connection from the manager
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.partyConnections[conn.PartyID]
	if !exists {
		return
	}
	if _, exists := connections[conn]; !exists {
		return
	}
	delete(connections, conn)
	if len(connections) == 0 {
		delete(cm.partyConnections, conn.PartyID)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("party_id", conn.PartyID.String()).
		Msg("connection unregistered")
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveParties:    len(cm.partyConnections),
		PartyConnections: make(map[string]int, len(cm.partyConnections)),
	}
	for partyID, connections := range cm.partyConnections {
		stats.TotalConnections += len(connections)
		stats.PartyConnections[partyID.String()] = len(connections)
	}
	return stats
}

// CloseAll stops every feed and closes every connection
func (cm *ConnectionManager) CloseAll() {
	cm.mu.RLock()
	var all []*Connection
	for _, connections := range cm.partyConnections {
		for conn := range connections {
			all = append(all, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range all {
		conn.close()
	}
}

// close stops the feed and tears the socket down once
func (c *Connection) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	})
}

// feedPump runs the party feed and queues its frames for writePump.
// Send is closed when the feed ends so writePump can say goodbye.
func (c *Connection) feedPump(ctx context.Context) {
	defer close(c.Send)

	err := c.Manager.feed.Run(ctx, c.PartyID, c.token, func(f Frame) error {
		data, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("failed to marshal frame: %w", err)
		}
		select {
		case c.Send <- data:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
			return fmt.Errorf("send buffer full")
		}
	})
	if err != nil && ctx.Err() == nil {
		log.Warn().
			Err(err).
			Str("connection_id", c.ID).
			Msg("closing slow connection")
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump watches the client side; any read error means it went away
func (c *Connection) readPump() {
	defer c.close()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		// the feed is server-driven; client messages are only logged
		log.Debug().
			Str("connection_id", c.ID).
			Int("bytes", len(message)).
			Msg("received client message")
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
