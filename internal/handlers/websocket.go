// internal/handlers/websocket.go
package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"abiahub/internal/models"
	"abiahub/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to configured origins once the web client domain is fixed
		return true
	},
}

// Hub fans report events and notifications out to connected clients.
// Clients are indexed by user so personal notifications reach every
// open session; report subscriptions are tracked per client.
type Hub struct {
	clients map[primitive.ObjectID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *hubEvent

	mutex sync.RWMutex
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID primitive.ObjectID

	// reports this client wants live updates for
	watched map[primitive.ObjectID]bool
	wmu     sync.Mutex
}

type hubEvent struct {
	// When UserID is set the event goes only to that user's sessions.
	// When ReportID is set it goes to clients watching that report.
	UserID   *primitive.ObjectID
	ReportID *primitive.ObjectID
	Payload  []byte
}

type WSMessage struct {
	Type     string      `json:"type"`
	ReportID string      `json:"report_id,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

type WebSocketHandler struct {
	hub        *Hub
	jwtManager *auth.JWTManager
}

func NewWebSocketHandler(jwtManager *auth.JWTManager) *WebSocketHandler {
	hub := &Hub{
		clients:    make(map[primitive.ObjectID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *hubEvent, 64),
	}

	return &WebSocketHandler{
		hub:        hub,
		jwtManager: jwtManager,
	}
}

func (h *WebSocketHandler) StartHub() {
	go h.hub.run()
}

func (hub *Hub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.mutex.Lock()
			if hub.clients[client.userID] == nil {
				hub.clients[client.userID] = make(map[*Client]bool)
			}
			hub.clients[client.userID][client] = true
			hub.mutex.Unlock()
			logrus.WithField("user_id", client.userID.Hex()).Debug("websocket client registered")

		case client := <-hub.unregister:
			hub.mutex.Lock()
			if clients, ok := hub.clients[client.userID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(hub.clients, client.userID)
					}
				}
			}
			hub.mutex.Unlock()

		case event := <-hub.broadcast:
			hub.deliver(event)
		}
	}
}

func (hub *Hub) deliver(event *hubEvent) {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()

	if event.UserID != nil {
		for client := range hub.clients[*event.UserID] {
			client.trySend(event.Payload)
		}
		return
	}

	if event.ReportID != nil {
		for _, clients := range hub.clients {
			for client := range clients {
				if client.isWatching(*event.ReportID) {
					client.trySend(event.Payload)
				}
			}
		}
	}
}

func (c *Client) trySend(payload []byte) {
	select {
	case c.send <- payload:
	default:
		// Slow consumer, drop the event rather than block the hub.
	}
}

func (c *Client) isWatching(reportID primitive.ObjectID) bool {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.watched[reportID]
}

// HandleWebSocket upgrades the connection. The JWT is passed as a query
// parameter because browsers cannot set headers on websocket upgrades.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Authorization required",
			"details": "token query parameter is required",
		})
		return
	}

	claims, err := h.jwtManager.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Invalid token",
			"details": err.Error(),
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:     h.hub,
		conn:    conn,
		send:    make(chan []byte, 256),
		userID:  claims.UserID,
		watched: make(map[primitive.ObjectID]bool),
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var wsMsg WSMessage
		err := c.conn.ReadJSON(&wsMsg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Debug("websocket read error")
			}
			break
		}

		switch wsMsg.Type {
		case "watch_report":
			c.setWatch(wsMsg.ReportID, true)
		case "unwatch_report":
			c.setWatch(wsMsg.ReportID, false)
		case "ping":
			c.trySend([]byte(`{"type": "pong"}`))
		}
	}
}

func (c *Client) setWatch(reportID string, watch bool) {
	id, err := primitive.ObjectIDFromHex(reportID)
	if err != nil {
		return
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if watch {
		c.watched[id] = true
	} else {
		delete(c.watched, id)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain anything queued behind this message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// BroadcastReportEvent pushes a report update to every client watching it.
func (h *WebSocketHandler) BroadcastReportEvent(reportID primitive.ObjectID, eventType string, data interface{}) {
	payload, err := json.Marshal(WSMessage{
		Type:     eventType,
		ReportID: reportID.Hex(),
		Data:     data,
	})
	if err != nil {
		logrus.WithError(err).Error("failed to marshal report event")
		return
	}

	h.hub.broadcast <- &hubEvent{ReportID: &reportID, Payload: payload}
}

// SendNotification pushes a stored notification to the user's open sessions.
func (h *WebSocketHandler) SendNotification(userID primitive.ObjectID, notification *models.Notification) {
	payload, err := json.Marshal(WSMessage{
		Type: "notification",
		Data: notification,
	})
	if err != nil {
		logrus.WithError(err).Error("failed to marshal notification event")
		return
	}

	h.hub.broadcast <- &hubEvent{UserID: &userID, Payload: payload}
}
