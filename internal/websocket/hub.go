package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fbconsulting/leadpilot/domain/entities"
	"github.com/fbconsulting/leadpilot/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for inline attachments

	// Budget for one full chat turn including TTS streaming.
	replyTimeout = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active clients.
type Hub struct {
	// Registered clients keyed by client ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	mu sync.RWMutex

	conversations *usecase.ConversationService
	logger        *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(conversations *usecase.ConversationService, logger *zap.Logger) *Hub {
	return &Hub{
		clients:       make(map[string]*Client),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		conversations: conversations,
		logger:        logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.clientID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("clientID", client.clientID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.clientID]; ok {
				delete(h.clients, client.clientID)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("clientID", client.clientID))
		}
	}
}

// ClientCount reports how many clients are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type WriteData struct {
	// Type is websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	clientID string

	logger *zap.Logger

	// Serializes chat turns so audio from two replies never interleaves.
	turnMu sync.Mutex
}

// ServeWS handles a websocket request for an identified client.
func ServeWS(hub *Hub, c echo.Context, clientID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan WriteData, 256),
		clientID: clientID,
		logger:   logger,
	}

	client.hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work
	// in new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection into the pipeline.
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
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processFrame(message)
		case websocket.BinaryMessage:
			// Voice input arrives over the HTTP transcription endpoint, not
			// the chat socket. Drop the frame, keep the session.
			c.logger.Warn("Dropping unexpected binary frame",
				zap.String("clientID", c.clientID),
				zap.Int("size", len(message)))
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
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

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			// Browsers cannot see protocol pings, so mirror one as JSON.
			c.enqueue(websocket.TextMessage, marshalFrame(NewServerPingMessage()))
		}
	}
}

// enqueue drops the frame when the send buffer is full rather than blocking
// the caller.
func (c *Client) enqueue(msgType int, payload []byte) {
	select {
	case c.send <- WriteData{Type: msgType, Payload: payload}:
	default:
		c.logger.Warn("Send buffer full, dropping frame",
			zap.String("clientID", c.clientID))
	}
}

// processFrame decodes one JSON frame and dispatches it. Malformed frames
// are answered with an error frame and dropped; they never end the session.
func (c *Client) processFrame(message []byte) {
	parsed, err := ParseInbound(message)
	if err != nil {
		c.logger.Warn("Dropping malformed frame",
			zap.String("clientID", c.clientID),
			zap.Error(err))
		c.enqueue(websocket.TextMessage, marshalFrame(NewErrorMessage(err.Error())))
		return
	}

	switch msg := parsed.(type) {
	case *BaseMessage: // ping
		c.enqueue(websocket.TextMessage, marshalFrame(NewPongMessage()))
	case *TextMessage:
		go c.respond(msg.Text, nil, msg.EnableTTS)
	case *MultimodalMessage:
		go c.respond(msg.Text, msg.Files, msg.EnableTTS)
	}
}

// respond runs one chat turn: pipeline reply as a text frame, optional audio
// as binary frames, then a complete frame.
func (c *Client) respond(text string, files []entities.MediaItem, enableTTS bool) {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()

	message := entities.NewChatMessage(entities.RoleUser, text)
	message.MediaItems = files

	reply, err := c.hub.conversations.Converse(ctx, c.clientID, message)
	if err != nil {
		c.logger.Error("Chat turn failed",
			zap.String("clientID", c.clientID),
			zap.Error(err))
		c.enqueue(websocket.TextMessage, marshalFrame(NewErrorMessage("failed to process message")))
		return
	}

	c.enqueue(websocket.TextMessage, marshalFrame(NewTextReply(reply.Content)))

	if enableTTS {
		c.streamAudio(ctx, reply.Content)
	}

	c.enqueue(websocket.TextMessage, marshalFrame(NewCompleteMessage()))
}

// streamAudio forwards synthesized chunks as binary frames, in order.
func (c *Client) streamAudio(ctx context.Context, text string) {
	audioChan, err := c.hub.conversations.Synthesize(ctx, text)
	if err != nil {
		c.logger.Warn("Skipping audio for reply",
			zap.String("clientID", c.clientID),
			zap.Error(err))
		return
	}

	chunks := 0
	for chunk := range audioChan {
		c.enqueue(websocket.BinaryMessage, chunk)
		chunks++
	}

	c.logger.Info("Finished streaming reply audio",
		zap.String("clientID", c.clientID),
		zap.Int("chunks", chunks))
}
