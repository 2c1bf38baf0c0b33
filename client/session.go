package client

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ConnectionState describes the session's transport state. It is owned by
// the Session; consumers observe it through the OnStateChange handler and
// the State accessor, never by mutating it.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateError        ConnectionState = "error"
)

// Handlers receives inbound session events. Any field may be nil. Handlers
// are invoked from the session's reader goroutine, so they must not block.
type Handlers struct {
	OnText        func(content string)
	OnBinary      func(data []byte)
	OnError       func(message string)
	OnComplete    func()
	OnStateChange func(state ConnectionState)
}

// Options tune the session's timing policy.
type Options struct {
	PingInterval     time.Duration // interval between heartbeat pings
	PongTimeout      time.Duration // how long to wait for a pong before declaring the connection dead
	ReconnectDelay   time.Duration // base delay, doubled per attempt
	MaxReconnects    int
	HandshakeTimeout time.Duration
}

func (o *Options) applyDefaults() {
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 10 * time.Second
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = 2 * time.Second
	}
	if o.MaxReconnects <= 0 {
		o.MaxReconnects = 5
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
}

// inboundFrame is the shape shared by all JSON frames from the server.
type inboundFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Session owns exactly one duplex connection to the chat backend. It
// reconnects with exponential backoff on unexpected close, runs a
// heartbeat, and dispatches typed inbound frames to its Handlers. Public
// methods never panic or return transport errors; failures surface through
// the handlers and the connection state.
type Session struct {
	baseURL  string
	clientID string
	opts     Options
	handlers Handlers
	dialer   *websocket.Dialer
	logger   *zap.Logger

	mu        sync.Mutex
	state     ConnectionState
	conn      *websocket.Conn
	attempts  int
	closed    bool // set by Disconnect, cleared by Connect
	reconnect *time.Timer
	pongWait  *time.Timer
	done      chan struct{} // closes when the current connection dies
}

// NewSession prepares a session against baseURL (e.g. "ws://host:8080").
// The per-session client identifier is generated here and appended to the
// connection path. No network activity happens until Connect.
func NewSession(baseURL string, opts Options, handlers Handlers, logger *zap.Logger) *Session {
	opts.applyDefaults()
	return &Session{
		baseURL:  baseURL,
		clientID: uuid.NewString(),
		opts:     opts,
		handlers: handlers,
		dialer:   &websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout},
		logger:   logger,
		state:    StateDisconnected,
	}
}

// ClientID returns the generated per-session identifier.
func (s *Session) ClientID() string {
	return s.clientID
}

// State returns the current connection state.
func (s *Session) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect starts the connection attempt. It is a no-op while already
// connecting or connected. The handshake runs asynchronously; the outcome
// arrives through OnStateChange. Calling Connect after the reconnect
// budget was exhausted resets the attempt counter and retries.
func (s *Session) Connect() {
	s.mu.Lock()
	if s.state == StateConnecting || s.state == StateConnected {
		s.mu.Unlock()
		return
	}
	s.closed = false
	s.attempts = 0
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	go s.dial()
}

// Disconnect clears all timers, closes the socket if open, and transitions
// to disconnected. Idempotent.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.stopTimersLocked()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.done != nil {
		select {
		case <-s.done:
		default:
			close(s.done)
		}
		s.done = nil
	}
	if s.state != StateDisconnected {
		s.setStateLocked(StateDisconnected)
	}
}

// Send marshals payload as a JSON text frame. It reports false without
// side effects when the socket is not open; the caller decides whether to
// notify the user or call Connect again.
func (s *Session) Send(payload interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected || s.conn == nil {
		return false
	}
	if err := s.conn.WriteJSON(payload); err != nil {
		s.logger.Warn("Failed to write frame", zap.Error(err))
		return false
	}
	return true
}

func (s *Session) dial() {
	url := s.baseURL + "/ws/" + s.clientID

	conn, _, err := s.dialer.Dial(url, nil)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		s.logger.Warn("Connection attempt failed", zap.String("url", url), zap.Error(err))
		s.scheduleReconnectLocked()
		s.mu.Unlock()
		return
	}

	s.conn = conn
	s.attempts = 0
	s.done = make(chan struct{})
	s.setStateLocked(StateConnected)
	done := s.done
	s.mu.Unlock()

	go s.readLoop(conn, done)
	go s.heartbeat(conn, done)
}

// readLoop forwards binary frames verbatim and routes JSON frames by their
// type discriminator. Unknown types are logged and dropped.
func (s *Session) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			s.handleClosed(conn, done, err)
			return
		}

		if messageType == websocket.BinaryMessage {
			if s.handlers.OnBinary != nil {
				s.handlers.OnBinary(payload)
			}
			continue
		}

		var frame inboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			s.logger.Warn("Dropping unparseable frame", zap.ByteString("payload", payload))
			continue
		}

		switch frame.Type {
		case "text":
			if s.handlers.OnText != nil {
				s.handlers.OnText(frame.Content)
			}
		case "error":
			if s.handlers.OnError != nil {
				s.handlers.OnError(frame.Error)
			}
		case "complete":
			if s.handlers.OnComplete != nil {
				s.handlers.OnComplete()
			}
		case "pong", "server_ping":
			s.mu.Lock()
			if s.pongWait != nil {
				s.pongWait.Stop()
				s.pongWait = nil
			}
			s.mu.Unlock()
		default:
			s.logger.Warn("Dropping unknown frame type", zap.String("type", frame.Type))
		}
	}
}

// heartbeat sends an application-level ping on every interval and arms a
// pong timeout. A missed pong closes the connection, which the read loop
// turns into a reconnect.
func (s *Session) heartbeat(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.conn != conn {
				s.mu.Unlock()
				return
			}
			if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
				s.mu.Unlock()
				conn.Close()
				return
			}
			if s.pongWait == nil {
				s.pongWait = time.AfterFunc(s.opts.PongTimeout, func() {
					s.logger.Warn("Heartbeat pong timed out, closing connection")
					conn.Close()
				})
			}
			s.mu.Unlock()
		}
	}
}

// handleClosed runs once per connection, from the read loop, when the
// transport dies for any reason.
func (s *Session) handleClosed(conn *websocket.Conn, done chan struct{}, err error) {
	conn.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == conn {
		s.conn = nil
	}
	select {
	case <-done:
	default:
		close(done)
	}
	s.stopTimersLocked()

	if s.closed {
		return
	}

	s.logger.Info("Connection closed", zap.Error(err))
	s.scheduleReconnectLocked()
}

// scheduleReconnectLocked applies the backoff policy: baseDelay doubled per
// attempt, up to MaxReconnects attempts, then the error state. Callers
// hold s.mu.
func (s *Session) scheduleReconnectLocked() {
	if s.attempts >= s.opts.MaxReconnects {
		s.logger.Warn("Reconnect attempts exhausted", zap.Int("attempts", s.attempts))
		s.setStateLocked(StateError)
		if s.handlers.OnError != nil {
			go s.handlers.OnError("connection lost, retries exhausted")
		}
		return
	}

	delay := s.opts.ReconnectDelay * (1 << s.attempts)
	s.attempts++
	s.setStateLocked(StateConnecting)
	s.logger.Info("Scheduling reconnect",
		zap.Int("attempt", s.attempts),
		zap.Duration("delay", delay),
	)
	s.reconnect = time.AfterFunc(delay, s.dial)
}

func (s *Session) stopTimersLocked() {
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	if s.pongWait != nil {
		s.pongWait.Stop()
		s.pongWait = nil
	}
}

func (s *Session) setStateLocked(state ConnectionState) {
	if s.state == state {
		return
	}
	s.state = state
	if s.handlers.OnStateChange != nil {
		go s.handlers.OnStateChange(state)
	}
}
