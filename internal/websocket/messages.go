package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fbconsulting/leadpilot/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Inbound message types (client to server)
const (
	MessageTypePing       MessageType = "ping"
	MessageTypeText       MessageType = "text_message"
	MessageTypeMultimodal MessageType = "multimodal_message"
)

// Outbound message types (server to client)
const (
	MessageTypeTextReply  MessageType = "text"
	MessageTypeError      MessageType = "error"
	MessageTypeComplete   MessageType = "complete"
	MessageTypePong       MessageType = "pong"
	MessageTypeServerPing MessageType = "server_ping"
)

// BaseMessage defines the common structure for all JSON frames
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// TextMessage is a plain chat message from the client
type TextMessage struct {
	BaseMessage
	Text      string `json:"text"`
	Role      string `json:"role"`
	EnableTTS bool   `json:"enableTTS"`
}

// MultimodalMessage is a chat message with file attachments
type MultimodalMessage struct {
	BaseMessage
	Text      string               `json:"text"`
	Files     []entities.MediaItem `json:"files"`
	Role      string               `json:"role"`
	EnableTTS bool                 `json:"enableTTS"`
}

// TextReplyMessage carries assistant text back to the client
type TextReplyMessage struct {
	BaseMessage
	Content string `json:"content"`
}

// ErrorMessage reports a failure without tearing down the connection
type ErrorMessage struct {
	BaseMessage
	Error string `json:"error"`
}

// CompleteMessage signals the end of a response, including any audio that
// streamed as binary frames after the text
type CompleteMessage struct {
	BaseMessage
}

// PongMessage answers a client ping
type PongMessage struct {
	BaseMessage
}

// ServerPingMessage is an application-level liveness probe. Browser clients
// cannot observe protocol pings, so the server sends these as JSON.
type ServerPingMessage struct {
	BaseMessage
}

// ParseInbound validates and decodes a client JSON frame.
func ParseInbound(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypePing:
		return &BaseMessage{Type: MessageTypePing, Timestamp: base.Timestamp}, nil

	case MessageTypeText:
		var msg TextMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid text message: %w", err)
		}
		if msg.Text == "" {
			return nil, fmt.Errorf("text is required")
		}
		return &msg, nil

	case MessageTypeMultimodal:
		var msg MultimodalMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid multimodal message: %w", err)
		}
		if msg.Text == "" && len(msg.Files) == 0 {
			return nil, fmt.Errorf("text or files are required")
		}
		for _, file := range msg.Files {
			if err := entities.ValidateAttachment(file); err != nil {
				return nil, err
			}
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

func stamp(msgType MessageType) BaseMessage {
	return BaseMessage{
		Type:      msgType,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// NewTextReply creates a text frame for assistant content
func NewTextReply(content string) *TextReplyMessage {
	return &TextReplyMessage{BaseMessage: stamp(MessageTypeTextReply), Content: content}
}

// NewErrorMessage creates a standardized error frame
func NewErrorMessage(message string) *ErrorMessage {
	return &ErrorMessage{BaseMessage: stamp(MessageTypeError), Error: message}
}

// NewCompleteMessage creates an end-of-response frame
func NewCompleteMessage() *CompleteMessage {
	return &CompleteMessage{BaseMessage: stamp(MessageTypeComplete)}
}

// NewPongMessage creates a pong frame
func NewPongMessage() *PongMessage {
	return &PongMessage{BaseMessage: stamp(MessageTypePong)}
}

// NewServerPingMessage creates a server-side liveness frame
func NewServerPingMessage() *ServerPingMessage {
	return &ServerPingMessage{BaseMessage: stamp(MessageTypeServerPing)}
}

func marshalFrame(v interface{}) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		// Frames are fixed structs; marshalling them cannot fail at runtime.
		panic(fmt.Sprintf("failed to marshal frame: %v", err))
	}
	return payload
}
