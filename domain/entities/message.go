package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageRole identifies the sender of a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleError     MessageRole = "error"
)

// MediaItem is a file attached to a chat message. Data carries the payload
// base64 encoded for inline transport; larger files may be referenced by URL
// instead, in which case Data is empty.
type MediaItem struct {
	MimeType string `json:"mime_type" bson:"mime_type"`
	Data     string `json:"data,omitempty" bson:"data,omitempty"`
	Filename string `json:"filename,omitempty" bson:"filename,omitempty"`
	URL      string `json:"url,omitempty" bson:"url,omitempty"`
}

// ChatMessage is a single entry in a conversation transcript.
//
// Content may be empty while IsLoading is true: the orchestrator appends a
// placeholder assistant message on send and fills it in as the response
// streams back.
type ChatMessage struct {
	ID         string      `json:"id" bson:"id"`
	Role       MessageRole `json:"role" bson:"role"`
	Content    string      `json:"content" bson:"content"`
	Timestamp  time.Time   `json:"timestamp" bson:"timestamp"`
	MediaItems []MediaItem `json:"media_items,omitempty" bson:"media_items,omitempty"`
	IsLoading  bool        `json:"is_loading,omitempty" bson:"-"`
}

// NewChatMessage creates a message with a generated ID and current timestamp.
func NewChatMessage(role MessageRole, content string) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// IsEmpty reports whether the message carries neither text nor attachments.
func (m ChatMessage) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == "" && len(m.MediaItems) == 0
}

// SupportedAttachmentTypes lists the MIME prefixes the chat accepts.
var SupportedAttachmentTypes = []string{
	"image/",
	"application/pdf",
	"text/plain",
}

// MaxAttachmentSize is the largest inline attachment accepted, in bytes of
// decoded payload.
const MaxAttachmentSize = 4 << 20 // 4MB

// ValidateAttachment checks a media item against the supported types and the
// size limit. The size is estimated from the base64 length.
func ValidateAttachment(item MediaItem) error {
	supported := false
	for _, prefix := range SupportedAttachmentTypes {
		if strings.HasPrefix(item.MimeType, prefix) {
			supported = true
			break
		}
	}
	if !supported {
		return &AttachmentError{Reason: "unsupported file type: " + item.MimeType}
	}
	if decoded := len(item.Data) / 4 * 3; decoded > MaxAttachmentSize {
		return &AttachmentError{Reason: "file too large"}
	}
	return nil
}

// AttachmentError is a validation failure for an attached file.
type AttachmentError struct {
	Reason string
}

func (e *AttachmentError) Error() string {
	return e.Reason
}
