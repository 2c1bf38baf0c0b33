package client

import (
	"sync"

	"go.uber.org/zap"

	"github.com/fbconsulting/leadpilot/domain/entities"
	"github.com/fbconsulting/leadpilot/internal/websocket"
)

// Transport is the slice of the session the orchestrator sends through.
type Transport interface {
	Send(payload interface{}) bool
}

// Orchestrator composes the session and the audio engine into a chat: user
// input goes out as typed frames, inbound text fills the message list,
// binary frames feed the audio engine.
type Orchestrator struct {
	transport Transport
	audio     *Engine
	logger    *zap.Logger

	// Notify receives short user-facing notices (validation failures,
	// transient errors). May be nil.
	Notify func(message string)

	mu       sync.Mutex
	messages []entities.ChatMessage
	// index of the assistant message currently streaming in, -1 when none
	loading int
}

// NewOrchestrator wires a transport and an audio engine together. Register
// SessionHandlers with the session to route inbound events here.
func NewOrchestrator(transport Transport, audio *Engine, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		transport: transport,
		audio:     audio,
		logger:    logger,
		loading:   -1,
	}
}

// SessionHandlers returns the handler set that routes session events into
// this orchestrator.
func (o *Orchestrator) SessionHandlers() Handlers {
	return Handlers{
		OnText:     o.HandleText,
		OnBinary:   o.HandleBinary,
		OnError:    o.HandleError,
		OnComplete: o.HandleComplete,
	}
}

// SendMessage validates and sends one user message. Empty input and
// invalid attachments are rejected locally, before any frame is built.
// Returns whether the message went out.
func (o *Orchestrator) SendMessage(text string, files []entities.MediaItem, enableTTS bool) bool {
	userMessage := entities.NewChatMessage(entities.RoleUser, text)
	userMessage.MediaItems = files

	if userMessage.IsEmpty() {
		o.notify("Please enter a message")
		return false
	}
	for _, file := range files {
		if err := entities.ValidateAttachment(file); err != nil {
			o.notify(err.Error())
			return false
		}
	}

	var frame interface{}
	if len(files) > 0 {
		frame = &websocket.MultimodalMessage{
			BaseMessage: websocket.BaseMessage{Type: websocket.MessageTypeMultimodal},
			Text:        text,
			Files:       files,
			Role:        string(entities.RoleUser),
			EnableTTS:   enableTTS,
		}
	} else {
		frame = &websocket.TextMessage{
			BaseMessage: websocket.BaseMessage{Type: websocket.MessageTypeText},
			Text:        text,
			Role:        string(entities.RoleUser),
			EnableTTS:   enableTTS,
		}
	}

	if !o.transport.Send(frame) {
		o.notify("Not connected, please try again")
		return false
	}

	placeholder := entities.NewChatMessage(entities.RoleAssistant, "")
	placeholder.IsLoading = true

	o.mu.Lock()
	o.messages = append(o.messages, userMessage, placeholder)
	o.loading = len(o.messages) - 1
	o.mu.Unlock()
	return true
}

// HandleText fills the streaming assistant message. A text frame with no
// send in flight starts a fresh assistant message.
func (o *Orchestrator) HandleText(content string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.loading >= 0 && o.loading < len(o.messages) {
		o.messages[o.loading].Content = content
		return
	}

	message := entities.NewChatMessage(entities.RoleAssistant, content)
	message.IsLoading = true
	o.messages = append(o.messages, message)
	o.loading = len(o.messages) - 1
}

// HandleBinary forwards an audio chunk to the engine.
func (o *Orchestrator) HandleBinary(data []byte) {
	o.audio.HandleChunk(data)
}

// HandleError converts an upstream error into an error-role bubble. The
// connection stays up.
func (o *Orchestrator) HandleError(message string) {
	o.mu.Lock()
	if o.loading >= 0 && o.loading < len(o.messages) {
		o.messages[o.loading].Role = entities.RoleError
		o.messages[o.loading].Content = message
		o.messages[o.loading].IsLoading = false
		o.loading = -1
	} else {
		o.messages = append(o.messages, entities.NewChatMessage(entities.RoleError, message))
	}
	o.mu.Unlock()

	o.notify(message)
}

// HandleComplete finalizes the streaming message and starts playback of
// any audio that arrived with the response.
func (o *Orchestrator) HandleComplete() {
	o.mu.Lock()
	if o.loading >= 0 && o.loading < len(o.messages) {
		o.messages[o.loading].IsLoading = false
	}
	o.loading = -1
	o.mu.Unlock()

	o.audio.PlayQueuedChunks()
}

// Messages returns a snapshot of the transcript.
func (o *Orchestrator) Messages() []entities.ChatMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]entities.ChatMessage(nil), o.messages...)
}

// ClearChat drops the transcript and any buffered or playing audio.
func (o *Orchestrator) ClearChat() {
	o.mu.Lock()
	o.messages = nil
	o.loading = -1
	o.mu.Unlock()

	o.audio.Clear()
}

func (o *Orchestrator) notify(message string) {
	if o.Notify != nil {
		o.Notify(message)
	}
}
