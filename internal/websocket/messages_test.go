package websocket

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/fbconsulting/leadpilot/domain/entities"
)

func TestParseInboundPing(t *testing.T) {
	parsed, err := ParseInbound([]byte(`{"type":"ping"}`))
	if err != nil {
		t.Fatalf("ParseInbound failed: %v", err)
	}
	base, ok := parsed.(*BaseMessage)
	if !ok {
		t.Fatalf("Expected *BaseMessage, got %T", parsed)
	}
	if base.Type != MessageTypePing {
		t.Errorf("Expected ping type, got %s", base.Type)
	}
}

func TestParseInboundTextMessage(t *testing.T) {
	payload := `{"type":"text_message","text":"hello","role":"user","enableTTS":true}`
	parsed, err := ParseInbound([]byte(payload))
	if err != nil {
		t.Fatalf("ParseInbound failed: %v", err)
	}
	msg, ok := parsed.(*TextMessage)
	if !ok {
		t.Fatalf("Expected *TextMessage, got %T", parsed)
	}
	if msg.Text != "hello" {
		t.Errorf("Expected text 'hello', got %q", msg.Text)
	}
	if !msg.EnableTTS {
		t.Error("Expected EnableTTS true")
	}
}

func TestParseInboundTextMessageRequiresText(t *testing.T) {
	if _, err := ParseInbound([]byte(`{"type":"text_message","text":""}`)); err == nil {
		t.Error("Expected error for empty text")
	}
}

func TestParseInboundMultimodal(t *testing.T) {
	payload := `{"type":"multimodal_message","text":"look at this","files":[{"mime_type":"image/png","data":"aGVsbG8=","filename":"shot.png"}],"role":"user","enableTTS":false}`
	parsed, err := ParseInbound([]byte(payload))
	if err != nil {
		t.Fatalf("ParseInbound failed: %v", err)
	}
	msg, ok := parsed.(*MultimodalMessage)
	if !ok {
		t.Fatalf("Expected *MultimodalMessage, got %T", parsed)
	}
	if len(msg.Files) != 1 || msg.Files[0].MimeType != "image/png" {
		t.Errorf("Unexpected files: %+v", msg.Files)
	}
}

func TestParseInboundMultimodalRejectsUnsupportedType(t *testing.T) {
	payload := `{"type":"multimodal_message","text":"x","files":[{"mime_type":"application/x-msdownload","data":"aGVsbG8="}]}`
	_, err := ParseInbound([]byte(payload))
	if err == nil {
		t.Fatal("Expected error for unsupported attachment type")
	}
	var attachmentErr *entities.AttachmentError
	if !errors.As(err, &attachmentErr) {
		t.Errorf("Expected AttachmentError, got %T: %v", err, err)
	}
}

func TestParseInboundUnknownType(t *testing.T) {
	if _, err := ParseInbound([]byte(`{"type":"mystery"}`)); err == nil {
		t.Error("Expected error for unknown type")
	}
	if _, err := ParseInbound([]byte(`not json at all`)); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestOutboundFrames(t *testing.T) {
	cases := []struct {
		frame    interface{}
		wantType string
	}{
		{NewTextReply("hi"), "text"},
		{NewErrorMessage("boom"), "error"},
		{NewCompleteMessage(), "complete"},
		{NewPongMessage(), "pong"},
		{NewServerPingMessage(), "server_ping"},
	}

	for _, c := range cases {
		payload := marshalFrame(c.frame)
		var decoded map[string]interface{}
		if err := json.Unmarshal(payload, &decoded); err != nil {
			t.Fatalf("Failed to decode frame: %v", err)
		}
		if decoded["type"] != c.wantType {
			t.Errorf("Expected type %q, got %v", c.wantType, decoded["type"])
		}
		if decoded["timestamp"] == "" {
			t.Errorf("Frame %q missing timestamp", c.wantType)
		}
	}
}

func TestNewTextReplyContent(t *testing.T) {
	payload := marshalFrame(NewTextReply("a reply with \"quotes\""))
	if !strings.Contains(string(payload), `a reply with \"quotes\"`) {
		t.Errorf("Content not preserved: %s", payload)
	}
}
