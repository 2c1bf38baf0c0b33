package tts

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestNewElevenLabsTTS(t *testing.T) {
	logger := zaptest.NewLogger(t)

	// Test without API key
	os.Unsetenv("ELEVEN_LABS_API_KEY")
	config := NewElevenLabsConfigFromEnv()
	_, err := NewElevenLabsTTS(config, logger)
	if err == nil {
		t.Error("Expected error when API key is not set")
	}

	// Test with API key
	os.Setenv("ELEVEN_LABS_API_KEY", "test-api-key")
	defer os.Unsetenv("ELEVEN_LABS_API_KEY")

	config = NewElevenLabsConfigFromEnv()
	tts, err := NewElevenLabsTTS(config, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if tts.config.APIKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got '%s'", tts.config.APIKey)
	}
	if tts.config.VoiceID != defaultVoiceID {
		t.Errorf("Expected default voice ID '%s', got '%s'", defaultVoiceID, tts.config.VoiceID)
	}
	if tts.config.OutputFormat != defaultOutputFormat {
		t.Errorf("Expected default output format '%s', got '%s'", defaultOutputFormat, tts.config.OutputFormat)
	}
}

func TestElevenLabsTTS_SetVoiceSettings(t *testing.T) {
	logger := zaptest.NewLogger(t)

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key"}, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	tts.SetVoiceSettings(0.8, 0.9)

	if tts.config.Stability != 0.8 {
		t.Errorf("Expected stability 0.8, got %f", tts.config.Stability)
	}
	if tts.config.Clarity != 0.9 {
		t.Errorf("Expected clarity 0.9, got %f", tts.config.Clarity)
	}
}

func TestElevenLabsTTS_ConvertTextToSpeech_EmptyText(t *testing.T) {
	logger := zaptest.NewLogger(t)

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key"}, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if _, err := tts.ConvertTextToSpeech(context.Background(), "   "); err == nil {
		t.Error("Expected error for empty text")
	}
}

func TestElevenLabsTTS_ConvertTextToSpeech_Streaming(t *testing.T) {
	logger := zaptest.NewLogger(t)

	payload := bytes.Repeat([]byte{0xAB}, 100)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-api-key" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("Accept") != "audio/mpeg" {
			t.Errorf("expected audio/mpeg accept header for mp3 output, got %s", r.Header.Get("Accept"))
		}
		w.WriteHeader(http.StatusOK)
		w.Write(payload)
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{
		APIKey:     "test-api-key",
		APIBaseURL: server.URL,
		ChunkSize:  32,
	}, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	audioChan, err := tts.ConvertTextToSpeech(ctx, "hello world")
	if err != nil {
		t.Fatalf("ConvertTextToSpeech failed: %v", err)
	}

	var received []byte
	for chunk := range audioChan {
		received = append(received, chunk...)
	}

	if !bytes.Equal(received, payload) {
		t.Errorf("expected %d bytes back, got %d", len(payload), len(received))
	}
}

func TestElevenLabsTTS_ConvertTextToSpeech_UpstreamError(t *testing.T) {
	logger := zaptest.NewLogger(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{
		APIKey:     "test-api-key",
		APIBaseURL: server.URL,
	}, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	audioChan, err := tts.ConvertTextToSpeech(context.Background(), "hello")
	if err != nil {
		t.Fatalf("ConvertTextToSpeech failed: %v", err)
	}

	// Upstream errors close the channel without data; the caller sees an
	// empty stream, not a crash.
	var total int
	for chunk := range audioChan {
		total += len(chunk)
	}
	if total != 0 {
		t.Errorf("expected no audio on upstream error, got %d bytes", total)
	}
}
