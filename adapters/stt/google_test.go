package stt

import (
	"context"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap/zaptest"

	"github.com/fbconsulting/leadpilot/domain/repositories"
)

func TestAudioEncoding(t *testing.T) {
	cases := []struct {
		name    string
		want    speechpb.RecognitionConfig_AudioEncoding
		wantErr bool
	}{
		{"WAV", speechpb.RecognitionConfig_LINEAR16, false},
		{"LINEAR16", speechpb.RecognitionConfig_LINEAR16, false},
		{"WEBM_OPUS", speechpb.RecognitionConfig_WEBM_OPUS, false},
		{"MP3", speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, true},
		{"", speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, true},
	}

	for _, c := range cases {
		got, err := audioEncoding(c.name)
		if c.wantErr != (err != nil) {
			t.Errorf("audioEncoding(%q) error = %v, wantErr %v", c.name, err, c.wantErr)
		}
		if got != c.want {
			t.Errorf("audioEncoding(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestMockTranscribeAudio(t *testing.T) {
	mock := NewMockSpeechToText(zaptest.NewLogger(t))

	result, err := mock.TranscribeAudio(context.Background(), make([]byte, 2048), audioConfigForTest())
	if err != nil {
		t.Fatalf("TranscribeAudio failed: %v", err)
	}
	if result == "" {
		t.Error("expected non-empty transcription")
	}
}

func TestMockStreamNoAudio(t *testing.T) {
	mock := NewMockSpeechToText(zaptest.NewLogger(t))

	stream, err := mock.InitTranscribeStreaming(context.Background(), audioConfigForTest())
	if err != nil {
		t.Fatalf("InitTranscribeStreaming failed: %v", err)
	}

	if _, err := stream.End(); err == nil {
		t.Error("expected error when no audio was streamed")
	}
}

func audioConfigForTest() repositories.AudioConfig {
	return repositories.AudioConfig{
		SampleRate: 16000,
		Encoding:   "LINEAR16",
		Language:   "en-US",
	}
}
