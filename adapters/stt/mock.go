package stt

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fbconsulting/leadpilot/domain/repositories"
)

// MockSpeechToText is a placeholder implementation for speech recognition
type MockSpeechToText struct {
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*MockSpeechToText)(nil)

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{logger: logger}
}

// InitTranscribeStreaming creates a new mock streaming session
func (s *MockSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	s.logger.Info("Initializing mock streaming transcription",
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding),
		zap.String("language", config.Language))

	return &mockSpeechStream{logger: s.logger}, nil
}

// TranscribeAudio returns a mock transcription for the audio blob
func (s *MockSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	stream, err := s.InitTranscribeStreaming(ctx, config)
	if err != nil {
		return "", err
	}
	if err := stream.Stream(audioData); err != nil {
		return "", err
	}
	return stream.End()
}

type mockSpeechStream struct {
	logger        *zap.Logger
	audioReceived bool
	transcription string
}

// Stream implements mock streaming audio processing
func (m *mockSpeechStream) Stream(data []byte) error {
	m.logger.Info("Processing mock audio chunk", zap.Int("size", len(data)))

	if len(data) > 0 {
		m.audioReceived = true
		// Vary the canned reply with cumulative audio size so callers can
		// exercise different paths
		switch {
		case len(data) > 10000:
			m.transcription = "Hi, I'm interested in automating our customer support workflows."
		case len(data) > 1000:
			m.transcription = "Tell me about your services."
		default:
			m.transcription = "Hello"
		}
	}

	return nil
}

// End returns the mock transcription result
func (m *mockSpeechStream) End() (string, error) {
	m.logger.Info("Ending mock transcription stream", zap.String("result", m.transcription))

	if !m.audioReceived {
		return "", fmt.Errorf("no audio data received")
	}
	if m.transcription == "" {
		return "", fmt.Errorf("no speech detected in audio")
	}
	return m.transcription, nil
}
