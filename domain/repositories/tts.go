package repositories

import "context"

// TextToSpeech converts text into a stream of binary audio chunks. The
// channel is closed when synthesis completes or the context is cancelled.
type TextToSpeech interface {
	ConvertTextToSpeech(ctx context.Context, text string) (<-chan []byte, error)
}
