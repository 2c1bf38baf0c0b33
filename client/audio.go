package client

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

const progressInterval = 100 * time.Millisecond

// Engine buffers binary audio chunks arriving over the session and plays
// them through an injected sink. Chunks queue in arrival order and are
// concatenated byte-exact before playback; the queue is cleared the moment
// playback of an utterance starts, so chunks arriving afterwards belong to
// the next utterance.
type Engine struct {
	sink     io.Writer
	autoPlay bool
	logger   *zap.Logger

	// OnProgress receives playback progress in [0, 100] at roughly 10 Hz.
	OnProgress func(percent float64)
	// OnError receives decode and playback failures. The engine stays
	// stopped and reusable after reporting one.
	OnError func(message string)

	mu         sync.Mutex
	queue      [][]byte
	playing    bool
	generation int
}

// NewEngine creates an engine writing decoded audio to sink. With autoPlay
// set, the first chunk arriving while idle triggers playback immediately.
func NewEngine(sink io.Writer, autoPlay bool, logger *zap.Logger) *Engine {
	return &Engine{
		sink:     sink,
		autoPlay: autoPlay,
		logger:   logger,
	}
}

// HandleChunk appends one binary chunk to the queue. Never blocks the
// caller; with autoPlay enabled and nothing playing, playback of the queue
// starts asynchronously.
func (e *Engine) HandleChunk(chunk []byte) {
	buffered := append([]byte(nil), chunk...)

	e.mu.Lock()
	e.queue = append(e.queue, buffered)
	start := e.autoPlay && !e.playing
	e.mu.Unlock()

	if start {
		go e.PlayQueuedChunks()
	}
}

// PlayQueuedChunks concatenates everything queued so far, clears the
// queue, and plays the combined buffer. Safe to call with an empty queue.
func (e *Engine) PlayQueuedChunks() {
	e.mu.Lock()
	if len(e.queue) == 0 || e.playing {
		e.mu.Unlock()
		return
	}
	var combined []byte
	for _, chunk := range e.queue {
		combined = append(combined, chunk...)
	}
	e.queue = nil
	e.playing = true
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	go e.play(combined, gen)
}

// Playing reports whether an utterance is currently being played.
func (e *Engine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// QueuedChunks reports how many chunks await the next playback.
func (e *Engine) QueuedChunks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Stop halts any in-flight playback and resets progress to 0. Safe to call
// when nothing is playing.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.generation++
	wasPlaying := e.playing
	e.playing = false
	e.mu.Unlock()

	if wasPlaying && e.OnProgress != nil {
		e.OnProgress(0)
	}
}

// Clear stops playback and discards any unplayed chunks.
func (e *Engine) Clear() {
	e.Stop()
	e.mu.Lock()
	e.queue = nil
	e.mu.Unlock()
}

// play decodes and writes one combined utterance. The generation guard
// discards the result if Stop or Clear ran after this playback started.
func (e *Engine) play(combined []byte, gen int) {
	duration, err := decodeDuration(combined)
	if err != nil {
		e.finish(gen, false)
		e.logger.Warn("Failed to decode audio", zap.Error(err))
		if e.OnError != nil {
			e.OnError("failed to decode audio: " + err.Error())
		}
		return
	}

	if e.stale(gen) {
		return
	}

	if _, err := e.sink.Write(combined); err != nil {
		e.finish(gen, false)
		e.logger.Warn("Audio sink write failed", zap.Error(err))
		if e.OnError != nil {
			e.OnError("audio output failed: " + err.Error())
		}
		return
	}

	e.trackProgress(duration, gen)
}

// trackProgress samples elapsed time against the decoded duration at
// roughly 10 Hz until completion or stop.
func (e *Engine) trackProgress(duration time.Duration, gen int) {
	started := time.Now()
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for range ticker.C {
		if e.stale(gen) {
			return
		}
		elapsed := time.Since(started)
		if elapsed >= duration {
			break
		}
		if e.OnProgress != nil {
			e.OnProgress(float64(elapsed) / float64(duration) * 100)
		}
	}

	e.finish(gen, true)
}

func (e *Engine) stale(gen int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation != gen
}

func (e *Engine) finish(gen int, completed bool) {
	e.mu.Lock()
	if e.generation != gen {
		e.mu.Unlock()
		return
	}
	e.playing = false
	restart := e.autoPlay && len(e.queue) > 0
	e.mu.Unlock()

	if completed && e.OnProgress != nil {
		e.OnProgress(100)
	}
	// Chunks that arrived during playback form the next utterance.
	if restart {
		go e.PlayQueuedChunks()
	}
}

// decodeDuration inspects the combined buffer and estimates its playback
// length. WAV buffers are measured exactly from the header; MP3 buffers
// are estimated from the stream size at the nominal bitrate the backend
// synthesizes at. Anything else is a decode error.
func decodeDuration(data []byte) (time.Duration, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty audio buffer")
	}
	if d, ok := wavDuration(data); ok {
		return d, nil
	}
	if isMP3(data) {
		// Backend streams mp3_44100_128; 128 kbit/s.
		seconds := float64(len(data)) * 8 / 128000
		return time.Duration(seconds * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("unrecognized audio format")
}

// wavDuration walks the RIFF chunks for the byte rate and data length.
func wavDuration(data []byte) (time.Duration, bool) {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, false
	}

	var byteRate uint32
	var dataLen uint32
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		body := offset + 8

		switch chunkID {
		case "fmt ":
			if body+16 > len(data) {
				return 0, false
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
		case "data":
			dataLen = chunkSize
		}

		offset = body + int(chunkSize)
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if byteRate == 0 || dataLen == 0 {
		return 0, false
	}
	seconds := float64(dataLen) / float64(byteRate)
	return time.Duration(seconds * float64(time.Second)), true
}

func isMP3(data []byte) bool {
	if len(data) >= 3 && string(data[0:3]) == "ID3" {
		return true
	}
	// Frame sync: 11 set bits.
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}
