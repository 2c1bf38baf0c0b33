package client

import (
	"bytes"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// safeBuffer is a goroutine-safe sink for decoded audio.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

// buildWAV produces a minimal PCM WAV of the given length at 8 kHz mono
// 8-bit, so byteRate equals 8000 and duration math stays exact.
func buildWAV(ms int) []byte {
	dataLen := 8 * ms
	var buf bytes.Buffer

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))    // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1))    // mono
	binary.Write(&buf, binary.LittleEndian, uint32(8000)) // sample rate
	binary.Write(&buf, binary.LittleEndian, uint32(8000)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(1))    // block align
	binary.Write(&buf, binary.LittleEndian, uint16(8))    // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(bytes.Repeat([]byte{0x80}, dataLen))

	return buf.Bytes()
}

func waitForAudio(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestPlayConcatenatesChunksInOrder(t *testing.T) {
	sink := &safeBuffer{}
	engine := NewEngine(sink, false, zaptest.NewLogger(t))

	wav := buildWAV(50)
	third := len(wav) / 3
	engine.HandleChunk(wav[:third])
	engine.HandleChunk(wav[third : 2*third])
	engine.HandleChunk(wav[2*third:])

	engine.PlayQueuedChunks()

	waitForAudio(t, func() bool {
		return bytes.Equal(sink.Bytes(), wav)
	}, "sink to receive the combined buffer")

	if engine.QueuedChunks() != 0 {
		t.Errorf("Expected queue cleared after playback, got %d chunks", engine.QueuedChunks())
	}
}

func TestStopThenHandleChunkDoesNotResurrect(t *testing.T) {
	sink := &safeBuffer{}
	engine := NewEngine(sink, false, zaptest.NewLogger(t))

	engine.HandleChunk(buildWAV(1000))
	engine.PlayQueuedChunks()
	waitForAudio(t, engine.Playing, "playback to start")

	engine.Stop()
	if engine.Playing() {
		t.Fatal("Expected playback halted after Stop")
	}

	written := len(sink.Bytes())
	engine.HandleChunk([]byte{1, 2, 3})

	time.Sleep(250 * time.Millisecond)
	if engine.Playing() {
		t.Error("Stopped playback resurrected by a new chunk")
	}
	if engine.QueuedChunks() != 1 {
		t.Errorf("Expected only the post-stop chunk queued, got %d", engine.QueuedChunks())
	}
	if len(sink.Bytes()) != written {
		t.Error("Sink received data after Stop")
	}
}

func TestAutoPlayStartsWhenIdle(t *testing.T) {
	sink := &safeBuffer{}
	engine := NewEngine(sink, true, zaptest.NewLogger(t))

	wav := buildWAV(30)
	engine.HandleChunk(wav)

	waitForAudio(t, func() bool {
		return bytes.Equal(sink.Bytes(), wav)
	}, "auto-play to fire")
}

func TestChunksDuringPlaybackFormNextUtterance(t *testing.T) {
	sink := &safeBuffer{}
	engine := NewEngine(sink, false, zaptest.NewLogger(t))

	first := buildWAV(300)
	engine.HandleChunk(first)
	engine.PlayQueuedChunks()
	waitForAudio(t, engine.Playing, "playback to start")

	second := buildWAV(30)
	engine.HandleChunk(second)

	if engine.QueuedChunks() != 1 {
		t.Fatalf("Expected the late chunk queued separately, got %d", engine.QueuedChunks())
	}
	if got := sink.Bytes(); !bytes.Equal(got, first) {
		t.Errorf("Late chunk leaked into the current utterance: %d bytes", len(got))
	}
}

func TestDecodeErrorReportedAndEngineReusable(t *testing.T) {
	sink := &safeBuffer{}
	engine := NewEngine(sink, false, zaptest.NewLogger(t))

	var mu sync.Mutex
	var errs []string
	engine.OnError = func(message string) {
		mu.Lock()
		errs = append(errs, message)
		mu.Unlock()
	}

	engine.HandleChunk([]byte("definitely not audio"))
	engine.PlayQueuedChunks()

	waitForAudio(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) == 1
	}, "decode error to surface")
	if engine.Playing() {
		t.Error("Engine stuck in playing state after decode failure")
	}

	wav := buildWAV(30)
	engine.HandleChunk(wav)
	engine.PlayQueuedChunks()
	waitForAudio(t, func() bool {
		return bytes.Equal(sink.Bytes(), wav)
	}, "engine to play after a decode failure")
}

func TestProgressReachesCompletion(t *testing.T) {
	sink := &safeBuffer{}
	engine := NewEngine(sink, false, zaptest.NewLogger(t))

	var mu sync.Mutex
	var last float64
	engine.OnProgress = func(percent float64) {
		mu.Lock()
		last = percent
		mu.Unlock()
	}

	engine.HandleChunk(buildWAV(150))
	engine.PlayQueuedChunks()

	waitForAudio(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return last == 100
	}, "progress to reach 100")
}

func TestStopSafeWhenIdle(t *testing.T) {
	engine := NewEngine(&safeBuffer{}, false, zaptest.NewLogger(t))
	engine.Stop()
	engine.Stop()
	if engine.Playing() {
		t.Error("Idle engine reports playing after Stop")
	}
}

func TestClearDiscardsQueue(t *testing.T) {
	engine := NewEngine(&safeBuffer{}, false, zaptest.NewLogger(t))
	engine.HandleChunk([]byte{1})
	engine.HandleChunk([]byte{2})
	engine.Clear()
	if engine.QueuedChunks() != 0 {
		t.Errorf("Expected empty queue after Clear, got %d", engine.QueuedChunks())
	}
}

func TestMP3DurationEstimate(t *testing.T) {
	// 16000 bytes at 128 kbit/s is exactly one second.
	data := append([]byte{0xFF, 0xFB}, bytes.Repeat([]byte{0}, 15998)...)
	d, err := decodeDuration(data)
	if err != nil {
		t.Fatalf("decodeDuration failed: %v", err)
	}
	if d != time.Second {
		t.Errorf("Expected 1s, got %v", d)
	}
}

func TestWAVDurationExact(t *testing.T) {
	d, err := decodeDuration(buildWAV(500))
	if err != nil {
		t.Fatalf("decodeDuration failed: %v", err)
	}
	if d != 500*time.Millisecond {
		t.Errorf("Expected 500ms, got %v", d)
	}
}
