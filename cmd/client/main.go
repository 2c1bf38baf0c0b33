// Command client is an interactive terminal chat against a running server.
// It exercises the full client stack: the reconnecting session, the audio
// engine, and the orchestrator.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/fbconsulting/leadpilot/client"
)

// lateTransport lets the orchestrator be built before the session that
// carries its frames.
type lateTransport struct {
	session *client.Session
}

func (l *lateTransport) Send(payload interface{}) bool {
	if l.session == nil {
		return false
	}
	return l.session.Send(payload)
}

func main() {
	serverURL := flag.String("server", "ws://localhost:8080", "WebSocket base URL")
	enableTTS := flag.Bool("tts", false, "request audio for every reply")
	audioOut := flag.String("audio-out", "", "file to append received audio to (default: discard)")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	sink, closeSink, err := openSink(*audioOut)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open audio output: %v\n", err)
		os.Exit(1)
	}
	defer closeSink()

	engine := client.NewEngine(sink, false, logger)
	engine.OnError = func(message string) {
		fmt.Printf("\n[audio] %s\n> ", message)
	}

	transport := &lateTransport{}
	orchestrator := client.NewOrchestrator(transport, engine, logger)
	orchestrator.Notify = func(message string) {
		fmt.Printf("\n[notice] %s\n> ", message)
	}

	replyDone := make(chan struct{}, 1)
	handlers := orchestrator.SessionHandlers()
	handlers.OnStateChange = func(state client.ConnectionState) {
		fmt.Printf("\n[connection] %s\n> ", state)
	}
	finalize := handlers.OnComplete
	handlers.OnComplete = func() {
		finalize()
		messages := orchestrator.Messages()
		if len(messages) > 0 {
			last := messages[len(messages)-1]
			fmt.Printf("\n%s: %s\n> ", last.Role, last.Content)
		}
		select {
		case replyDone <- struct{}{}:
		default:
		}
	}

	session := client.NewSession(*serverURL, client.Options{}, handlers, logger)
	transport.session = session

	session.Connect()
	defer session.Disconnect()

	fmt.Printf("Chatting as %s. Type a message, or /quit to exit.\n", session.ClientID())

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := scanner.Text()
		switch line {
		case "/quit":
			return
		case "/clear":
			orchestrator.ClearChat()
		default:
			if orchestrator.SendMessage(line, nil, *enableTTS) {
				select {
				case <-replyDone:
				case <-time.After(60 * time.Second):
					fmt.Println("[timeout] no reply within 60s")
				}
			}
		}
		fmt.Print("> ")
	}
}

func openSink(path string) (io.Writer, func(), error) {
	if path == "" {
		return io.Discard, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
