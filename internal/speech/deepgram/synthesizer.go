// Package deepgram implements the speech.Synthesizer contract over
// Deepgram's streaming speak API. Each utterance opens one websocket,
// sends the text, and drains audio chunks into the configured sink until
// the service flushes.
package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/myravoice/myra/internal/logger"
)

const speakHost = "api.deepgram.com"

type Synthesizer struct {
	apiKey  string
	voice   string
	onAudio func([]byte)

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSynthesizer builds a synthesizer speaking with the given voice model.
// onAudio receives raw audio chunks as they arrive; it must not block.
func NewSynthesizer(apiKey, voice string, onAudio func([]byte)) *Synthesizer {
	if onAudio == nil {
		onAudio = func([]byte) {}
	}
	return &Synthesizer{apiKey: apiKey, voice: voice, onAudio: onAudio}
}

type speakMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Speak synthesizes one segment and blocks until the audio stream has been
// fully flushed or ctx is cancelled.
func (s *Synthesizer) Speak(ctx context.Context, text string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock the read loop when the utterance is cancelled.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if err := conn.WriteJSON(speakMessage{Type: "Speak", Text: text}); err != nil {
		return fmt.Errorf("failed to send text to deepgram: %w", err)
	}
	if err := conn.WriteJSON(speakMessage{Type: "Flush"}); err != nil {
		return fmt.Errorf("failed to flush deepgram stream: %w", err)
	}

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read from deepgram: %w", err)
		}

		switch msgType {
		case websocket.BinaryMessage:
			s.onAudio(msg)
		case websocket.TextMessage:
			var parsed speakMessage
			if err := json.Unmarshal(msg, &parsed); err != nil {
				logger.Debug("unparseable deepgram control message", "error", err)
				continue
			}
			if parsed.Type == "Flushed" {
				return nil
			}
		}
	}
}

// Stop aborts the in-flight utterance, if any.
func (s *Synthesizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Synthesizer) connect(ctx context.Context) (*websocket.Conn, error) {
	urlValues := url.Values{}
	urlValues.Set("model", s.voice)
	urlValues.Set("encoding", "linear16")
	urlValues.Set("sample_rate", "24000")
	urlValues.Set("container", "none")

	speakURL := url.URL{
		Scheme:   "wss",
		Host:     speakHost,
		Path:     "/v1/speak",
		RawQuery: urlValues.Encode(),
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, speakURL.String(),
		http.Header{"Authorization": {"Token " + s.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}
