// Package stt streams caller-supplied audio to Deepgram and emits one
// finalized transcript per recognized utterance. Interim results are never
// surfaced: the dialogue loop only consumes complete utterances.
package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"

	"github.com/myravoice/myra/internal/logger"
)

const listenHost = "api.deepgram.com"

type Recognizer struct {
	apiKey       string
	onTranscript func(string)

	conn   *websocket.Conn
	connMu sync.Mutex

	// pending accumulates finalized fragments until the service marks the
	// end of the utterance.
	pending   []string
	pendingMu sync.Mutex
}

// NewRecognizer builds a recognizer that calls onTranscript once per
// finalized utterance.
func NewRecognizer(apiKey string, onTranscript func(string)) *Recognizer {
	return &Recognizer{apiKey: apiKey, onTranscript: onTranscript}
}

// Start opens the streaming connection and begins processing responses.
// Audio is supplied by the caller through SendAudio.
func (r *Recognizer) Start(ctx context.Context, encoding string, sampleRate int) error {
	listenURL, _ := url.Parse("wss://" + listenHost + "/v1/listen")
	queryParams := listenURL.Query()
	queryParams.Set("encoding", encoding)
	queryParams.Set("sample_rate", strconv.Itoa(sampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", "nova-3")
	queryParams.Set("language", "en-IN")
	queryParams.Set("smart_format", "true")
	queryParams.Set("endpointing", "300")
	queryParams.Set("utterance_end_ms", "1000")
	listenURL.RawQuery = queryParams.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, listenURL.String(),
		http.Header{"Authorization": {"Token " + r.apiKey}})
	if err != nil {
		return fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	r.connMu.Lock()
	r.conn = conn
	r.connMu.Unlock()

	go r.readAndProcessMessages(ctx, conn)
	go r.keepAlive(ctx)

	return nil
}

// SendAudio forwards one chunk of raw audio to the recognizer.
func (r *Recognizer) SendAudio(audio []byte) error {
	r.connMu.Lock()
	defer r.connMu.Unlock()

	if r.conn == nil {
		return fmt.Errorf("recognizer not started")
	}
	if err := r.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

func (r *Recognizer) Close() error {
	r.connMu.Lock()
	defer r.connMu.Unlock()

	if r.conn == nil {
		return nil
	}
	_ = r.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)})
	err := r.conn.Close()
	r.conn = nil
	return err
}

func (r *Recognizer) readAndProcessMessages(ctx context.Context, conn *websocket.Conn) {
	for {
		if ctx.Err() != nil {
			return
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("deepgram read failed, stopping recognizer", "error", err)
			}
			return
		}

		var parsedMsg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &parsedMsg); err != nil {
			continue
		}

		switch api.TypeResponse(parsedMsg.Type) {
		case api.TypeMessageResponse:
			var msgResp api.MessageResponse
			if err := json.Unmarshal(msg, &msgResp); err != nil {
				logger.Debug("unparseable transcription message", "error", err)
				continue
			}
			r.handleMessage(msgResp)

		case api.TypeUtteranceEndResponse:
			r.flushPending()
		}
	}
}

func (r *Recognizer) handleMessage(msg api.MessageResponse) {
	if len(msg.Channel.Alternatives) == 0 {
		return
	}
	transcript := strings.TrimSpace(msg.Channel.Alternatives[0].Transcript)

	if !msg.IsFinal || transcript == "" {
		return
	}

	r.pendingMu.Lock()
	r.pending = append(r.pending, transcript)
	r.pendingMu.Unlock()

	if msg.SpeechFinal {
		r.flushPending()
	}
}

// flushPending joins accumulated fragments into one utterance and hands it
// to the dialogue loop.
func (r *Recognizer) flushPending() {
	r.pendingMu.Lock()
	utterance := strings.TrimSpace(strings.Join(r.pending, " "))
	r.pending = nil
	r.pendingMu.Unlock()

	if utterance == "" {
		return
	}
	r.onTranscript(utterance)
}

// keepAlive keeps the websocket open while the user is quiet.
func (r *Recognizer) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.connMu.Lock()
			conn := r.conn
			if conn != nil {
				if err := conn.WriteJSON(struct {
					Type string `json:"type"`
				}{Type: "KeepAlive"}); err != nil {
					logger.Debug("failed to send keepalive", "error", err)
				}
			}
			r.connMu.Unlock()
		}
	}
}
