// Package app wires the assistant together: configuration, collaborators,
// the speech pipeline and the dialogue session, plus the input loop that
// feeds it.
package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/myravoice/myra/internal/config"
	"github.com/myravoice/myra/internal/dialogue"
	"github.com/myravoice/myra/internal/llm"
	"github.com/myravoice/myra/internal/logger"
	"github.com/myravoice/myra/internal/news"
	"github.com/myravoice/myra/internal/ratelimit"
	"github.com/myravoice/myra/internal/server"
	"github.com/myravoice/myra/internal/speech"
	"github.com/myravoice/myra/internal/speech/deepgram"
	"github.com/myravoice/myra/internal/stt"
	"github.com/myravoice/myra/internal/weather"
)

// Run starts the assistant and blocks until the input source is exhausted
// or the process receives an interrupt.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feeds, err := news.LoadFeeds(cfg.FeedsConfigPath)
	if err != nil {
		logger.Warn("feeds config unavailable, using defaults", "path", cfg.FeedsConfigPath, "error", err)
		feeds = news.DefaultFeeds()
	}
	aggregator := news.NewAggregator(feeds, cfg.NewsCacheTTL)
	weatherClient := weather.NewClient(weather.WithTimeout(cfg.WeatherTimeout))

	limiter := ratelimit.New(cfg.MaxChatRequests, cfg.ChatRequestsPerS)
	completer, err := llm.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, limiter)
	if err != nil {
		return fmt.Errorf("creating completion client: %w", err)
	}
	defer completer.Close()

	synth, closeAudio, err := buildSynthesizer(cfg)
	if err != nil {
		return err
	}
	defer closeAudio()

	scheduler := speech.NewScheduler(synth,
		speech.WithGap(cfg.SpeechGap),
		speech.WithPolicy(speech.Policy(cfg.DeliveryPolicy)),
	)

	session := dialogue.NewSession(dialogue.Config{
		Persona: cfg.PersonaName,
		Profile: dialogue.Profile{
			Name: cfg.UserName,
			City: cfg.City,
		},
		News:      aggregator,
		Weather:   weatherClient,
		Completer: completer,
		Scheduler: scheduler,
		OnTurn: func(turn dialogue.Turn) {
			fmt.Printf("[%s] %s\n", turn.Speaker, turn.Text)
		},
	})

	srv := server.New(":"+cfg.HTTPPort, aggregator, weatherClient)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("collaborator server stopped", "error", err)
		}
	}()

	session.Welcome()

	if cfg.AudioInPath != "" {
		err = runAudioInput(ctx, cfg, session)
	} else {
		err = runTextInput(ctx, session)
	}

	// Let scheduled segments finish speaking before tearing down.
	scheduler.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("collaborator server shutdown", "error", shutdownErr)
	}

	return err
}

// buildSynthesizer picks the voice backend: Deepgram when a key is set,
// console echo otherwise. Synthesized audio goes to AUDIO_OUT_PATH when
// configured and is discarded otherwise.
func buildSynthesizer(cfg *config.Config) (speech.Synthesizer, func(), error) {
	if cfg.DeepgramAPIKey == "" {
		logger.Info("no speech key set, using console output")
		return speech.NewConsoleSynthesizer(os.Stdout), func() {}, nil
	}

	var sink io.WriteCloser
	if cfg.AudioOutPath != "" {
		f, err := os.Create(cfg.AudioOutPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening audio sink: %w", err)
		}
		sink = f
	}

	onAudio := func(chunk []byte) {
		if sink == nil {
			return
		}
		if _, err := sink.Write(chunk); err != nil {
			logger.Warn("writing synthesized audio", "error", err)
		}
	}

	closeAudio := func() {
		if sink != nil {
			sink.Close()
		}
	}
	return deepgram.NewSynthesizer(cfg.DeepgramAPIKey, cfg.DeepgramVoice, onAudio), closeAudio, nil
}

// runTextInput reads utterances line by line from stdin.
func runTextInput(ctx context.Context, session *dialogue.Session) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		session.Submit(ctx, scanner.Text())
		fmt.Print("> ")
	}
	return scanner.Err()
}

const (
	audioEncoding   = "linear16"
	audioSampleRate = 16000
	// audioChunkSize is 100ms of 16kHz 16-bit mono.
	audioChunkSize = 3200
)

// runAudioInput streams raw PCM from the configured source through the
// transcriber; finalized utterances feed the session like typed ones.
func runAudioInput(ctx context.Context, cfg *config.Config, session *dialogue.Session) error {
	source, err := os.Open(cfg.AudioInPath)
	if err != nil {
		return fmt.Errorf("opening audio source: %w", err)
	}
	defer source.Close()

	recognizer := stt.NewRecognizer(cfg.DeepgramAPIKey, func(utterance string) {
		session.Submit(ctx, utterance)
	})
	if err := recognizer.Start(ctx, audioEncoding, audioSampleRate); err != nil {
		return fmt.Errorf("starting transcription: %w", err)
	}
	defer recognizer.Close()

	buf := make([]byte, audioChunkSize)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := source.Read(buf)
		if n > 0 {
			if sendErr := recognizer.SendAudio(buf[:n]); sendErr != nil {
				return fmt.Errorf("sending audio: %w", sendErr)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading audio source: %w", err)
		}
		// Pace the stream at roughly real time.
		time.Sleep(100 * time.Millisecond)
	}
}
