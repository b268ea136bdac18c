// Package config loads assistant settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Persona / user profile
	PersonaName string // name the assistant speaks as
	UserName    string // who it is talking to
	City        string // default city for local news and weather

	// Gemini settings
	GeminiAPIKey     string
	GeminiModel      string
	MaxChatRequests  int     // daily budget for chat completions (0 = unlimited)
	ChatRequestsPerS float64 // request pacing for the completion client

	// Deepgram settings (optional; text-only mode without them)
	DeepgramAPIKey string
	DeepgramVoice  string
	AudioOutPath   string // raw synthesized audio sink ("" = discard)
	AudioInPath    string // raw microphone audio source ("" = stdin text)

	// News settings
	FeedsConfigPath string
	NewsCacheTTL    time.Duration

	// Weather settings
	WeatherTimeout time.Duration

	// Speech delivery
	SpeechGap      time.Duration // offset between scheduled segments
	DeliveryPolicy string        // "interleave" (source behavior) or "cancel"

	// HTTP settings
	HTTPPort string

	// App settings
	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		PersonaName:      "Myra",
		City:             "Delhi",
		GeminiModel:      "gemini-1.5-flash",
		MaxChatRequests:  200,
		ChatRequestsPerS: 1,
		DeepgramVoice:    "aura-2-thalia-en",
		FeedsConfigPath:  "configs/feeds.yaml",
		NewsCacheTTL:     5 * time.Minute,
		WeatherTimeout:   10 * time.Second,
		SpeechGap:        7500 * time.Millisecond,
		DeliveryPolicy:   "interleave",
		HTTPPort:         "8080",
	}

	// Load from environment
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.DeepgramAPIKey = os.Getenv("DEEPGRAM_API_KEY")

	cfg.PersonaName = getEnvOrDefault("PERSONA_NAME", cfg.PersonaName)
	cfg.UserName = os.Getenv("USER_NAME")
	cfg.City = getEnvOrDefault("USER_CITY", cfg.City)
	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.DeepgramVoice = getEnvOrDefault("DEEPGRAM_VOICE", cfg.DeepgramVoice)
	cfg.AudioOutPath = os.Getenv("AUDIO_OUT_PATH")
	cfg.AudioInPath = os.Getenv("AUDIO_IN_PATH")
	cfg.FeedsConfigPath = getEnvOrDefault("FEEDS_CONFIG_PATH", cfg.FeedsConfigPath)
	cfg.HTTPPort = getEnvOrDefault("HTTP_PORT", cfg.HTTPPort)

	cfg.MaxChatRequests = getEnvIntOrDefault("MAX_CHAT_REQUESTS", cfg.MaxChatRequests)

	if v := os.Getenv("NEWS_CACHE_TTL_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			cfg.NewsCacheTTL = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("WEATHER_TIMEOUT_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.WeatherTimeout = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("SPEECH_GAP_MS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.SpeechGap = time.Duration(val) * time.Millisecond
		}
	}
	if policy := os.Getenv("DELIVERY_POLICY"); policy != "" {
		cfg.DeliveryPolicy = policy
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.DeliveryPolicy != "interleave" && c.DeliveryPolicy != "cancel" {
		return fmt.Errorf("DELIVERY_POLICY must be 'interleave' or 'cancel'")
	}
	if c.AudioInPath != "" && c.DeepgramAPIKey == "" {
		return fmt.Errorf("AUDIO_IN_PATH requires DEEPGRAM_API_KEY for transcription")
	}
	return nil
}
