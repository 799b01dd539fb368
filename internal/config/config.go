// Package config assembles the runtime configuration from defaults, a
// .env file and environment variables, in that order of precedence.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the assistant's runtime configuration
type Config struct {
	// API keys
	DeepgramAPIKey string
	GroqAPIKey     string
	SerperAPIKey   string

	// Wake word
	WakeWord        string
	WakeProfilePath string
	WakeSensitivity float64

	// Models and prompts
	LLMModel           string
	VoiceModel         string
	SystemInstructions string

	// Weather
	WeatherCity string

	// Playback
	Gain float64

	// Audio assets
	BeepPath     string
	RingtonePath string
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		WakeWord:           "alexa",
		WakeProfilePath:    "alexa.profile.json",
		WakeSensitivity:    0, // detector default
		LLMModel:           "llama-3.3-70b-versatile",
		VoiceModel:         "aura-asteria-en",
		SystemInstructions: "You are a helpful assistant. Keep answers concise.",
		WeatherCity:        "London",
		Gain:               3.0,
		BeepPath:           "beep.wav",
		RingtonePath:       "ringtone.mp3",
	}
}

// Load builds the configuration: defaults, then .env, then environment
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Skipping .env file: %v", err)
	}

	cfg := DefaultConfig()

	cfg.DeepgramAPIKey = os.Getenv("DEEPGRAM_API_KEY")
	cfg.GroqAPIKey = os.Getenv("GROQ_API_KEY")
	cfg.SerperAPIKey = os.Getenv("SERPER_API_KEY")

	cfg.WakeWord = getEnv("WAKE_WORD", cfg.WakeWord)
	cfg.WakeProfilePath = getEnv("WAKE_PROFILE", cfg.WakeProfilePath)
	cfg.WakeSensitivity = getEnvFloat("WAKE_SENSITIVITY", cfg.WakeSensitivity)

	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.VoiceModel = getEnv("VOICE_MODEL", cfg.VoiceModel)
	cfg.SystemInstructions = getEnv("SYSTEM_INSTRUCTIONS", cfg.SystemInstructions)
	cfg.WeatherCity = getEnv("WEATHER_CITY", cfg.WeatherCity)

	cfg.Gain = getEnvFloat("VOLUME_GAIN", cfg.Gain)
	cfg.BeepPath = getEnv("BEEP_FILE", cfg.BeepPath)
	cfg.RingtonePath = getEnv("RINGTONE_FILE", cfg.RingtonePath)

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using %v", key, v, fallback)
		return fallback
	}
	return f
}
