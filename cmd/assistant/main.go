package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"smart-assistant/internal/alarm"
	"smart-assistant/internal/asr"
	"smart-assistant/internal/assistant"
	"smart-assistant/internal/audio"
	"smart-assistant/internal/config"
	"smart-assistant/internal/llm"
	"smart-assistant/internal/playback"
	"smart-assistant/internal/state"
	"smart-assistant/internal/tools"
	"smart-assistant/internal/tts"
	"smart-assistant/internal/wakeword"
)

// loadClip reads a sound asset, returning nil when the file is missing
// or undecodable so a lost asset degrades instead of aborting startup
func loadClip(path string, sampleRate int) *audio.Clip {
	clip, err := audio.LoadClip(path, sampleRate)
	if err != nil {
		log.Printf("Failed to load %s: %v", path, err)
		return nil
	}
	return clip
}

func run() error {
	cfg := config.Load()

	st := state.New()

	out, err := audio.NewOutput(audio.SampleRate)
	if err != nil {
		return fmt.Errorf("failed to open audio output: %w", err)
	}
	defer out.Close()

	engine := playback.NewEngine(st, out, cfg.Gain)

	beep := loadClip(cfg.BeepPath, audio.SampleRate)
	ringtone := loadClip(cfg.RingtonePath, audio.SampleRate)
	if ringtone == nil {
		// fall back to the beep so a fired alarm is still audible
		ringtone = beep
	}

	// a broken or missing profile disables wake detection but leaves
	// alarms running
	detector, err := wakeword.New(wakeword.Config{
		Keyword:     cfg.WakeWord,
		ProfilePath: cfg.WakeProfilePath,
		Sensitivity: cfg.WakeSensitivity,
	})
	if err != nil {
		log.Printf("Wake word unavailable: %v", err)
		detector = nil
	}

	asrClient := asr.NewClient(cfg.GroqAPIKey, asr.DefaultBaseURL, "")
	llmClient := llm.NewClient(cfg.GroqAPIKey, llm.DefaultBaseURL, cfg.LLMModel)
	ttsClient := tts.NewClient(cfg.DeepgramAPIKey, tts.DefaultBaseURL, cfg.VoiceModel, audio.SampleRate)
	searchClient := tools.NewSearchClient(cfg.SerperAPIKey, tools.DefaultSearchBaseURL)

	asst, err := assistant.New(&assistant.Options{
		State:        st,
		Engine:       engine,
		Detector:     detector,
		Transcriber:  asrClient,
		Completer:    llmClient,
		Synthesizer:  ttsClient,
		Searcher:     searchClient,
		Beep:         beep,
		SystemPrompt: cfg.SystemInstructions,
	})
	if err != nil {
		return fmt.Errorf("failed to build assistant: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nStop signal received, shutting down...")
		st.RequestStop()
		st.SetInterrupted(true)
		cancel()
	}()

	tools.NewWeatherClient(tools.DefaultWeatherBaseURL, cfg.WeatherCity).FetchBackground(st)

	scheduler := alarm.NewScheduler(st, engine, ringtone)
	go scheduler.Run(ctx)

	fmt.Println("=== Smart assistant ready ===")
	asst.RunWakeLoop(ctx)

	engine.Stop()
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("Assistant failed: %v", err)
	}
}
