// Package assistant is the top-level conversation orchestrator: wake
// detection, utterance capture, intent dispatch and spoken response,
// with alarm rings pre-empting the loop at any point.
package assistant

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"smart-assistant/internal/alarm"
	"smart-assistant/internal/audio"
	"smart-assistant/internal/llm"
	"smart-assistant/internal/playback"
	"smart-assistant/internal/state"
	"smart-assistant/internal/tools"
	"smart-assistant/internal/tts"
	"smart-assistant/internal/vad"
	"smart-assistant/internal/wakeword"
)

const (
	// captureSeconds is the hard ceiling on one utterance
	captureSeconds = 6

	// captureAmplitudeScale converts capture loudness into the
	// visualizer range
	captureAmplitudeScale = 30.0

	// beepSettleDelay lets the acknowledgment beep finish before the
	// microphone starts capturing
	beepSettleDelay = 500 * time.Millisecond

	// speakingGrace and speakingPoll pace the wait for playback to end
	speakingGrace = 500 * time.Millisecond
	speakingPoll  = 100 * time.Millisecond

	// idlePoll paces the parked wake path's shutdown checks
	idlePoll = 200 * time.Millisecond

	// focusReclaimDelay gives an external browser time to open before
	// the front-end takes the foreground back
	focusReclaimDelay = 3 * time.Second

	// historyLimit caps the in-memory conversation context
	historyLimit = 20

	chatErrorReply     = "Error generating response."
	parseFallbackReply = "Please say a time, like '5 PM'."
)

// Transcriber converts a WAV buffer to text
type Transcriber interface {
	Transcribe(ctx context.Context, wavData []byte) (string, error)
}

// Completer generates the fallback chat response
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, history []llm.Message, userText string) (string, error)
}

// Synthesizer streams synthesized speech into a chunk sink
type Synthesizer interface {
	Stream(ctx context.Context, text string, sink tts.ChunkSink, interrupted func() bool) error
}

// Searcher answers a web-search query with a spoken-friendly snippet
type Searcher interface {
	Search(query string) string
}

// FrameReader is a fixed-frame audio input, normally a device stream
type FrameReader interface {
	ReadFrame() ([]int16, error)
	FrameLength() int
	Close() error
}

// Options wires the orchestrator's collaborators
type Options struct {
	State       *state.State
	Engine      *playback.Engine
	Detector    *wakeword.Detector // nil disables wake listening
	Transcriber Transcriber
	Completer   Completer
	Synthesizer Synthesizer
	Searcher    Searcher
	Beep        *audio.Clip // nil disables the acknowledgment beep

	SystemPrompt string
}

// Assistant runs the conversation loop
type Assistant struct {
	st          *state.State
	engine      *playback.Engine
	detector    *wakeword.Detector
	transcriber Transcriber
	completer   Completer
	synthesizer Synthesizer
	searcher    Searcher
	beep        *audio.Clip

	systemPrompt string
	history      []llm.Message

	openInput    func(frameLen int) (FrameReader, error)
	openMedia    func(query string) (bool, string)
	reclaimFocus func()
	now          func() time.Time
}

// New creates the orchestrator
func New(opts *Options) (*Assistant, error) {
	if opts == nil {
		return nil, fmt.Errorf("options are nil")
	}
	if opts.State == nil {
		return nil, fmt.Errorf("state is nil")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("playback engine is nil")
	}
	if opts.Transcriber == nil {
		return nil, fmt.Errorf("transcriber is nil")
	}
	if opts.Completer == nil {
		return nil, fmt.Errorf("completer is nil")
	}
	if opts.Synthesizer == nil {
		return nil, fmt.Errorf("synthesizer is nil")
	}
	if opts.Searcher == nil {
		return nil, fmt.Errorf("searcher is nil")
	}

	return &Assistant{
		st:           opts.State,
		engine:       opts.Engine,
		detector:     opts.Detector,
		transcriber:  opts.Transcriber,
		completer:    opts.Completer,
		synthesizer:  opts.Synthesizer,
		searcher:     opts.Searcher,
		beep:         opts.Beep,
		systemPrompt: opts.SystemPrompt,
		openInput: func(frameLen int) (FrameReader, error) {
			return audio.NewInput(frameLen)
		},
		openMedia: tools.OpenYouTube,
		now:       time.Now,
	}, nil
}

// SetReclaimFocus registers the callback used to bring the front-end
// back to the foreground after an external app was opened
func (a *Assistant) SetReclaimFocus(f func()) {
	a.reclaimFocus = f
}

// RunWakeLoop is the passive listening loop. It feeds fixed-size frames
// to the wake-word detector and enters a conversation turn on a trigger
// or on a ringing alarm. When the wake path cannot run at all (no
// detector, no input device) the loop parks instead of returning, so
// the alarm scheduler and weather fetch stay alive until shutdown.
func (a *Assistant) RunWakeLoop(ctx context.Context) {
	if a.detector == nil {
		log.Println("Wake word detection disabled; passive listening is off")
		a.idle(ctx)
		return
	}

	in, err := a.openInput(a.detector.FrameLength())
	if err != nil {
		log.Printf("Failed to open wake input: %v", err)
		a.idle(ctx)
		return
	}
	defer in.Close()

	fmt.Printf("🎤 Listening for %q...\n", a.detector.Keyword())

	for !a.st.Stopping() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := in.ReadFrame()
		if err != nil {
			log.Printf("Wake input read failed: %v", err)
			a.idle(ctx)
			return
		}

		woke := a.detector.Process(frame)
		ringing := a.st.AlarmRinging()
		if !woke && !ringing {
			continue
		}

		if ringing {
			// dismiss the ring; the ring loop exits on the cleared flag
			a.st.SetAlarmRinging(false)
		} else if a.beep != nil {
			a.engine.PlayClipOnce(a.beep)
			time.Sleep(beepSettleDelay)
		}

		a.Converse(ctx)
	}
}

// idle parks the wake path until shutdown. Alarms keep firing and
// ringing while parked; only trigger-driven conversation is off.
func (a *Assistant) idle(ctx context.Context) {
	ticker := time.NewTicker(idlePoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if a.st.Stopping() {
				return
			}
		}
	}
}

// Converse runs one full turn: capture, interpretation, spoken reply.
// The phases never overlap within a turn. The interruption flag belongs
// to the turn and is cleared here, at its start.
func (a *Assistant) Converse(ctx context.Context) {
	a.st.SetInterrupted(false)
	a.st.SetActive(true)
	a.st.SetStatus(state.StatusListening)
	a.st.SetUserText("")
	a.st.SetAIText("")

	samples, err := a.captureUtterance()
	a.st.SetAmplitude(0)
	a.st.SetStatus(state.StatusThinking)
	if err != nil {
		log.Printf("Utterance capture failed: %v", err)
		a.endTurn()
		return
	}

	text := a.transcribe(ctx, samples)
	a.st.SetUserText(text)
	if strings.TrimSpace(text) == "" {
		// nothing heard, nothing to do
		a.endTurn()
		return
	}
	fmt.Printf("👤 %s\n", text)

	reply, openedExternal := a.respond(ctx, text)
	fmt.Printf("🤖 %s\n", reply)

	a.st.SetStatus(state.StatusSpeaking)
	a.st.SetAIText(reply)
	a.speak(ctx, reply)

	if openedExternal && a.reclaimFocus != nil {
		time.AfterFunc(focusReclaimDelay, a.reclaimFocus)
	}

	a.waitForPlayback()
	a.endTurn()
}

func (a *Assistant) endTurn() {
	a.st.SetActive(false)
	a.st.SetStatus(state.StatusIdle)
}

// captureUtterance records until trailing silence or the hard ceiling,
// publishing per-frame loudness for the visualizer. The input device is
// released on every exit path.
func (a *Assistant) captureUtterance() ([]int16, error) {
	in, err := a.openInput(audio.InputFrameLength)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture input: %w", err)
	}
	defer in.Close()

	frameLen := in.FrameLength()
	maxFrames := audio.SampleRate * captureSeconds / frameLen
	endpointer := vad.NewEndpointer()
	samples := make([]int16, 0, maxFrames*frameLen)

	for i := 0; i < maxFrames; i++ {
		frame, err := in.ReadFrame()
		if err != nil {
			return nil, fmt.Errorf("capture read failed: %w", err)
		}

		samples = append(samples, frame...)

		amplitude := audio.MeanAbs(frame)
		a.st.SetAmplitude(amplitude / captureAmplitudeScale)

		if endpointer.Feed(amplitude) {
			break
		}
	}

	return samples, nil
}

// transcribe hands the captured PCM to the transcription collaborator.
// Failures degrade to an empty transcript.
func (a *Assistant) transcribe(ctx context.Context, samples []int16) string {
	if len(samples) == 0 {
		return ""
	}

	wavData, err := audio.EncodeWAV(samples, audio.SampleRate)
	if err != nil {
		log.Printf("Failed to encode utterance: %v", err)
		return ""
	}

	text, err := a.transcriber.Transcribe(ctx, wavData)
	if err != nil {
		log.Printf("Transcription failed: %v", err)
		return ""
	}
	return text
}

// respond routes the transcript through the intent branches in fixed
// priority order: alarm > time > search > play > chat. Exactly one
// branch produces the reply; only the last one talks to the chat
// completion collaborator. The second return reports whether an
// external app was opened.
func (a *Assistant) respond(ctx context.Context, userText string) (string, bool) {
	lower := strings.ToLower(userText)

	switch {
	case strings.Contains(lower, "alarm") || strings.Contains(lower, "wake me"):
		parsed, ok := alarm.ParseRequest(userText, a.now())
		if !ok {
			return parseFallbackReply, false
		}
		a.st.AddAlarm(parsed)
		return fmt.Sprintf("Alarm set for %s.", parsed.Display), false

	case strings.Contains(lower, "time"):
		return "It's " + tools.CurrentTime(a.now()), false

	case strings.Contains(lower, "search"):
		return a.searcher.Search(userText), false

	case strings.Contains(lower, "play"):
		query := strings.TrimSpace(strings.Replace(lower, "play", "", 1))
		opened, reply := a.openMedia(query)
		return reply, opened
	}

	return a.chat(ctx, userText), false
}

// chat is the fallback branch: chat completion with the capped
// in-memory history. A failed call substitutes a fixed error reply and
// leaves the history untouched.
func (a *Assistant) chat(ctx context.Context, userText string) string {
	reply, err := a.completer.Complete(ctx, a.systemPrompt, a.history, userText)
	if err != nil {
		log.Printf("Chat completion failed: %v", err)
		return chatErrorReply
	}

	a.history = append(a.history,
		llm.Message{Role: "user", Content: userText},
		llm.Message{Role: "assistant", Content: reply},
	)
	if len(a.history) > historyLimit {
		a.history = a.history[2:]
	}

	return reply
}

// speak starts a fresh render loop and feeds it from the synthesis
// stream in the background
func (a *Assistant) speak(ctx context.Context, text string) {
	a.engine.StartStream()

	go func() {
		if err := a.synthesizer.Stream(ctx, text, a.engine, a.st.Interrupted); err != nil {
			log.Printf("Speech synthesis failed: %v", err)
		}
	}()
}

// waitForPlayback blocks until the render loop finishes or the turn is
// interrupted, after an initial grace delay so a slow synthesis start
// is not mistaken for a finished stream
func (a *Assistant) waitForPlayback() {
	time.Sleep(speakingGrace)

	ticker := time.NewTicker(speakingPoll)
	defer ticker.Stop()

	for {
		select {
		case <-a.engine.Done():
			return
		case <-ticker.C:
			if a.st.Interrupted() {
				return
			}
		}
	}
}
