package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"smart-assistant/internal/audio"
	"smart-assistant/internal/llm"
	"smart-assistant/internal/playback"
	"smart-assistant/internal/state"
	"smart-assistant/internal/tts"
	"smart-assistant/internal/wakeword"
)

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, wavData []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeCompleter struct {
	reply string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt string, history []llm.Message, userText string) (string, error) {
	f.calls++
	return f.reply, f.err
}

type fakeSynthesizer struct {
	chunks int
	calls  int
}

func (f *fakeSynthesizer) Stream(ctx context.Context, text string, sink tts.ChunkSink, interrupted func() bool) error {
	f.calls++
	defer sink.Finish()
	for i := 0; i < f.chunks; i++ {
		sink.Enqueue(audio.SamplesToBytes([]int16{1000, -1000}))
	}
	return nil
}

type fakeSearcher struct {
	result string
	query  string
}

func (f *fakeSearcher) Search(query string) string {
	f.query = query
	return f.result
}

type nullWriter struct{}

func (nullWriter) Write(samples []int16) error { return nil }

// fakeInput replays the configured frames, then silence
type fakeInput struct {
	frames   [][]int16
	pos      int
	closed   bool
	readHook func()
}

func (f *fakeInput) ReadFrame() ([]int16, error) {
	if f.readHook != nil {
		f.readHook()
	}
	if f.pos < len(f.frames) {
		frame := f.frames[f.pos]
		f.pos++
		return frame, nil
	}
	return make([]int16, audio.InputFrameLength), nil
}

func (f *fakeInput) FrameLength() int { return audio.InputFrameLength }

func (f *fakeInput) Close() error {
	f.closed = true
	return nil
}

func flatFrame(v int16) []int16 {
	frame := make([]int16, audio.InputFrameLength)
	for i := range frame {
		frame[i] = v
	}
	return frame
}

type fixture struct {
	st          *state.State
	asst        *Assistant
	transcriber *fakeTranscriber
	completer   *fakeCompleter
	synthesizer *fakeSynthesizer
	searcher    *fakeSearcher
	input       *fakeInput
	mediaQuery  string
	mediaCalls  int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		st:          state.New(),
		transcriber: &fakeTranscriber{},
		completer:   &fakeCompleter{reply: "hello there"},
		synthesizer: &fakeSynthesizer{chunks: 3},
		searcher:    &fakeSearcher{result: "a snippet"},
		input:       &fakeInput{},
	}

	asst, err := New(&Options{
		State:        f.st,
		Engine:       playback.NewEngine(f.st, nullWriter{}, playback.DefaultGain),
		Transcriber:  f.transcriber,
		Completer:    f.completer,
		Synthesizer:  f.synthesizer,
		Searcher:     f.searcher,
		SystemPrompt: "be brief",
	})
	if err != nil {
		t.Fatal(err)
	}

	asst.openInput = func(frameLen int) (FrameReader, error) { return f.input, nil }
	asst.openMedia = func(query string) (bool, string) {
		f.mediaQuery = query
		f.mediaCalls++
		return true, "Opening YouTube..."
	}
	asst.now = func() time.Time {
		return time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	}

	f.asst = asst
	return f
}

// newTestDetector builds a real detector from a throwaway profile; the
// silence the fake input replays can never trigger it
func newTestDetector(t *testing.T) *wakeword.Detector {
	t.Helper()

	data, err := json.Marshal(map[string]any{
		"keyword":      "alexa",
		"frame_length": audio.InputFrameLength,
		"envelope":     []float64{100, 900, 300, 1100},
	})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "test.profile.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	d, err := wakeword.New(wakeword.Config{Keyword: "alexa", ProfilePath: path})
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected an error for nil options")
	}
	if _, err := New(&Options{}); err == nil {
		t.Error("expected an error for missing collaborators")
	}
}

func TestRespondAlarmIntent(t *testing.T) {
	f := newFixture(t)

	reply, opened := f.asst.respond(context.Background(), "set an alarm for 5 pm")
	if reply != "Alarm set for 5:00 PM." {
		t.Errorf("reply = %q", reply)
	}
	if opened {
		t.Error("alarm intent must not open an external app")
	}
	if len(f.st.Alarms()) != 1 {
		t.Fatalf("expected 1 alarm, got %d", len(f.st.Alarms()))
	}
	if f.completer.calls != 0 {
		t.Error("alarm intent must not reach the chat model")
	}
}

func TestRespondWakeMeAlias(t *testing.T) {
	f := newFixture(t)

	reply, _ := f.asst.respond(context.Background(), "wake me up in 30 minutes")
	if reply != "Alarm set for 2:30 PM." {
		t.Errorf("reply = %q", reply)
	}
}

func TestRespondAlarmWithoutTime(t *testing.T) {
	f := newFixture(t)

	reply, _ := f.asst.respond(context.Background(), "set an alarm")
	if reply != parseFallbackReply {
		t.Errorf("reply = %q, want the parse fallback", reply)
	}
	if len(f.st.Alarms()) != 0 {
		t.Error("no alarm must be added on a parse failure")
	}
}

func TestRespondTimeIntent(t *testing.T) {
	f := newFixture(t)

	reply, _ := f.asst.respond(context.Background(), "what time is it")
	if reply != "It's 02:00 PM" {
		t.Errorf("reply = %q", reply)
	}
	if f.completer.calls != 0 {
		t.Error("time intent must not reach the chat model")
	}
}

func TestRespondAlarmBeatsTime(t *testing.T) {
	f := newFixture(t)

	// "alarm" and "time" both present; alarm has priority
	reply, _ := f.asst.respond(context.Background(), "set an alarm for 5 pm this time")
	if !strings.HasPrefix(reply, "Alarm set") {
		t.Errorf("reply = %q, want the alarm branch", reply)
	}
}

func TestRespondSearchIntent(t *testing.T) {
	f := newFixture(t)

	reply, _ := f.asst.respond(context.Background(), "search for the tallest mountain")
	if reply != "a snippet" {
		t.Errorf("reply = %q", reply)
	}
	if f.searcher.query != "search for the tallest mountain" {
		t.Errorf("search query = %q", f.searcher.query)
	}
}

func TestRespondPlayIntent(t *testing.T) {
	f := newFixture(t)

	reply, opened := f.asst.respond(context.Background(), "Play some jazz")
	if reply != "Opening YouTube..." {
		t.Errorf("reply = %q", reply)
	}
	if !opened {
		t.Error("play intent must report the external app")
	}
	if f.mediaQuery != "some jazz" {
		t.Errorf("media query = %q, want the request without the verb", f.mediaQuery)
	}
}

func TestRespondChatFallback(t *testing.T) {
	f := newFixture(t)

	reply, opened := f.asst.respond(context.Background(), "tell me a joke")
	if reply != "hello there" {
		t.Errorf("reply = %q", reply)
	}
	if opened {
		t.Error("chat fallback must not open an external app")
	}
	if f.completer.calls != 1 {
		t.Errorf("expected 1 chat call, got %d", f.completer.calls)
	}

	if len(f.asst.history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(f.asst.history))
	}
	if f.asst.history[0].Role != "user" || f.asst.history[1].Role != "assistant" {
		t.Error("history must record the user turn then the reply")
	}
}

func TestChatErrorLeavesHistoryUntouched(t *testing.T) {
	f := newFixture(t)
	f.completer.err = errors.New("model offline")

	reply, _ := f.asst.respond(context.Background(), "tell me a joke")
	if reply != chatErrorReply {
		t.Errorf("reply = %q, want the fixed error reply", reply)
	}
	if len(f.asst.history) != 0 {
		t.Error("a failed chat call must not grow the history")
	}
}

func TestChatHistoryCapped(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < historyLimit/2; i++ {
		f.asst.history = append(f.asst.history,
			llm.Message{Role: "user", Content: fmt.Sprintf("q%d", i)},
			llm.Message{Role: "assistant", Content: fmt.Sprintf("a%d", i)},
		)
	}

	f.asst.chat(context.Background(), "one more")

	if len(f.asst.history) != historyLimit {
		t.Fatalf("history length = %d, want %d", len(f.asst.history), historyLimit)
	}
	if f.asst.history[0].Content != "q1" {
		t.Errorf("oldest exchange must be dropped, head is %q", f.asst.history[0].Content)
	}
	if f.asst.history[historyLimit-1].Content != "hello there" {
		t.Error("newest reply must be kept")
	}
}

func TestCaptureStopsOnTrailingSilence(t *testing.T) {
	f := newFixture(t)
	f.input.frames = [][]int16{flatFrame(2000), flatFrame(2000)}

	samples, err := f.asst.captureUtterance()
	if err != nil {
		t.Fatal(err)
	}

	// 2 loud frames plus the 31-frame silence run that ends the capture
	wantFrames := 2 + 31
	if got := len(samples) / audio.InputFrameLength; got != wantFrames {
		t.Errorf("captured %d frames, want %d", got, wantFrames)
	}
	if !f.input.closed {
		t.Error("the input device must be released")
	}
}

func TestCaptureHitsSixSecondCeiling(t *testing.T) {
	f := newFixture(t)
	loud := make([][]int16, 1000)
	for i := range loud {
		loud[i] = flatFrame(2000)
	}
	f.input.frames = loud

	samples, err := f.asst.captureUtterance()
	if err != nil {
		t.Fatal(err)
	}

	maxFrames := audio.SampleRate * captureSeconds / audio.InputFrameLength
	if got := len(samples) / audio.InputFrameLength; got != maxFrames {
		t.Errorf("captured %d frames, want the %d-frame ceiling", got, maxFrames)
	}
}

func TestConverseTimeTurn(t *testing.T) {
	f := newFixture(t)
	f.transcriber.text = "what time is it"
	f.input.frames = [][]int16{flatFrame(2000)}

	f.asst.Converse(context.Background())

	if f.st.UserText() != "what time is it" {
		t.Errorf("user text = %q", f.st.UserText())
	}
	if f.st.AIText() != "It's 02:00 PM" {
		t.Errorf("ai text = %q", f.st.AIText())
	}
	if f.synthesizer.calls != 1 {
		t.Errorf("expected 1 synthesis call, got %d", f.synthesizer.calls)
	}
	if f.completer.calls != 0 {
		t.Error("time turn must not reach the chat model")
	}
	if f.st.Active() || f.st.Status() != state.StatusIdle {
		t.Error("a finished turn must return to idle")
	}
	if f.st.Amplitude() != 0 {
		t.Error("amplitude must reset after the turn")
	}
}

func TestConverseClearsInterruption(t *testing.T) {
	f := newFixture(t)
	f.st.SetInterrupted(true)
	f.transcriber.text = ""
	f.input.frames = [][]int16{flatFrame(2000)}

	f.asst.Converse(context.Background())

	if f.st.Interrupted() {
		t.Error("a new turn must clear the interruption flag at its start")
	}
}

func TestConverseEmptyTranscript(t *testing.T) {
	f := newFixture(t)
	f.transcriber.text = "   "
	f.input.frames = [][]int16{flatFrame(2000)}

	f.asst.Converse(context.Background())

	if f.synthesizer.calls != 0 {
		t.Error("an empty transcript must not be spoken")
	}
	if f.completer.calls != 0 {
		t.Error("an empty transcript must not reach the chat model")
	}
	if f.st.Active() || f.st.Status() != state.StatusIdle {
		t.Error("the turn must return to idle")
	}
}

func TestConverseTranscriptionFailure(t *testing.T) {
	f := newFixture(t)
	f.transcriber.err = errors.New("service down")
	f.input.frames = [][]int16{flatFrame(2000)}

	f.asst.Converse(context.Background())

	if f.synthesizer.calls != 0 {
		t.Error("a failed transcription must not be spoken")
	}
	if f.st.Active() || f.st.Status() != state.StatusIdle {
		t.Error("the turn must return to idle")
	}
}

func TestConverseReclaimsFocusAfterMedia(t *testing.T) {
	f := newFixture(t)
	f.transcriber.text = "play some jazz"
	f.input.frames = [][]int16{flatFrame(2000)}

	reclaimed := make(chan struct{})
	f.asst.SetReclaimFocus(func() { close(reclaimed) })

	f.asst.Converse(context.Background())

	select {
	case <-reclaimed:
	case <-time.After(focusReclaimDelay + 2*time.Second):
		t.Error("focus reclaim callback was not fired")
	}
	if f.mediaCalls != 1 {
		t.Errorf("expected 1 media open, got %d", f.mediaCalls)
	}
}

func TestRunWakeLoopWithoutDetectorStaysParked(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		f.asst.RunWakeLoop(ctx)
		close(done)
	}()

	// the process must keep serving alarms; the loop parks, it does
	// not return
	select {
	case <-done:
		t.Fatal("wake loop must stay parked without a detector")
	case <-time.After(500 * time.Millisecond):
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("parked wake loop must honor cancellation")
	}
}

func TestRunWakeLoopInputFailureStaysParked(t *testing.T) {
	f := newFixture(t)
	f.asst.detector = newTestDetector(t)
	f.asst.openInput = func(frameLen int) (FrameReader, error) {
		return nil, errors.New("no capture device")
	}

	done := make(chan struct{})
	go func() {
		f.asst.RunWakeLoop(context.Background())
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("wake loop must stay parked when the input cannot open")
	case <-time.After(500 * time.Millisecond):
	}

	f.st.RequestStop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("parked wake loop must honor the stop request")
	}
}

func TestRunWakeLoopDismissesRing(t *testing.T) {
	f := newFixture(t)
	f.asst.detector = newTestDetector(t)
	f.st.SetAlarmRinging(true)

	reads := 0
	f.input.readHook = func() {
		reads++
		if reads > 250 {
			f.st.RequestStop()
		}
	}

	done := make(chan struct{})
	go func() {
		f.asst.RunWakeLoop(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("wake loop did not stop")
	}

	if f.st.AlarmRinging() {
		t.Error("a ringing alarm must be dismissed by the wake loop")
	}
	if f.st.Interrupted() {
		t.Error("ring dismissal must not leave the interruption flag set")
	}
	if f.transcriber.calls != 1 {
		t.Errorf("dismissal must lead into one conversation turn, got %d", f.transcriber.calls)
	}
}
