// Package playback renders synthesized speech to the output device as it
// arrives from the network, with gain boost, live amplitude reporting and
// sub-chunk interruption latency. It also provides the one-shot and
// looping players for short pre-recorded clips (wake beep, alarm ring).
package playback

import (
	"log"
	"sync"
	"time"

	"smart-assistant/internal/audio"
	"smart-assistant/internal/state"
)

const (
	// DefaultGain is the linear boost applied to synthesized speech
	DefaultGain = 3.0

	// queueCapacity bounds the pending-chunk queue. In practice the
	// render loop drains faster than the network fills, so the bound is
	// never reached during normal playback.
	queueCapacity = 256

	// prebufferChunks is the startup jitter guard: rendering waits for
	// this many chunks before the first device write
	prebufferChunks = 2

	prebufferPoll  = 50 * time.Millisecond
	dequeueTimeout = 500 * time.Millisecond

	// amplitudeScale converts mean absolute sample value into the
	// loudness range the visualizer expects
	amplitudeScale = 60.0

	// Ring loop bounds: at most ringRepetitions plays of the clip with
	// ringGap between them, so an undismissed alarm cannot ring forever
	ringRepetitions = 20
	ringGap         = 200 * time.Millisecond
)

// Writer renders PCM samples to an output device
type Writer interface {
	Write(samples []int16) error
}

// ClipWriter is a dedicated short-lived output for clip playback
type ClipWriter interface {
	Writer
	Close() error
}

// session is one streaming playback: a chunk queue, a stop signal and a
// done marker. The queue owner is exclusively the render loop.
type session struct {
	queue    chan []byte
	stop     chan struct{}
	stopOnce sync.Once
	fin      chan struct{}
	finOnce  sync.Once
	done     chan struct{}
}

func (s *session) halt() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// finish marks the stream complete so the pre-buffer wait stops holding
// out for more chunks
func (s *session) finish() {
	s.finOnce.Do(func() { close(s.fin) })
}

// drain empties the pending-chunk queue without blocking
func (s *session) drain() {
	for {
		select {
		case <-s.queue:
		default:
			return
		}
	}
}

// Engine owns the streaming render loop. At most one render loop is
// alive at a time; starting a new stream performs a full stop of the
// previous one first. That policy lives here, not in the callers.
type Engine struct {
	st   *state.State
	out  Writer
	gain float64

	mu   sync.Mutex
	sess *session

	// newOutput opens a dedicated device stream for clip playback;
	// overridable in tests
	newOutput func(sampleRate int) (ClipWriter, error)
}

// NewEngine creates a playback engine writing speech to out
func NewEngine(st *state.State, out Writer, gain float64) *Engine {
	if gain <= 0 {
		gain = DefaultGain
	}
	return &Engine{
		st:   st,
		out:  out,
		gain: gain,
		newOutput: func(sampleRate int) (ClipWriter, error) {
			return audio.NewOutput(sampleRate)
		},
	}
}

// StartStream stops any live playback and spawns a fresh render loop.
// The caller then feeds chunks with Enqueue and terminates the stream
// with Finish.
func (e *Engine) StartStream() {
	e.Stop()

	sess := &session{
		queue: make(chan []byte, queueCapacity),
		stop:  make(chan struct{}),
		fin:   make(chan struct{}),
		done:  make(chan struct{}),
	}

	e.mu.Lock()
	e.sess = sess
	e.mu.Unlock()

	go e.renderLoop(sess)
}

// Enqueue hands one synthesized chunk to the render loop. Dropped if the
// stream has already been stopped.
func (e *Engine) Enqueue(chunk []byte) {
	sess := e.current()
	if sess == nil || len(chunk) == 0 {
		return
	}
	select {
	case sess.queue <- chunk:
	case <-sess.stop:
	}
}

// Finish enqueues the end-of-stream sentinel. The fetch side always
// calls this once the source closes, whatever the reason, so the render
// loop can never block forever on an empty queue.
func (e *Engine) Finish() {
	sess := e.current()
	if sess == nil {
		return
	}
	select {
	case sess.queue <- nil:
	case <-sess.stop:
	}
	sess.finish()
}

// Stop halts the live render loop, clears the pending queue and resets
// the published amplitude
func (e *Engine) Stop() {
	sess := e.current()
	if sess == nil {
		return
	}
	sess.halt()
	sess.drain()
	e.st.SetAmplitude(0)
}

// IsPlaying reports whether a render loop is alive
func (e *Engine) IsPlaying() bool {
	sess := e.current()
	if sess == nil {
		return false
	}
	select {
	case <-sess.done:
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the current render loop exits.
// Returns a closed channel when no stream was ever started.
func (e *Engine) Done() <-chan struct{} {
	sess := e.current()
	if sess == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return sess.done
}

func (e *Engine) current() *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess
}

// renderLoop consumes the session queue and writes amplified chunks to
// the device. The interruption flag is checked during the pre-buffer
// wait and between every chunk write, so audible silence follows an
// interruption within at most one chunk's write duration.
func (e *Engine) renderLoop(sess *session) {
	defer func() {
		sess.halt()
		sess.drain()
		e.st.SetAmplitude(0)
		close(sess.done)
	}()

	// jitter guard: do not start rendering until a little audio is
	// queued or the stream is already complete, unless interrupted or
	// stopped first
prebuffer:
	for len(sess.queue) < prebufferChunks {
		if e.st.Interrupted() {
			return
		}
		select {
		case <-sess.stop:
			return
		case <-sess.fin:
			break prebuffer
		case <-time.After(prebufferPoll):
		}
	}

	for {
		if e.st.Interrupted() {
			return
		}

		select {
		case <-sess.stop:
			return
		case chunk := <-sess.queue:
			if chunk == nil {
				return
			}

			samples := audio.BytesToSamples(chunk)
			Amplify(samples, e.gain)
			e.st.SetAmplitude(audio.MeanAbs(samples) / amplitudeScale)

			if err := e.out.Write(samples); err != nil {
				log.Printf("Playback write failed: %v", err)
				return
			}
		case <-time.After(dequeueTimeout):
			// the fetch side stalled without a sentinel; give up
			// rather than hang
			return
		}
	}
}

// Amplify scales samples in place by gain, hard-clipping into the
// 16-bit signed range so boosted peaks cannot wrap around
func Amplify(samples []int16, gain float64) {
	for i, s := range samples {
		v := float64(s) * gain
		if v > 32767 {
			v = 32767
		} else if v < -32767 {
			v = -32767
		}
		samples[i] = int16(v)
	}
}

// PlayClipOnce plays a short clip on its own device stream in the
// background. Errors degrade to a log line; a missing beep never breaks
// a conversation turn.
func (e *Engine) PlayClipOnce(clip *audio.Clip) {
	if clip == nil || len(clip.Samples) == 0 {
		return
	}

	go func() {
		out, err := e.newOutput(clip.SampleRate)
		if err != nil {
			log.Printf("Clip playback unavailable: %v", err)
			return
		}
		defer out.Close()

		if err := out.Write(clip.Samples); err != nil {
			log.Printf("Clip playback failed: %v", err)
		}
	}()
}

// PlayClipLoop plays the alarm clip repeatedly in the background until
// the repetition bound is reached, the ringing flag is cleared (alarm
// dismissed by a wake event) or the interruption flag is raised. No-op
// when a ring loop is already running.
func (e *Engine) PlayClipLoop(clip *audio.Clip) {
	if clip == nil || len(clip.Samples) == 0 {
		return
	}
	if e.st.AlarmRinging() {
		return
	}
	e.st.SetAlarmRinging(true)

	go func() {
		defer func() {
			e.st.SetAlarmRinging(false)
			e.st.SetNextAlarmLabel(state.NoActiveAlarms)
		}()

		out, err := e.newOutput(clip.SampleRate)
		if err != nil {
			log.Printf("Alarm playback unavailable: %v", err)
			return
		}
		defer out.Close()

		for i := 0; i < ringRepetitions; i++ {
			if e.st.Interrupted() || !e.st.AlarmRinging() {
				return
			}
			if err := out.Write(clip.Samples); err != nil {
				log.Printf("Alarm playback failed: %v", err)
				return
			}
			time.Sleep(ringGap)
		}
	}()
}
