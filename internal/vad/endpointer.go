// Package vad decides when an utterance has started and ended from the
// per-frame amplitude of the capture stream. The heuristic is purely
// local: speech begins when the mean absolute amplitude crosses the
// speech threshold, and ends after a run of trailing-silence frames.
package vad

// Default thresholds for mono 16 kHz capture with ~32 ms frames
const (
	DefaultSpeechThreshold  = 500.0
	DefaultSilenceThreshold = 300.0

	// DefaultMaxSilenceFrames is the trailing-silence run (~1 s) that
	// ends an utterance
	DefaultMaxSilenceFrames = 30
)

// Endpointer tracks speech onset and trailing silence across a stream of
// amplitude readings. Not safe for concurrent use; each capture loop
// owns one.
type Endpointer struct {
	speechThreshold  float64
	silenceThreshold float64
	maxSilenceFrames int

	speaking   bool
	silenceRun int
}

// NewEndpointer creates an endpointer with the default thresholds
func NewEndpointer() *Endpointer {
	return &Endpointer{
		speechThreshold:  DefaultSpeechThreshold,
		silenceThreshold: DefaultSilenceThreshold,
		maxSilenceFrames: DefaultMaxSilenceFrames,
	}
}

// NewEndpointerWithThresholds creates an endpointer with explicit
// thresholds, mainly for tests
func NewEndpointerWithThresholds(speech, silence float64, maxSilenceFrames int) *Endpointer {
	return &Endpointer{
		speechThreshold:  speech,
		silenceThreshold: silence,
		maxSilenceFrames: maxSilenceFrames,
	}
}

// Feed consumes one frame's amplitude and reports whether the utterance
// has ended. An amplitude between the two thresholds neither extends nor
// resets the silence run.
func (e *Endpointer) Feed(amplitude float64) bool {
	if amplitude > e.speechThreshold {
		e.speaking = true
		e.silenceRun = 0
		return false
	}

	if e.speaking && amplitude < e.silenceThreshold {
		e.silenceRun++
	}

	return e.silenceRun > e.maxSilenceFrames
}

// Speaking reports whether speech onset has been observed
func (e *Endpointer) Speaking() bool {
	return e.speaking
}

// Reset clears the endpointer for a new utterance
func (e *Endpointer) Reset() {
	e.speaking = false
	e.silenceRun = 0
}
