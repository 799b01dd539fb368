// Package wakeword spots the trigger phrase in the passive listening
// stream. Detection is keyword-profile based: a profile asset holds the
// expected energy envelope of the spoken phrase, and each incoming frame
// is scored by normalized cross-correlation of the recent envelope
// against that template. This keeps the passive path cheap enough to run
// on every ~32 ms frame without any network round trip.
package wakeword

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"smart-assistant/internal/audio"
)

// Config configures the detector. ProfilePath must point at a keyword
// profile asset; a missing or unreadable profile is an initialization
// error, which callers treat as "wake word disabled" rather than fatal.
type Config struct {
	Keyword     string
	ProfilePath string
	Sensitivity float64 // correlation threshold in (0,1]
}

// DefaultSensitivity is the correlation score required to trigger
const DefaultSensitivity = 0.85

// profile is the on-disk keyword profile format
type profile struct {
	Keyword     string    `json:"keyword"`
	FrameLength int       `json:"frame_length"`
	Envelope    []float64 `json:"envelope"`
}

// Detector consumes fixed-size input frames and reports the frame on
// which the wake phrase is recognized. One goroutine feeds it; it keeps
// its own adaptation state internally.
type Detector struct {
	keyword     string
	frameLen    int
	template    []float64 // zero-mean, unit-norm envelope
	sensitivity float64

	window   []float64 // ring buffer of recent frame energies
	pos      int
	filled   int
	cooldown int
}

// New loads the keyword profile and builds a detector
func New(cfg Config) (*Detector, error) {
	if cfg.ProfilePath == "" {
		return nil, fmt.Errorf("wake word profile path is empty")
	}

	data, err := os.ReadFile(cfg.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read wake word profile: %w", err)
	}

	var p profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse wake word profile: %w", err)
	}

	if p.FrameLength <= 0 {
		return nil, fmt.Errorf("invalid frame length %d in profile", p.FrameLength)
	}
	if len(p.Envelope) < 4 {
		return nil, fmt.Errorf("profile envelope too short: %d frames", len(p.Envelope))
	}
	if cfg.Keyword != "" && p.Keyword != cfg.Keyword {
		return nil, fmt.Errorf("profile is for keyword %q, want %q", p.Keyword, cfg.Keyword)
	}

	template, err := normalize(p.Envelope)
	if err != nil {
		return nil, fmt.Errorf("invalid profile envelope: %w", err)
	}

	sensitivity := cfg.Sensitivity
	if sensitivity <= 0 || sensitivity > 1 {
		sensitivity = DefaultSensitivity
	}

	return &Detector{
		keyword:     p.Keyword,
		frameLen:    p.FrameLength,
		template:    template,
		sensitivity: sensitivity,
		window:      make([]float64, len(p.Envelope)),
	}, nil
}

// Keyword returns the trigger phrase this detector was built for
func (d *Detector) Keyword() string {
	return d.keyword
}

// FrameLength returns the required number of samples per frame
func (d *Detector) FrameLength() int {
	return d.frameLen
}

// Process consumes one frame and returns true exactly on the frame where
// the wake pattern is recognized. After a trigger the detector stays
// quiet for one template length so a single utterance cannot fire twice.
func (d *Detector) Process(frame []int16) bool {
	d.window[d.pos] = audio.MeanAbs(frame)
	d.pos = (d.pos + 1) % len(d.window)
	if d.filled < len(d.window) {
		d.filled++
	}

	if d.cooldown > 0 {
		d.cooldown--
		return false
	}
	if d.filled < len(d.window) {
		return false
	}

	if d.score() >= d.sensitivity {
		d.cooldown = len(d.window)
		return true
	}
	return false
}

// score correlates the chronological window against the template
func (d *Detector) score() float64 {
	n := len(d.window)

	var mean float64
	for _, v := range d.window {
		mean += v
	}
	mean /= float64(n)

	var dot, norm float64
	for i := 0; i < n; i++ {
		// d.pos points at the oldest entry once the ring is full
		v := d.window[(d.pos+i)%n] - mean
		dot += v * d.template[i]
		norm += v * v
	}

	if norm < 1e-9 {
		// flat window (silence); correlation is undefined there
		return 0
	}
	return dot / math.Sqrt(norm)
}

// normalize converts an envelope to zero mean and unit norm
func normalize(envelope []float64) ([]float64, error) {
	n := len(envelope)

	var mean float64
	for _, v := range envelope {
		mean += v
	}
	mean /= float64(n)

	out := make([]float64, n)
	var norm float64
	for i, v := range envelope {
		out[i] = v - mean
		norm += out[i] * out[i]
	}

	if norm < 1e-9 {
		return nil, fmt.Errorf("envelope has no variation")
	}

	scale := 1 / math.Sqrt(norm)
	for i := range out {
		out[i] *= scale
	}
	return out, nil
}
