package alarm

import (
	"context"
	"fmt"
	"time"

	"smart-assistant/internal/audio"
	"smart-assistant/internal/state"
)

// tickInterval is the scheduler's polling period. Minute-granularity
// alarms checked once a second; a clock jump that skips a whole minute
// (system sleep) skips that alarm entirely, which is the documented
// behavior rather than something to compensate for.
const tickInterval = time.Second

// Ringer starts the looping alarm sound
type Ringer interface {
	PlayClipLoop(clip *audio.Clip)
}

// Scheduler is the independent timer loop. Each tick it formats the
// wall clock to the alarm label form and fires at most one matching
// pending alarm.
type Scheduler struct {
	st     *state.State
	ringer Ringer
	clip   *audio.Clip
	clock  func() time.Time
}

// NewScheduler creates the alarm scheduler. clip may be nil when the
// ringtone asset is missing; a fired alarm then still marks the state
// active, it just cannot ring.
func NewScheduler(st *state.State, ringer Ringer, clip *audio.Clip) *Scheduler {
	return &Scheduler{
		st:     st,
		ringer: ringer,
		clip:   clip,
		clock:  time.Now,
	}
}

// Run polls until the context is cancelled or shutdown is requested
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.st.Stopping() {
				return
			}
			s.tick(s.clock())
		}
	}
}

// tick fires one due alarm, if any. Removal goes through the guarded
// read-then-remove on the shared state, so an alarm entry is consumed
// exactly once even across overlapping ticks; a duplicate-valued alarm
// fires again on the next tick.
func (s *Scheduler) tick(now time.Time) bool {
	label := now.Format(labelFormat)
	if !s.st.TakeDue(label) {
		return false
	}

	fmt.Printf("⏰ Alarm firing: %s\n", label)
	s.st.SetActive(true)
	s.st.SetAIText("ALARM RINGING")
	if s.clip != nil {
		s.ringer.PlayClipLoop(s.clip)
	}
	return true
}
