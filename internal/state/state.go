package state

import (
	"log"
	"sync"
)

// Status represents the current phase of a conversation turn
type Status int

const (
	StatusIdle Status = iota
	StatusListening
	StatusThinking
	StatusSpeaking
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusListening:
		return "Listening"
	case StatusThinking:
		return "Thinking"
	case StatusSpeaking:
		return "Speaking"
	default:
		return "Unknown"
	}
}

// NoActiveAlarms is the label shown when no alarm is pending
const NoActiveAlarms = "No Active Alarms"

// Alarm is one pending alarm entry. Label is the machine-comparable
// "HH:MM AM/PM" form the scheduler matches against the wall clock;
// Display is the user-facing variant (leading zero stripped) and is
// never used for matching.
type Alarm struct {
	Label   string
	Display string
}

// State is the process-wide record shared by the wake loop, the playback
// engine, the alarm scheduler and any front-end visualizer. All workers
// read and write it through the accessors below; individual scalar fields
// tolerate a stale read by one tick, the alarm collection does not.
type State struct {
	mu sync.Mutex

	active      bool
	amplitude   float64
	stopSignal  bool
	interrupted bool

	userText string
	aiText   string
	status   Status

	currentTemp string

	alarms         []Alarm
	nextAlarmLabel string
	alarmRinging   bool
}

// New creates the shared state record
func New() *State {
	return &State{
		currentTemp:    "??",
		nextAlarmLabel: NoActiveAlarms,
	}
}

// Active reports whether a conversation turn or an alarm ring is in progress
func (s *State) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *State) SetActive(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = v
}

// Amplitude returns the latest rendered or captured loudness
func (s *State) Amplitude() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.amplitude
}

func (s *State) SetAmplitude(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.amplitude = v
}

// Stopping reports whether process shutdown has been requested
func (s *State) Stopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopSignal
}

// RequestStop asks every long-lived loop to wind down
func (s *State) RequestStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopSignal = true
}

// Interrupted reports whether the current playback or capture should be
// cancelled. Only meaningful while Active is true.
func (s *State) Interrupted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interrupted
}

func (s *State) SetInterrupted(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interrupted = v
}

func (s *State) UserText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userText
}

func (s *State) SetUserText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userText = text
}

func (s *State) AIText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aiText
}

func (s *State) SetAIText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aiText = text
}

func (s *State) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *State) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != status {
		log.Printf("Status changed: %s -> %s", s.status, status)
	}
	s.status = status
}

// CurrentTemp returns the latest weather string fetched in the background
func (s *State) CurrentTemp() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTemp
}

func (s *State) SetCurrentTemp(temp string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentTemp = temp
}

// AddAlarm appends a pending alarm and updates the next-alarm label
func (s *State) AddAlarm(a Alarm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alarms = append(s.alarms, a)
	s.nextAlarmLabel = a.Display
}

// Alarms returns a snapshot of the pending alarms
func (s *State) Alarms() []Alarm {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Alarm, len(s.alarms))
	copy(out, s.alarms)
	return out
}

// TakeDue removes the first pending alarm whose Label equals label and
// reports whether one was removed. The check and the removal happen under
// one lock so overlapping scheduler ticks cannot take the same entry
// twice; a duplicate-valued alarm needs a second call to be removed.
func (s *State) TakeDue(label string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.alarms {
		if a.Label == label {
			s.alarms = append(s.alarms[:i], s.alarms[i+1:]...)
			return true
		}
	}
	return false
}

func (s *State) NextAlarmLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextAlarmLabel
}

func (s *State) SetNextAlarmLabel(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAlarmLabel = label
}

func (s *State) AlarmRinging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alarmRinging
}

func (s *State) SetAlarmRinging(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alarmRinging = v
}
