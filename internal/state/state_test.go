package state

import (
	"sync"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	st := New()

	if st.CurrentTemp() != "??" {
		t.Errorf("expected placeholder temperature, got %q", st.CurrentTemp())
	}
	if st.NextAlarmLabel() != NoActiveAlarms {
		t.Errorf("expected %q, got %q", NoActiveAlarms, st.NextAlarmLabel())
	}
	if st.Status() != StatusIdle {
		t.Errorf("expected idle status, got %v", st.Status())
	}
	if st.Active() || st.Interrupted() || st.Stopping() || st.AlarmRinging() {
		t.Error("expected all flags to start cleared")
	}
}

func TestAddAlarmUpdatesNextLabel(t *testing.T) {
	st := New()

	st.AddAlarm(Alarm{Label: "05:00 PM", Display: "5:00 PM"})

	if got := st.NextAlarmLabel(); got != "5:00 PM" {
		t.Errorf("expected next alarm label 5:00 PM, got %q", got)
	}
	if len(st.Alarms()) != 1 {
		t.Fatalf("expected 1 pending alarm, got %d", len(st.Alarms()))
	}
}

func TestTakeDueRemovesMatchingAlarm(t *testing.T) {
	st := New()
	st.AddAlarm(Alarm{Label: "05:00 PM", Display: "5:00 PM"})
	st.AddAlarm(Alarm{Label: "06:30 PM", Display: "6:30 PM"})

	if !st.TakeDue("05:00 PM") {
		t.Fatal("expected 05:00 PM to be due")
	}

	remaining := st.Alarms()
	if len(remaining) != 1 || remaining[0].Label != "06:30 PM" {
		t.Errorf("expected only 06:30 PM to remain, got %v", remaining)
	}

	if st.TakeDue("05:00 PM") {
		t.Error("removed alarm must not fire twice")
	}
}

func TestTakeDueRemovesOnePerCall(t *testing.T) {
	st := New()
	st.AddAlarm(Alarm{Label: "05:00 PM", Display: "5:00 PM"})
	st.AddAlarm(Alarm{Label: "05:00 PM", Display: "5:00 PM"})

	if !st.TakeDue("05:00 PM") {
		t.Fatal("expected first duplicate to be due")
	}
	if len(st.Alarms()) != 1 {
		t.Fatalf("one call must remove exactly one entry, %d remain", len(st.Alarms()))
	}
	if !st.TakeDue("05:00 PM") {
		t.Fatal("expected second duplicate to be due on the next call")
	}
	if len(st.Alarms()) != 0 {
		t.Errorf("expected no alarms left, got %d", len(st.Alarms()))
	}
}

func TestTakeDueNoMatch(t *testing.T) {
	st := New()
	st.AddAlarm(Alarm{Label: "05:00 PM", Display: "5:00 PM"})

	if st.TakeDue("07:00 AM") {
		t.Error("unmatched label must not fire")
	}
	if len(st.Alarms()) != 1 {
		t.Error("unmatched call must not remove anything")
	}
}

func TestAlarmsReturnsSnapshot(t *testing.T) {
	st := New()
	st.AddAlarm(Alarm{Label: "05:00 PM", Display: "5:00 PM"})

	snapshot := st.Alarms()
	snapshot[0].Label = "mutated"

	if st.Alarms()[0].Label != "05:00 PM" {
		t.Error("mutating the snapshot must not touch shared state")
	}
}

func TestConcurrentAccess(t *testing.T) {
	st := New()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				st.SetAmplitude(float64(j))
				st.Amplitude()
				st.AddAlarm(Alarm{Label: "05:00 PM", Display: "5:00 PM"})
				st.TakeDue("05:00 PM")
				st.SetInterrupted(j%2 == 0)
				st.Interrupted()
			}
		}()
	}
	wg.Wait()
}
