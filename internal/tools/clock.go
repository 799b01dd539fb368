// Package tools holds the small lookup collaborators the orchestrator
// dispatches to: wall-clock time, weather, web search and media open.
// All network failures degrade to sentinel strings; nothing here ever
// propagates an error into the conversation loop.
package tools

import "time"

// CurrentTime formats the wall clock for speech, zero-padded like the
// alarm labels
func CurrentTime(now time.Time) string {
	return now.Format("03:04 PM")
}
