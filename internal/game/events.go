package game

import "time"

// EventCategory classifies a battle log entry for the client renderer.
type EventCategory string

const (
	EventAction EventCategory = "action"
	EventAttack EventCategory = "attack"
	EventDamage EventCategory = "damage"
	EventBoss   EventCategory = "boss"
	EventSystem EventCategory = "system"
)

// Event is one battle chat/log entry.
type Event struct {
	ID        string        `json:"id"`
	Author    string        `json:"author"`
	Text      string        `json:"text"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
}

// EventLog is a fixed-capacity ring of the most recent battle events. The
// room session is its only writer.
type EventLog struct {
	capacity int
	entries  []Event
}

// NewEventLog creates a log that keeps at most capacity entries.
func NewEventLog(capacity int) *EventLog {
	if capacity < 1 {
		capacity = 1
	}
	return &EventLog{capacity: capacity}
}

// Append adds an event, evicting the oldest when the log is full.
func (l *EventLog) Append(e Event) {
	l.entries = append(l.entries, e)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[len(l.entries)-l.capacity:]
	}
}

// Entries returns the retained events, oldest first. The returned slice is
// a copy and safe to hand to other goroutines.
func (l *EventLog) Entries() []Event {
	out := make([]Event, len(l.entries))
	copy(out, l.entries)
	return out
}

// Clear drops all retained events (used on restart).
func (l *EventLog) Clear() {
	l.entries = l.entries[:0]
}
