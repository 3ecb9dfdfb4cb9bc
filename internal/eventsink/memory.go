package eventsink

import "sync"

// MemorySink buffers events in memory. Used in tests and as the sink of last
// resort when no NATS endpoint is configured.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Emit(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns a snapshot of everything emitted so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// BySubject filters the buffered events down to one subject.
func (s *MemorySink) BySubject(subject string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, ev := range s.events {
		if ev.Subject() == subject {
			out = append(out, ev)
		}
	}
	return out
}

func (s *MemorySink) Close() error { return nil }
