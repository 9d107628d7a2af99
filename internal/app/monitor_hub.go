package app

import "sync"

// MonitorHub fans change notifications out to monitor subscribers, keyed
// by quiz ID. Subscribers receive ticks, not payloads; they re-read the
// monitor projection on each tick so a dropped tick never loses state.
type MonitorHub struct {
	mu     sync.Mutex
	topics map[string]map[chan struct{}]struct{}
}

func NewMonitorHub() *MonitorHub {
	return &MonitorHub{topics: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe registers a listener for a quiz. The caller must invoke the
// returned cancel function to avoid leaks.
func (h *MonitorHub) Subscribe(quizID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	subs, ok := h.topics[quizID]
	if !ok {
		subs = make(map[chan struct{}]struct{})
		h.topics[quizID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.topics[quizID]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(h.topics, quizID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Notify wakes every subscriber of a quiz. Ticks coalesce: a subscriber
// that has not drained the previous tick does not block the caller.
func (h *MonitorHub) Notify(quizID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.topics[quizID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
