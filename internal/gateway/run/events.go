package run

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// EventKind names a step of a generation run.
type EventKind string

const (
	EventRunStarted        EventKind = "run_started"
	EventFileWritten       EventKind = "file_written"
	EventMissingDependency EventKind = "missing_dependency"
	EventRunFailed         EventKind = "run_failed"
	EventRunFinished       EventKind = "run_finished"
)

// Event is published to subscribers of a run and mirrored to its trace.
type Event struct {
	Seq        int       `json:"seq"`
	RunID      string    `json:"run_id"`
	Kind       EventKind `json:"kind"`
	Path       string    `json:"path,omitempty"`
	Dependency string    `json:"dependency,omitempty"`
	Message    string    `json:"message,omitempty"`
	Time       time.Time `json:"time"`
}

// Terminal reports whether no event follows e for its run.
func (e Event) Terminal() bool {
	return e.Kind == EventRunFailed || e.Kind == EventRunFinished
}

const (
	defaultRetention  = 30 * time.Second
	maxHistory        = 4096
	subscriberBacklog = 64
)

type subscriber struct {
	ch     chan Event
	gone   chan struct{}
	closed bool
}

type topic struct {
	history []Event
	seq     int
	subs    map[*subscriber]struct{}
	done    bool
}

// EventBroker fans run events out to subscribers. Subscribers that join late
// get the history replayed first; finished runs are kept for a retention
// period so a client connecting right after completion still sees them.
// Subscribers that fall behind by more than their backlog are dropped.
type EventBroker struct {
	mu        sync.Mutex
	topics    map[string]*topic
	retention time.Duration
}

func NewEventBroker() *EventBroker {
	return &EventBroker{topics: make(map[string]*topic), retention: defaultRetention}
}

func (b *EventBroker) topicLocked(runID string) *topic {
	t, ok := b.topics[runID]
	if !ok {
		t = &topic{subs: make(map[*subscriber]struct{})}
		b.topics[runID] = t
	}
	return t
}

// Subscribe returns a channel of runID's events. It is closed after the
// terminal event, when ctx ends, or when the subscriber falls behind.
func (b *EventBroker) Subscribe(ctx context.Context, runID string) (<-chan Event, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("run_id is required")
	}
	b.mu.Lock()
	t := b.topicLocked(runID)
	sub := &subscriber{ch: make(chan Event, len(t.history)+subscriberBacklog), gone: make(chan struct{})}
	for _, ev := range t.history {
		sub.ch <- ev
	}
	if t.done {
		b.closeLocked(sub)
		b.mu.Unlock()
		return sub.ch, nil
	}
	t.subs[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-sub.gone:
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		b.closeLocked(sub)
		if cur, ok := b.topics[runID]; ok && cur == t {
			delete(t.subs, sub)
			b.dropIdleLocked(runID, t)
		}
	}()
	return sub.ch, nil
}

// Publish assigns the next sequence number to ev and delivers it.
func (b *EventBroker) Publish(ev Event) Event {
	ev.RunID = strings.TrimSpace(ev.RunID)
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.topicLocked(ev.RunID)
	t.seq++
	ev.Seq = t.seq
	if len(t.history) < maxHistory {
		t.history = append(t.history, ev)
	}
	for sub := range t.subs {
		select {
		case sub.ch <- ev:
		default:
			delete(t.subs, sub)
			b.closeLocked(sub)
		}
	}
	if ev.Terminal() {
		b.finishLocked(ev.RunID, t)
	}
	return ev
}

// History returns a copy of the events recorded for runID.
func (b *EventBroker) History(runID string) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[strings.TrimSpace(runID)]
	if !ok {
		return nil
	}
	return append([]Event(nil), t.history...)
}

// Reopen forgets a finished run so its id can be used again. Runs that have
// not published a terminal event are left alone.
func (b *EventBroker) Reopen(runID string) {
	runID = strings.TrimSpace(runID)
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.topics[runID]; ok && t.done {
		delete(b.topics, runID)
	}
}

func (b *EventBroker) finishLocked(runID string, t *topic) {
	t.done = true
	for sub := range t.subs {
		b.closeLocked(sub)
	}
	t.subs = make(map[*subscriber]struct{})
	time.AfterFunc(b.retention, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if cur, ok := b.topics[runID]; ok && cur == t {
			delete(b.topics, runID)
		}
	})
}

// dropIdleLocked forgets a topic nobody published to once its last
// subscriber has left.
func (b *EventBroker) dropIdleLocked(runID string, t *topic) {
	if !t.done && len(t.subs) == 0 && len(t.history) == 0 {
		delete(b.topics, runID)
	}
}

func (b *EventBroker) closeLocked(sub *subscriber) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)
	close(sub.gone)
}

// Topics returns the number of runs the broker currently holds state for.
func (b *EventBroker) Topics() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics)
}
