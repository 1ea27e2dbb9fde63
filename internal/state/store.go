package state

import (
	"log"
	"sync"
	"time"

	"VIXBar/internal/model"

	"github.com/google/uuid"
)

// Event is delivered to subscribers after every successful publish.
type Event struct {
	Seq      uint64
	Quote    model.Quote
	Snapshot model.Snapshot
}

// Listener receives events on the store's dispatcher goroutine.
type Listener func(Event)

// Subscription is a handle returned by Subscribe.
type Subscription struct {
	ID    uuid.UUID
	store *Store
}

// Unsubscribe detaches the listener. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.store == nil {
		return
	}
	s.store.unsubscribe(s.ID)
}

// Store owns the observable state and history. Writes happen under a lock;
// notifications go out in publish order on a single dispatcher goroutine.
type Store struct {
	mu          sync.RWMutex
	latest      *float64
	lastUpdated *time.Time
	history     *History
	seq         uint64

	subMu     sync.Mutex
	listeners map[uuid.UUID]subscriber
	order     []uuid.UUID

	qMu       sync.Mutex
	pending   []Event
	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

type subscriber struct {
	fn    Listener
	since uint64
}

// NewStore creates a Store and starts its dispatcher.
func NewStore() *Store {
	s := &Store{
		history:   NewHistory(HistoryCapacity),
		listeners: make(map[uuid.UUID]subscriber),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go s.dispatch()
	return s
}

// Publish records q as the latest value, appends it to history and queues a
// notification. Value and timestamp change together.
func (s *Store) Publish(q model.Quote) {
	s.mu.Lock()
	v := q.Value
	ts := q.ObservedAt
	s.latest = &v
	s.lastUpdated = &ts
	s.history.Append(v)
	s.seq++
	snap := s.snapshotLocked()

	// Enqueue while holding the write lock so queue order matches mutation order.
	s.qMu.Lock()
	s.pending = append(s.pending, Event{Seq: s.seq, Quote: q, Snapshot: snap})
	s.qMu.Unlock()
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Latest returns the current state.
func (s *Store) Latest() model.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// History returns the stored values, oldest first.
func (s *Store) History() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Values()
}

// Snapshot returns state and history read under one lock.
func (s *Store) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe attaches fn. Only changes published after this call are delivered.
func (s *Store) Subscribe(fn Listener) *Subscription {
	id := uuid.New()
	s.mu.RLock()
	since := s.seq
	s.mu.RUnlock()

	s.subMu.Lock()
	s.listeners[id] = subscriber{fn: fn, since: since}
	s.order = append(s.order, id)
	s.subMu.Unlock()
	return &Subscription{ID: id, store: s}
}

// Subscribers returns the number of attached listeners.
func (s *Store) Subscribers() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.listeners)
}

// Close stops the dispatcher after draining queued events.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.stopped
	})
}

func (s *Store) unsubscribe(id uuid.UUID) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if _, ok := s.listeners[id]; !ok {
		return
	}
	delete(s.listeners, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Store) stateLocked() model.State {
	var st model.State
	if s.latest != nil {
		v := *s.latest
		st.LatestValue = &v
	}
	if s.lastUpdated != nil {
		ts := *s.lastUpdated
		st.LastUpdated = &ts
	}
	return st
}

func (s *Store) snapshotLocked() model.Snapshot {
	return model.Snapshot{State: s.stateLocked(), History: s.history.Values()}
}

func (s *Store) dispatch() {
	defer close(s.stopped)
	for {
		select {
		case <-s.wake:
			s.drain()
		case <-s.done:
			s.drain()
			return
		}
	}
}

func (s *Store) drain() {
	for {
		s.qMu.Lock()
		batch := s.pending
		s.pending = nil
		s.qMu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, evt := range batch {
			for _, sub := range s.currentListeners() {
				if evt.Seq > sub.since {
					s.deliver(sub.fn, evt)
				}
			}
		}
	}
}

func (s *Store) currentListeners() []subscriber {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	out := make([]subscriber, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.listeners[id])
	}
	return out
}

func (s *Store) deliver(fn Listener, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] state listener panic: %v", r)
		}
	}()
	fn(evt)
}
