// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package watch

import "sync"

// maxPendingEvents caps the events queued on a single key; anything past the
// cap is folded into one Overflow event.
const maxPendingEvents = 512

type watchKey struct {
	path      string
	kinds     Kind
	events    []Event
	signalled bool
	valid     bool
}

// keyQueue is the key bookkeeping shared by every backend. Backends signal
// events on keys from their reader goroutine and the pump takes ready keys
// one at a time.
type keyQueue struct {
	mu     sync.Mutex
	next   key
	keys   map[key]*watchKey
	ready  []key
	wake   chan struct{}
	closed chan struct{}
	once   sync.Once
}

func newKeyQueue() *keyQueue {
	return &keyQueue{
		keys:   make(map[key]*watchKey),
		wake:   make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (q *keyQueue) add(path string, kinds Kind) key {
	if kinds == 0 {
		kinds = All
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.next++
	q.keys[q.next] = &watchKey{path: path, kinds: kinds, valid: true}
	return q.next
}

// signal queues ev on k and marks k ready. Events of a kind k did not
// subscribe to are dropped, except Overflow. A pending Overflow absorbs
// everything signalled after it.
func (q *keyQueue) signal(k key, ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	wk, ok := q.keys[k]
	if !ok || !wk.valid {
		return
	}
	if ev.Kind != Overflow && wk.kinds&ev.Kind == 0 {
		return
	}
	if ev.Count == 0 {
		ev.Count = 1
	}
	if n := len(wk.events); n > 0 {
		last := &wk.events[n-1]
		switch {
		case last.Kind == Overflow:
			last.Count += ev.Count
			return
		case last.Kind == ev.Kind && last.Name == ev.Name:
			last.Count += ev.Count
			return
		}
	}
	if len(wk.events) >= maxPendingEvents {
		ev = Event{Kind: Overflow, Count: ev.Count}
	}
	wk.events = append(wk.events, ev)
	q.markLocked(k, wk)
}

// invalidate cancels k. Events already queued stay deliverable; the next
// reset reports the key as gone.
func (q *keyQueue) invalidate(k key) {
	q.mu.Lock()
	defer q.mu.Unlock()
	wk, ok := q.keys[k]
	if !ok || !wk.valid {
		return
	}
	wk.valid = false
	q.markLocked(k, wk)
}

func (q *keyQueue) markLocked(k key, wk *watchKey) {
	if wk.signalled {
		return
	}
	wk.signalled = true
	q.ready = append(q.ready, k)
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *keyQueue) take() (key, error) {
	for {
		select {
		case <-q.closed:
			return 0, errPrimitiveClosed
		default:
		}
		q.mu.Lock()
		if len(q.ready) > 0 {
			k := q.ready[0]
			q.ready = q.ready[1:]
			q.mu.Unlock()
			return k, nil
		}
		q.mu.Unlock()
		select {
		case <-q.wake:
		case <-q.closed:
			return 0, errPrimitiveClosed
		}
	}
}

func (q *keyQueue) pending(k key) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	wk, ok := q.keys[k]
	if !ok {
		return nil
	}
	events := wk.events
	wk.events = nil
	return events
}

func (q *keyQueue) reset(k key) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	wk, ok := q.keys[k]
	if !ok {
		return false
	}
	// An invalid key lives until its last events are taken.
	if !wk.valid && len(wk.events) == 0 {
		delete(q.keys, k)
		return false
	}
	if len(wk.events) > 0 {
		q.ready = append(q.ready, k)
		select {
		case q.wake <- struct{}{}:
		default:
		}
		return true
	}
	wk.signalled = false
	return true
}

// live returns every valid key.
func (q *keyQueue) live() []key {
	q.mu.Lock()
	defer q.mu.Unlock()
	keys := make([]key, 0, len(q.keys))
	for k, wk := range q.keys {
		if wk.valid {
			keys = append(keys, k)
		}
	}
	return keys
}

func (q *keyQueue) close() {
	q.once.Do(func() { close(q.closed) })
}
