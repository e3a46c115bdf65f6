// File created by olandr (c) 2025.
// Contains code from Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package watch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// Received is one delivery made to a Consumer.
type Received struct {
	Event Event
	Path  string
}

func (r Received) String() string { return fmt.Sprintf("%v@%s", r.Event, r.Path) }

// Recorder is a Consumer and a Watcher that keeps everything it is handed.
type Recorder struct {
	mu       sync.Mutex
	received []Received
	methods  []string
}

func (r *Recorder) Consume(event Event, path string) {
	r.mu.Lock()
	r.received = append(r.received, Received{Event: event, Path: path})
	r.mu.Unlock()
}

func (r *Recorder) on(method string, event Event, path string) {
	r.mu.Lock()
	r.methods = append(r.methods, method)
	r.mu.Unlock()
	r.Consume(event, path)
}

func (r *Recorder) OnCreate(event Event, path string)   { r.on("OnCreate", event, path) }
func (r *Recorder) OnModify(event Event, path string)   { r.on("OnModify", event, path) }
func (r *Recorder) OnDelete(event Event, path string)   { r.on("OnDelete", event, path) }
func (r *Recorder) OnOverflow(event Event, path string) { r.on("OnOverflow", event, path) }

func (r *Recorder) Received() []Received {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Received(nil), r.received...)
}

func (r *Recorder) Methods() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.methods...)
}

// drainOnce runs a single DrainOnce bounded by the test timeout.
func drainOnce(t *testing.T, s *Server, r *Recorder, filter Filter) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- s.DrainOnce(context.Background(), r.Consume, filter) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("%s: DrainOnce()=%v", caller(), err)
		}
	case <-time.After(timeout()):
		s.Close()
		<-done
		t.Fatalf("%s: DrainOnce timed out after %v", caller(), timeout())
	}
}

// collectUntil drains s until pred holds for a delivery or the timeout
// expires. It reports whether pred was satisfied.
func collectUntil(t *testing.T, s *Server, pred func(Received) bool) ([]Received, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout())
	defer cancel()
	r := &Recorder{}
	for !s.Closed() {
		if err := s.DrainOnce(ctx, r.Consume, nil); err != nil {
			t.Fatalf("%s: DrainOnce()=%v", caller(), err)
		}
		for _, got := range r.Received() {
			if pred(got) {
				return r.Received(), true
			}
		}
	}
	return r.Received(), false
}
