// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Edited by in 2025 olandr.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

// BUG(olandr): Keys invalidated by the primitive are evicted only once their
// last batch is drained. A directory removed and recreated between two drains
// is not watched again; register it anew.

// BUG(olandr): The poll backend fixes its interval on the first registration;
// Sensitivity modifiers passed later are ignored. Close returns at once, but
// the poller itself stops only at the end of its current interval.

package watch

import (
	"context"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// Consumer receives an event together with the path of the registered
// directory that produced it.
type Consumer func(event Event, path string)

// Filter reports whether an event should be delivered. A nil Filter keeps
// every event.
type Filter func(event Event) bool

// Server multiplexes directory registrations over a single watch primitive.
//
// A Server goes through three states: New returns it uninitialized, Init
// makes it running and Close makes it closed for good. A single goroutine is
// expected to drive DrainOnce; Close and RegisterPath may be called from any
// goroutine.
type Server struct {
	mu           sync.RWMutex
	prim         primitive
	registry     map[key]string
	kinds        Kind
	modifiers    []Modifier
	closed       atomic.Bool
	logger       *log.Logger
	backend      Backend
	pollInterval Sensitivity
	factory      func() (primitive, error)
}

// New returns an uninitialized Server.
func New(opts ...Option) *Server {
	s := &Server{
		registry: make(map[key]string),
		backend:  BackendNative,
		logger:   log.NewWithOptions(os.Stderr, log.Options{Level: log.WarnLevel, Prefix: "watch"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.factory == nil {
		s.factory = func() (primitive, error) {
			return newPrimitive(s.backend, s.logger, s.pollInterval)
		}
	}
	return s
}

// Open returns a running Server.
func Open(opts ...Option) (*Server, error) {
	s := New(opts...)
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

// Init acquires the watch primitive. It fails with a *WatchSetupError when the
// primitive cannot be created and with ErrClosed when the Server was closed.
// Calling Init on a running Server does nothing.
func (s *Server) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}
	if s.prim != nil {
		return nil
	}
	prim, err := s.factory()
	if err != nil {
		return setupError("init", "", err)
	}
	s.prim = prim
	s.logger.Debug("watch server initialized", "backend", s.backend)
	return nil
}

// Close marks the Server closed and releases the primitive. A DrainOnce
// blocked in another goroutine returns promptly. Failures to release the
// primitive are logged, never returned. Close is idempotent.
func (s *Server) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.mu.RLock()
	prim := s.prim
	s.mu.RUnlock()
	if prim == nil {
		return nil
	}
	if err := prim.close(); err != nil {
		s.logger.Debug("releasing watch primitive failed", "err", err)
	}
	return nil
}

// Closed reports whether Close was called.
func (s *Server) Closed() bool {
	return s.closed.Load()
}

// SetKinds sets the kinds subscribed to by later registrations. Zero restores
// All.
func (s *Server) SetKinds(kinds Kind) {
	s.mu.Lock()
	s.kinds = kinds
	s.mu.Unlock()
}

// SetModifiers replaces the modifiers passed to later registrations.
func (s *Server) SetModifiers(mods ...Modifier) {
	s.mu.Lock()
	s.modifiers = append([]Modifier(nil), mods...)
	s.mu.Unlock()
}

// Len returns the number of live registrations.
func (s *Server) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

// Paths returns the registered directories, one entry per registration.
func (s *Server) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.registry))
	for _, p := range s.registry {
		paths = append(paths, p)
	}
	return paths
}

// running returns the primitive, or the error describing why there is none.
func (s *Server) running() (primitive, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	s.mu.RLock()
	prim := s.prim
	s.mu.RUnlock()
	if prim == nil {
		return nil, ErrNotInitialized
	}
	return prim, nil
}

// DrainOnce waits for one registered directory to have pending events and
// hands each of them, in the order the primitive reported them, to consume.
// Events rejected by filter are skipped.
//
// Close, or cancellation of ctx, ends the wait: the Server is closed and
// DrainOnce returns nil without delivering anything. On a closed Server
// DrainOnce returns nil at once.
func (s *Server) DrainOnce(ctx context.Context, consume Consumer, filter Filter) error {
	prim, err := s.running()
	if errors.Is(err, ErrClosed) {
		return nil
	}
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		_ = s.Close()
		return nil
	}
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	k, err := prim.take()
	if err != nil {
		_ = s.Close()
		return nil
	}
	// A cancellation that raced take closes the Server from another
	// goroutine; its batch is not delivered.
	if ctx.Err() != nil {
		_ = s.Close()
		return nil
	}
	if s.closed.Load() {
		return nil
	}

	s.mu.RLock()
	path, ok := s.registry[k]
	s.mu.RUnlock()
	events := prim.pending(k)
	if ok {
		for _, event := range events {
			if filter != nil && !filter(event) {
				continue
			}
			consume(event, path)
		}
	} else {
		s.logger.Debug("dropping events for unknown key", "key", k, "events", len(events))
	}

	if !prim.reset(k) {
		s.mu.Lock()
		delete(s.registry, k)
		s.mu.Unlock()
		s.logger.Debug("registration invalidated", "path", path, "key", k)
	}
	return nil
}

// DrainOnceTo is DrainOnce with events routed to w by kind.
func (s *Server) DrainOnceTo(ctx context.Context, w Watcher, filter Filter) error {
	return s.DrainOnce(ctx, Dispatch(w), filter)
}

// Run calls DrainOnceTo until the Server is closed or ctx is done.
func (s *Server) Run(ctx context.Context, w Watcher, filter Filter) error {
	for !s.closed.Load() {
		if err := s.DrainOnceTo(ctx, w, filter); err != nil {
			return err
		}
	}
	return nil
}
