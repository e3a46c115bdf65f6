// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Edited by in 2025 olandr.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package watch

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrClosed is returned by operations on a Server that was closed.
	ErrClosed = errors.New("watch server is closed")
	// ErrNotInitialized is returned by operations on a Server before Init.
	ErrNotInitialized = errors.New("watch server is not initialized")
	// ErrNotDirectory is wrapped by a WatchSetupError when a registered path
	// is not a directory.
	ErrNotDirectory = errors.New("path is not a directory")

	errPrimitiveClosed = errors.New("watch primitive is closed")
	errUnknownBackend  = errors.New("unknown watch backend")
)

// WatchSetupError reports a fatal failure to create the watch primitive or to
// register a directory with it.
type WatchSetupError struct {
	Op   string
	Path string
	Err  error
}

func (e *WatchSetupError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("watch: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("watch: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WatchSetupError) Unwrap() error { return e.Err }

// key is the registration handle a primitive hands out for one registered
// directory. Keys are never reused within a primitive.
type key uint64

// primitive is an intermediate interface for wrapping inotify, fsnotify and
// poller implementations.
//
// A primitive observes only the immediate entries of a registered directory.
// It queues events per key and reports keys as ready in the order they were
// signalled.
type primitive interface {
	// register subscribes path for the given kinds. Registering the same path
	// twice yields two independent keys.
	register(path string, kinds Kind, mods []Modifier) (key, error)

	// take blocks until a key has pending events. It returns
	// errPrimitiveClosed once close was called.
	take() (key, error)

	// pending removes and returns the key's queued events in arrival order.
	pending(k key) []Event

	// reset re-arms the key. It returns false if the key is no longer valid,
	// in which case the key is forgotten by the primitive.
	reset(k key) bool

	// close releases every registration. A blocked take returns once close
	// was called. Calling close more than once is safe.
	close() error
}

func setupError(op, path string, err error) error {
	return &WatchSetupError{Op: op, Path: path, Err: err}
}
