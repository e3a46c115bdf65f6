// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package watch

import (
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// Backend selects the primitive a Server is built on.
type Backend string

const (
	// BackendNative is inotify on linux and fsnotify elsewhere.
	BackendNative Backend = "native"
	// BackendFSNotify uses github.com/fsnotify/fsnotify on every platform.
	BackendFSNotify Backend = "fsnotify"
	// BackendPoll compares directory snapshots on an interval.
	BackendPoll Backend = "poll"
)

// ParseBackend maps a backend name to a Backend. The empty string is
// BackendNative.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return BackendNative, nil
	case BackendNative, BackendFSNotify, BackendPoll:
		return b, nil
	default:
		return "", errors.Wrapf(errUnknownBackend, "%q", s)
	}
}

func newPrimitive(b Backend, logger *log.Logger, interval Sensitivity) (primitive, error) {
	switch b {
	case "", BackendNative:
		return newNativePrimitive(logger, interval)
	case BackendFSNotify:
		return newFSNotify(logger)
	case BackendPoll:
		return newPoll(logger, interval), nil
	default:
		return nil, errors.Wrapf(errUnknownBackend, "%q", b)
	}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for registration and backend diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBackend selects the primitive created by Init.
func WithBackend(b Backend) Option {
	return func(s *Server) {
		s.backend = b
	}
}

// WithKinds sets the initial kinds set, see SetKinds.
func WithKinds(kinds Kind) Option {
	return func(s *Server) {
		s.kinds = kinds
	}
}

// WithModifiers sets the initial modifiers, see SetModifiers.
func WithModifiers(mods ...Modifier) Option {
	return func(s *Server) {
		s.modifiers = mods
	}
}

// WithPollInterval sets the default interval of the poll backend.
func WithPollInterval(interval Sensitivity) Option {
	return func(s *Server) {
		s.pollInterval = interval
	}
}

func withPrimitive(factory func() (primitive, error)) Option {
	return func(s *Server) {
		s.factory = factory
	}
}
