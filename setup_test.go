// File created by olandr (c) 2025
// Contains code from Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// pollInterval keeps the poll backend fast enough for tests.
const pollInterval = Sensitivity(20 * time.Millisecond)

var backends = []Backend{BackendNative, BackendFSNotify, BackendPoll}

// forEachBackend runs fn as a subtest against every backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, b Backend)) {
	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			fn(t, b)
		})
	}
}

// newServerTest returns a running Server on backend b together with a fresh,
// empty root directory.
func newServerTest(t *testing.T, b Backend, opts ...Option) (*Server, string) {
	t.Helper()
	root, err := cleanpath(t.TempDir())
	if err != nil {
		t.Fatalf("cleanpath()=%v", err)
	}
	opts = append([]Option{
		WithBackend(b),
		WithLogger(testLogger()),
		WithPollInterval(pollInterval),
	}, opts...)
	s, err := Open(opts...)
	if err != nil {
		t.Fatalf("Open(%s)=%v", b, err)
	}
	t.Cleanup(func() {
		s.Close()
		if p, ok := s.prim.(*pollPrimitive); ok {
			p.wait()
		}
	})
	return s, root
}

// mkdirs creates each slash separated directory below root.
func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, dir := range dirs {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0o755); err != nil {
			t.Fatalf("MkdirAll(%q)=%v", dir, err)
		}
	}
}

// settle gives pollers a full cycle so setup done before registration is not
// reported.
func settle(b Backend) {
	if b == BackendPoll {
		time.Sleep(3 * time.Duration(pollInterval))
	}
}
