// File created by olandr (c) 2025.
// Contains code from Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package watch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FileOperation is a filesystem action together with the delivery it is
// expected to produce.
type FileOperation struct {
	Action func()
	Want   Received
}

func (op FileOperation) String() string {
	return op.Want.Event.Kind.String() + "@" + filepath.Join(op.Want.Path, op.Want.Event.Name)
}

// Match reports whether got is the delivery op expects, ignoring Count and
// Sys.
func (op FileOperation) Match(got Received) bool {
	return got.Path == op.Want.Path &&
		got.Event.Kind == op.Want.Event.Kind &&
		got.Event.Name == op.Want.Event.Name
}

func want(root, path string, kind Kind) Received {
	path = filepath.Join(root, filepath.FromSlash(path))
	return Received{
		Event: Event{Kind: kind, Name: filepath.Base(path)},
		Path:  filepath.Dir(path),
	}
}

// create makes a file, or a directory when path ends with a slash.
func create(t *testing.T, root, path string) FileOperation {
	return FileOperation{
		Action: func() {
			full := filepath.Join(root, filepath.FromSlash(path))
			var err error
			if strings.HasSuffix(path, "/") {
				err = os.Mkdir(full, 0o755)
				dbgprintf("[FS] os.Mkdir(%q)", path)
			} else {
				err = tmpcreate(filepath.Dir(full), filepath.Base(full))
				dbgprintf("[FS] os.Create(%q)", path)
			}
			if err != nil {
				t.Fatalf("create(%q)=%v", path, err)
			}
		},
		Want: want(root, path, Create),
	}
}

func remove(t *testing.T, root, path string) FileOperation {
	return FileOperation{
		Action: func() {
			if err := os.RemoveAll(filepath.Join(root, filepath.FromSlash(path))); err != nil {
				t.Fatal(err)
			}
			dbgprintf("[FS] os.Remove(%q)", path)
		},
		Want: want(root, path, Delete),
	}
}

// rename expects the Create of newpath; the Delete of oldpath is reported as
// well but on a separate registration when the directories differ.
func rename(t *testing.T, root, oldpath, newpath string) FileOperation {
	return FileOperation{
		Action: func() {
			err := os.Rename(filepath.Join(root, filepath.FromSlash(oldpath)),
				filepath.Join(root, filepath.FromSlash(newpath)))
			if err != nil {
				t.Fatal(err)
			}
			dbgprintf("[FS] os.Rename(%q, %q)", oldpath, newpath)
		},
		Want: want(root, newpath, Create),
	}
}

func write(t *testing.T, root, path string, p []byte) FileOperation {
	return FileOperation{
		Action: func() {
			f, err := os.OpenFile(filepath.Join(root, filepath.FromSlash(path)), os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				t.Fatalf("OpenFile(%q)=%v", path, err)
			}
			if _, err := f.Write(p); err != nil {
				t.Fatalf("Write(%q)=%v", path, err)
			}
			if err := nonil(f.Sync(), f.Close()); err != nil {
				t.Fatalf("Sync(%q)/Close(%q)=%v", path, path, err)
			}
			dbgprintf("[FS] Write(%q)", path)
		},
		Want: want(root, path, Modify),
	}
}

// expect performs op and drains s until the expected delivery shows up.
func expect(t *testing.T, s *Server, op FileOperation) []Received {
	t.Helper()
	op.Action()
	got, ok := collectUntil(t, s, op.Match)
	if !ok {
		t.Fatalf("%s: want %v; got %v", caller(), op, got)
	}
	return got
}
