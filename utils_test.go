// File created by olandr (c) 2025.
// Contains code from Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package watch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/charmbracelet/log"
)

// NOTE(olandr): some useful environment variables:
//
//   - WATCH_DEBUG prints server and backend logs to stderr
//   - WATCH_TIMEOUT allows for changing default wait time for events

func fakename() string {
	return strings.ToLower(gofakeit.LetterN(8))
}

func fakefile() string {
	return fmt.Sprintf("%v.%v", fakename(), gofakeit.FileExtension())
}

// randomtree creates a directory tree below a fresh temporary root. Each
// directory at level < depth gets width subdirectories and one file; the root
// is level 1. It returns the root and every directory by level.
func randomtree(t *testing.T, depth, width int) (string, map[int][]string) {
	t.Helper()
	root, err := cleanpath(t.TempDir())
	if err != nil {
		t.Fatalf("cleanpath()=%v", err)
	}
	levels := map[int][]string{1: {root}}
	for level := 1; level < depth; level++ {
		for _, dir := range levels[level] {
			if err := tmpcreate(dir, fakefile()); err != nil {
				t.Fatalf("tmpcreate(%q)=%v", dir, err)
			}
			for n := 0; n < width; n++ {
				sub := filepath.Join(dir, fakename())
				if err := os.Mkdir(sub, 0o755); err != nil {
					t.Fatalf("Mkdir(%q)=%v", sub, err)
				}
				levels[level+1] = append(levels[level+1], sub)
			}
		}
	}
	return root, levels
}

// upto flattens the levels of a randomtree up to and including depth.
func upto(levels map[int][]string, depth int) []string {
	var dirs []string
	for level, ds := range levels {
		if level <= depth {
			dirs = append(dirs, ds...)
		}
	}
	sort.Strings(dirs)
	return dirs
}

func tmpcreate(dir, name string) error {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	return nonil(f.Sync(), f.Close())
}

// cleanpath resolves symlinks, so paths compare equal to what backends
// report on systems with a symlinked temp dir.
func cleanpath(path string) (string, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(path)
}

func nonil(err ...error) error {
	for _, err := range err {
		if err != nil {
			return err
		}
	}
	return nil
}

func callern(n int) string {
	_, file, line, ok := runtime.Caller(n)
	if !ok {
		return "<unknown>"
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

func caller() string {
	return callern(3)
}

func timeout() time.Duration {
	if s := os.Getenv("WATCH_TIMEOUT"); s != "" {
		if t, err := time.ParseDuration(s); err == nil {
			return t
		}
	}
	return 2 * time.Second
}

func testLogger() *log.Logger {
	if os.Getenv("WATCH_DEBUG") != "" {
		return log.NewWithOptions(os.Stderr, log.Options{Level: log.DebugLevel, Prefix: "watch"})
	}
	return log.New(io.Discard)
}

func dbgprintf(format string, v ...interface{}) {
	if os.Getenv("WATCH_DEBUG") != "" {
		fmt.Fprintf(os.Stderr, "%s: %s\n", callern(2), fmt.Sprintf(format, v...))
	}
}

func sorted(s []string) []string {
	s = append([]string(nil), s...)
	sort.Strings(s)
	return s
}

func equalStrings(want, got []string) error {
	want, got = sorted(want), sorted(got)
	if len(want) != len(got) {
		return fmt.Errorf("want %d entries %v; got %d %v", len(want), want, len(got), got)
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("want %v; got %v (i=%d)", want, got, i)
		}
	}
	return nil
}
