// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build !linux
// +build !linux

package watch

import "github.com/charmbracelet/log"

// Inotify behaviour bits. They are accepted everywhere so configuration stays
// portable, but only the linux native backend acts on them.
const (
	DontFollow = InotifyFlag(0x2000000)
	ExclUnlink = InotifyFlag(0x4000000)
	OnlyDir    = InotifyFlag(0x1000000)
)

func newNativePrimitive(logger *log.Logger, _ Sensitivity) (primitive, error) {
	return newFSNotify(logger)
}
