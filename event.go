// File created by olandr (c) 2025.
// Contains code from Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package watch

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind describes the category of a filesystem change. Kinds are bit flags, so
// a single Kind value can also describe the set of kinds a registration
// subscribes to.
type Kind uint32

const (
	// Create is reported when an entry is created in, or moved into, a
	// registered directory.
	Create Kind = 1 << iota
	// Modify is reported when an entry's contents or metadata change.
	Modify
	// Delete is reported when an entry is removed from, or moved out of, a
	// registered directory.
	Delete
	// Overflow is reported when the primitive could not keep up and events
	// were lost. Overflow is delivered regardless of the subscribed kinds.
	Overflow
)

// All is the default kinds set.
const All = Create | Modify | Delete | Overflow

var kindstr = map[Kind]string{
	Create:   "watch.Create",
	Modify:   "watch.Modify",
	Delete:   "watch.Delete",
	Overflow: "watch.Overflow",
}

// String implements fmt.Stringer interface.
func (k Kind) String() string {
	var s []string
	for ev, str := range kindstr {
		if k&ev == ev {
			s = append(s, str)
		}
	}
	if len(s) == 0 {
		return fmt.Sprintf("watch.Kind(%#x)", uint32(k))
	}
	sort.Strings(s)
	return strings.Join(s, "|")
}

// Has reports whether every kind of other is in k.
func (k Kind) Has(other Kind) bool { return other != 0 && k&other == other }

// Event is a single raw notification reported for a registered directory.
type Event struct {
	// Kind is exactly one of Create, Modify, Delete or Overflow.
	Kind Kind
	// Name is the affected entry relative to the registered directory. It is
	// empty for Overflow.
	Name string
	// Count is the number of identical consecutive notifications folded into
	// this event.
	Count int
	// Sys is the backend specific value the event was built from.
	Sys interface{}
}

func (e Event) String() string {
	if e.Count > 1 {
		return fmt.Sprintf("%s %q (x%d)", e.Kind, e.Name, e.Count)
	}
	return fmt.Sprintf("%s %q", e.Kind, e.Name)
}

// Modifier tunes how a primitive observes a registered directory. Backends
// ignore modifiers they do not understand.
type Modifier interface {
	modifier()
}

// Sensitivity is the polling interval used by the poll backend.
type Sensitivity time.Duration

const (
	SensitivityHigh   = Sensitivity(2 * time.Second)
	SensitivityMedium = Sensitivity(10 * time.Second)
	SensitivityLow    = Sensitivity(30 * time.Second)
)

func (Sensitivity) modifier() {}

func (s Sensitivity) String() string { return time.Duration(s).String() }

// InotifyFlag carries inotify behaviour bits. It is honoured by the native
// backend on linux only.
type InotifyFlag uint32

func (InotifyFlag) modifier() {}
