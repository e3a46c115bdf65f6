// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package watch

// Watcher receives events routed by their kind. path is the registered
// directory the event was reported for.
type Watcher interface {
	OnCreate(event Event, path string)
	OnModify(event Event, path string)
	OnDelete(event Event, path string)
	OnOverflow(event Event, path string)
}

// Dispatch returns a Consumer calling exactly one method of w per event.
// Events of any other kind are dropped.
func Dispatch(w Watcher) Consumer {
	return func(event Event, path string) {
		switch event.Kind {
		case Create:
			w.OnCreate(event, path)
		case Modify:
			w.OnModify(event, path)
		case Delete:
			w.OnDelete(event, path)
		case Overflow:
			w.OnOverflow(event, path)
		default:
			// Kinds added by future primitives are ignored.
		}
	}
}

// Handlers implements Watcher with optional funcs. A nil field ignores its
// kind.
type Handlers struct {
	Create   Consumer
	Modify   Consumer
	Delete   Consumer
	Overflow Consumer
}

func (h Handlers) OnCreate(event Event, path string)   { call(h.Create, event, path) }
func (h Handlers) OnModify(event Event, path string)   { call(h.Modify, event, path) }
func (h Handlers) OnDelete(event Event, path string)   { call(h.Delete, event, path) }
func (h Handlers) OnOverflow(event Event, path string) { call(h.Overflow, event, path) }

func call(fn Consumer, event Event, path string) {
	if fn != nil {
		fn(event, path)
	}
}

// NameFilter keeps only events whose Name is one of names, plus Overflow
// events. It is how a single file is watched: register its directory with
// depth 1 and filter on the file's base name.
func NameFilter(names ...string) Filter {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return func(event Event) bool {
		if event.Kind == Overflow {
			return true
		}
		_, ok := set[event.Name]
		return ok
	}
}

// KindFilter keeps only events whose kind is in kinds.
func KindFilter(kinds Kind) Filter {
	return func(event Event) bool {
		return kinds&event.Kind != 0
	}
}
