// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package watch

import (
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

var fsnotifyKinds = [...]struct {
	op   fsnotify.Op
	kind Kind
}{
	{fsnotify.Create, Create},
	{fsnotify.Write | fsnotify.Chmod, Modify},
	{fsnotify.Remove | fsnotify.Rename, Delete},
}

// fsnotifyPrimitive multiplexes registrations over one fsnotify.Watcher.
// fsnotify reports full paths, so events are routed by their parent
// directory.
type fsnotifyPrimitive struct {
	watcher *fsnotify.Watcher
	queue   *keyQueue
	logger  *log.Logger
	setup   sync.Mutex
	mu      sync.Mutex
	paths   map[string][]key
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	err     error
}

func newFSNotify(logger *log.Logger) (*fsnotifyPrimitive, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "fsnotify")
	}
	p := &fsnotifyPrimitive{
		watcher: watcher,
		queue:   newKeyQueue(),
		logger:  logger,
		paths:   make(map[string][]key),
		done:    make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p, nil
}

func (p *fsnotifyPrimitive) register(path string, kinds Kind, _ []Modifier) (key, error) {
	path = filepath.Clean(path)
	p.setup.Lock()
	defer p.setup.Unlock()
	p.mu.Lock()
	watched := len(p.paths[path]) > 0
	p.mu.Unlock()
	if !watched {
		if err := p.watcher.Add(path); err != nil {
			return 0, err
		}
	}
	k := p.queue.add(path, kinds)
	p.mu.Lock()
	p.paths[path] = append(p.paths[path], k)
	p.mu.Unlock()
	p.logger.Debug("fsnotify watch added", "path", path, "key", k)
	return k, nil
}

func (p *fsnotifyPrimitive) take() (key, error)     { return p.queue.take() }
func (p *fsnotifyPrimitive) pending(k key) []Event { return p.queue.pending(k) }
func (p *fsnotifyPrimitive) reset(k key) bool      { return p.queue.reset(k) }

func (p *fsnotifyPrimitive) close() error {
	p.once.Do(func() {
		p.queue.close()
		close(p.done)
		p.err = p.watcher.Close()
		p.wg.Wait()
	})
	return p.err
}

func (p *fsnotifyPrimitive) run() {
	defer p.wg.Done()
	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			p.dispatch(event)
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				p.logger.Warn("fsnotify queue overflow")
				for _, k := range p.queue.live() {
					p.queue.signal(k, Event{Kind: Overflow, Sys: err})
				}
				continue
			}
			p.logger.Warn("fsnotify error", "err", err)
		case <-p.done:
			return
		}
	}
}

func (p *fsnotifyPrimitive) dispatch(event fsnotify.Event) {
	name := filepath.Clean(event.Name)
	p.mu.Lock()
	parent := p.paths[filepath.Dir(name)]
	var gone []key
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		gone = p.paths[name]
		delete(p.paths, name)
	}
	p.mu.Unlock()

	for _, m := range fsnotifyKinds {
		if event.Op&m.op == 0 {
			continue
		}
		for _, k := range parent {
			p.queue.signal(k, Event{Kind: m.kind, Name: filepath.Base(name), Sys: event})
		}
	}
	if len(gone) == 0 {
		return
	}
	// A removed directory is dropped by fsnotify on its own; a renamed one is
	// still watched under a path that no longer exists.
	if event.Op&fsnotify.Rename != 0 {
		if err := p.watcher.Remove(name); err != nil {
			p.logger.Debug("fsnotify remove failed", "path", name, "err", err)
		}
	}
	for _, k := range gone {
		p.queue.invalidate(k)
	}
}
