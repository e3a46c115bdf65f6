// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	poller "github.com/radovskyb/watcher"
)

// pollPrimitive snapshots registered directories on an interval. It is the
// fallback for filesystems that do not deliver native notifications, such as
// network mounts.
//
// The poller starts with the first registration. Its interval is the
// Sensitivity modifier of that registration, or the default interval when
// none was given; later Sensitivity modifiers cannot change it.
type pollPrimitive struct {
	delegate *poller.Watcher
	queue    *keyQueue
	logger   *log.Logger

	// setup serializes register and close. It is never held by run, which
	// must keep reading while the poller holds its own lock.
	setup    sync.Mutex
	interval time.Duration
	started  bool
	closed   bool

	mu    sync.Mutex
	paths map[string][]key
	wg    sync.WaitGroup
	once  sync.Once
}

func newPoll(logger *log.Logger, interval Sensitivity) *pollPrimitive {
	if interval <= 0 {
		interval = SensitivityMedium
	}
	delegate := poller.New()
	delegate.IgnoreHiddenFiles(false)
	return &pollPrimitive{
		delegate: delegate,
		queue:    newKeyQueue(),
		logger:   logger,
		interval: time.Duration(interval),
		paths:    make(map[string][]key),
	}
}

func (p *pollPrimitive) register(path string, kinds Kind, mods []Modifier) (key, error) {
	path = filepath.Clean(path)
	p.setup.Lock()
	defer p.setup.Unlock()
	if p.closed {
		return 0, errPrimitiveClosed
	}
	p.mu.Lock()
	watched := len(p.paths[path]) > 0
	p.mu.Unlock()
	if !watched {
		if err := p.delegate.Add(path); err != nil {
			return 0, err
		}
	}
	if !p.started {
		for _, mod := range mods {
			if s, ok := mod.(Sensitivity); ok && s > 0 {
				p.interval = time.Duration(s)
			}
		}
		p.start()
	}
	k := p.queue.add(path, kinds)
	p.mu.Lock()
	p.paths[path] = append(p.paths[path], k)
	p.mu.Unlock()
	p.logger.Debug("poll watch added", "path", path, "key", k, "interval", p.interval)
	return k, nil
}

// start launches the poller and returns once it is running. The interval is
// positive and Start is called once, so Start always gets far enough to
// release Wait.
func (p *pollPrimitive) start() {
	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		if err := p.delegate.Start(p.interval); err != nil {
			p.logger.Error("poller stopped", "err", err)
		}
	}()
	p.delegate.Wait()
	go func() {
		defer p.wg.Done()
		p.run()
	}()
	p.started = true
}

func (p *pollPrimitive) take() (key, error)     { return p.queue.take() }
func (p *pollPrimitive) pending(k key) []Event { return p.queue.pending(k) }
func (p *pollPrimitive) reset(k key) bool      { return p.queue.reset(k) }

func (p *pollPrimitive) close() error {
	p.once.Do(func() {
		p.queue.close()
		p.setup.Lock()
		p.closed = true
		started := p.started
		p.setup.Unlock()
		if !started {
			return
		}
		// The poller takes the close request only between two scans, up to
		// one interval from now.
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.delegate.Close()
		}()
	})
	return nil
}

// wait blocks until the poller and its reader have exited.
func (p *pollPrimitive) wait() { p.wg.Wait() }

func (p *pollPrimitive) run() {
	for {
		select {
		case event := <-p.delegate.Event:
			p.dispatch(event)
		case err := <-p.delegate.Error:
			if errors.Is(err, poller.ErrWatchedFileDeleted) {
				p.sweep()
				continue
			}
			p.logger.Warn("poller error", "err", err)
		case <-p.delegate.Closed:
			return
		}
	}
}

func (p *pollPrimitive) dispatch(event poller.Event) {
	switch event.Op {
	case poller.Create:
		p.signal(event.Path, Create, event)
	case poller.Write, poller.Chmod:
		// Directory mtimes move with their contents; only entries count.
		if event.IsDir() {
			return
		}
		p.signal(event.Path, Modify, event)
	case poller.Remove:
		p.signal(event.Path, Delete, event)
		p.invalidate(event.Path)
	case poller.Rename, poller.Move:
		p.signal(event.OldPath, Delete, event)
		p.signal(event.Path, Create, event)
		p.invalidate(event.OldPath)
	}
}

func (p *pollPrimitive) signal(path string, kind Kind, event poller.Event) {
	path = filepath.Clean(path)
	p.mu.Lock()
	keys := p.paths[filepath.Dir(path)]
	p.mu.Unlock()
	for _, k := range keys {
		p.queue.signal(k, Event{Kind: kind, Name: filepath.Base(path), Sys: event})
	}
}

func (p *pollPrimitive) invalidate(path string) {
	path = filepath.Clean(path)
	p.mu.Lock()
	keys := p.paths[path]
	delete(p.paths, path)
	p.mu.Unlock()
	// The poller drops a vanished directory by itself.
	for _, k := range keys {
		p.queue.invalidate(k)
	}
}

// sweep invalidates registrations whose directory is gone. The poller drops a
// vanished directory from its snapshot before comparing, and reports it
// without a path, so no Remove event ever names it.
func (p *pollPrimitive) sweep() {
	p.mu.Lock()
	var gone []string
	for path := range p.paths {
		if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
			gone = append(gone, path)
		}
	}
	p.mu.Unlock()
	for _, path := range gone {
		p.logger.Debug("polled directory vanished", "path", path)
		p.signal(path, Delete, poller.Event{Op: poller.Remove, Path: path})
		p.invalidate(path)
	}
}
