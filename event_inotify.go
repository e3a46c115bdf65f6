// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Edited by in 2025 olandr.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build linux
// +build linux

package watch

import (
	"encoding/binary"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Inotify behaviour bits accepted as modifiers by the native backend.
const (
	DontFollow = InotifyFlag(unix.IN_DONT_FOLLOW)
	ExclUnlink = InotifyFlag(unix.IN_EXCL_UNLINK)
	OnlyDir    = InotifyFlag(unix.IN_ONLYDIR)
)

// Inotify masks mapped onto each kind.
const (
	inCreate = unix.IN_CREATE | unix.IN_MOVED_TO
	inModify = unix.IN_MODIFY | unix.IN_ATTRIB
	inDelete = unix.IN_DELETE | unix.IN_MOVED_FROM
)

var inotifyKinds = [...]struct {
	mask uint32
	kind Kind
}{
	{inCreate, Create},
	{inModify, Modify},
	{inDelete, Delete},
}

// inotifyBufferSize fits 4096 events of the largest possible name.
const inotifyBufferSize = 4096 * (unix.SizeofInotifyEvent + unix.NAME_MAX + 1)

// InotifyEvent is the Sys value of events produced by the native backend.
type InotifyEvent struct {
	Wd     int32
	Mask   uint32
	Cookie uint32
	Name   string
}

func newNativePrimitive(logger *log.Logger, _ Sensitivity) (primitive, error) {
	return newInotify(logger)
}

type inotify struct {
	fd      int
	pipe    [2]int
	queue   *keyQueue
	logger  *log.Logger
	mu      sync.Mutex
	watches map[int32][]key
	wg      sync.WaitGroup
	once    sync.Once
	err     error
}

func newInotify(logger *log.Logger) (*inotify, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, os.NewSyscallError("inotify_init1", err)
	}
	i := &inotify{
		fd:      fd,
		queue:   newKeyQueue(),
		logger:  logger,
		watches: make(map[int32][]key),
	}
	if err := unix.Pipe2(i.pipe[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("pipe2", err)
	}
	i.wg.Add(1)
	go i.loop()
	return i, nil
}

func (i *inotify) register(path string, kinds Kind, mods []Modifier) (key, error) {
	if kinds == 0 {
		kinds = All
	}
	mask := uint32(unix.IN_MASK_ADD | unix.IN_DELETE_SELF)
	for _, m := range inotifyKinds {
		if kinds&m.kind != 0 {
			mask |= m.mask
		}
	}
	for _, mod := range mods {
		if flag, ok := mod.(InotifyFlag); ok {
			mask |= uint32(flag)
		}
	}
	wd, err := unix.InotifyAddWatch(i.fd, path, mask)
	if err != nil {
		return 0, &os.PathError{Op: "inotify_add_watch", Path: path, Err: err}
	}
	k := i.queue.add(path, kinds)
	i.mu.Lock()
	i.watches[int32(wd)] = append(i.watches[int32(wd)], k)
	i.mu.Unlock()
	i.logger.Debug("inotify watch added", "path", path, "wd", wd, "key", k)
	return k, nil
}

func (i *inotify) take() (key, error)     { return i.queue.take() }
func (i *inotify) pending(k key) []Event { return i.queue.pending(k) }
func (i *inotify) reset(k key) bool      { return i.queue.reset(k) }

func (i *inotify) close() error {
	i.once.Do(func() {
		i.queue.close()
		if _, err := unix.Write(i.pipe[1], []byte{0}); err != nil {
			i.err = os.NewSyscallError("write", err)
		}
		i.wg.Wait()
		for _, fd := range []int{i.fd, i.pipe[0], i.pipe[1]} {
			if err := unix.Close(fd); err != nil && i.err == nil {
				i.err = os.NewSyscallError("close", err)
			}
		}
	})
	return i.err
}

func (i *inotify) loop() {
	defer i.wg.Done()
	buf := make([]byte, inotifyBufferSize)
	fds := []unix.PollFd{
		{Fd: int32(i.fd), Events: unix.POLLIN},
		{Fd: int32(i.pipe[0]), Events: unix.POLLIN},
	}
	for {
		if _, err := unix.Poll(fds, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			i.logger.Error("inotify poll failed", "err", err)
			return
		}
		if fds[1].Revents != 0 {
			return
		}
		if fds[0].Revents&unix.POLLIN == 0 {
			continue
		}
		n, err := unix.Read(i.fd, buf)
		switch {
		case err == unix.EAGAIN || err == unix.EINTR:
			continue
		case err != nil:
			i.logger.Error("inotify read failed", "err", err)
			return
		}
		if err := i.process(buf[:n]); err != nil {
			i.logger.Warn("inotify short read", "err", err)
		}
	}
}

func (i *inotify) process(buf []byte) error {
	for offset := 0; offset < len(buf); {
		if len(buf)-offset < unix.SizeofInotifyEvent {
			return errors.Errorf("%d trailing bytes", len(buf)-offset)
		}
		raw := InotifyEvent{
			Wd:     int32(binary.NativeEndian.Uint32(buf[offset:])),
			Mask:   binary.NativeEndian.Uint32(buf[offset+4:]),
			Cookie: binary.NativeEndian.Uint32(buf[offset+8:]),
		}
		nameLen := int(binary.NativeEndian.Uint32(buf[offset+12:]))
		offset += unix.SizeofInotifyEvent
		if nameLen > 0 {
			if offset+nameLen > len(buf) {
				return errors.Errorf("name overruns buffer by %d bytes", offset+nameLen-len(buf))
			}
			raw.Name = strings.TrimRight(string(buf[offset:offset+nameLen]), "\x00")
			offset += nameLen
		}
		i.dispatch(raw)
	}
	return nil
}

func (i *inotify) dispatch(raw InotifyEvent) {
	if raw.Mask&unix.IN_Q_OVERFLOW != 0 {
		i.logger.Warn("inotify queue overflow")
		for _, k := range i.queue.live() {
			i.queue.signal(k, Event{Kind: Overflow, Sys: raw})
		}
		return
	}
	i.mu.Lock()
	keys := i.watches[raw.Wd]
	if raw.Mask&unix.IN_IGNORED != 0 {
		delete(i.watches, raw.Wd)
	}
	i.mu.Unlock()
	if raw.Mask&unix.IN_IGNORED != 0 {
		for _, k := range keys {
			i.queue.invalidate(k)
		}
		return
	}
	for _, m := range inotifyKinds {
		if raw.Mask&m.mask == 0 {
			continue
		}
		for _, k := range keys {
			i.queue.signal(k, Event{Kind: m.kind, Name: raw.Name, Sys: raw})
		}
	}
}
