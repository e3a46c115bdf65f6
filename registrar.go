// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// RegisterPath watches path and, when maxDepth > 1, every directory below it
// up to maxDepth levels deep. The root is level 1, so maxDepth 2 also watches
// the root's immediate subdirectories. Symlinks are not followed.
//
// Directories that cannot be accessed are skipped, path itself included. Any
// other failure aborts the walk with a *WatchSetupError; directories
// registered before the failure stay registered.
//
// Registering a path twice yields two independent registrations.
func (s *Server) RegisterPath(path string, maxDepth int) error {
	prim, err := s.running()
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	switch {
	case err != nil && errors.Is(err, fs.ErrPermission):
		s.logger.Debug("skipping inaccessible directory", "path", path, "err", err)
		return nil
	case err != nil:
		return setupError("register", path, err)
	case !info.IsDir():
		return setupError("register", path, ErrNotDirectory)
	}
	if err := s.register(prim, path); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			s.logger.Debug("skipping inaccessible directory", "path", path, "err", err)
			return nil
		}
		return err
	}
	if maxDepth <= 1 {
		return nil
	}

	root := filepath.Clean(path)
	return filepath.WalkDir(root, func(dir string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				s.logger.Debug("skipping inaccessible directory", "path", dir, "err", err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			return setupError("walk", dir, err)
		}
		if !d.IsDir() || dir == root {
			return nil
		}
		depth := depthOf(root, dir)
		if depth > maxDepth {
			return fs.SkipDir
		}
		if err := s.register(prim, dir); err != nil {
			if errors.Is(err, fs.ErrPermission) {
				s.logger.Debug("skipping inaccessible directory", "path", dir, "err", err)
				return fs.SkipDir
			}
			return err
		}
		if depth == maxDepth {
			return fs.SkipDir
		}
		return nil
	})
}

// register subscribes a single directory and records it in the registry. The
// registry lock is held across the primitive call so the pump never sees a
// key before its path.
func (s *Server) register(prim primitive, dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}
	k, err := prim.register(dir, s.kinds, s.modifiers)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return err
		}
		return setupError("register", dir, err)
	}
	s.registry[k] = dir
	s.logger.Debug("directory registered", "path", dir, "key", k)
	return nil
}

// depthOf returns the level of dir below root, counting root as 1.
func depthOf(root, dir string) int {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return 1
	}
	return strings.Count(rel, string(filepath.Separator)) + 2
}
