/*
Copyright © 2026 Lumen Language Contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package platform abstracts file watching behind an interface so the edit
// stream's watch mode can run against fsnotify in production and a scripted
// watcher in tests.
package platform

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches source files for the edit stream's watch mode.
type FileWatcher interface {
	// Add starts watching the named file or directory
	Add(name string) error

	// Remove stops watching the named file or directory
	Remove(name string) error

	// Close stops the watcher and releases resources
	Close() error

	// Events returns a channel of file system events
	Events() <-chan FileWatchEvent

	// Errors returns a channel of errors
	Errors() <-chan error
}

// FileWatchEvent represents a file system event
type FileWatchEvent struct {
	Name string  // File path
	Op   WatchOp // Operation type
}

// WatchOp describes a set of file operations
type WatchOp uint32

const (
	Create WatchOp = 1 << iota
	Write
	Remove
	Rename
)

// FSNotifyFileWatcher implements FileWatcher using fsnotify. This is the
// production implementation.
type FSNotifyFileWatcher struct {
	watcher *fsnotify.Watcher
	events  chan FileWatchEvent
	errors  chan error
	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewFSNotifyFileWatcher creates a new file watcher using fsnotify.
func NewFSNotifyFileWatcher() (*FSNotifyFileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FSNotifyFileWatcher{
		watcher: watcher,
		events:  make(chan FileWatchEvent, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}

	fw.wg.Add(1)
	go func() {
		defer fw.wg.Done()
		fw.translateEvents()
	}()

	return fw, nil
}

func (fw *FSNotifyFileWatcher) Add(name string) error {
	fw.mu.RLock()
	defer fw.mu.RUnlock()
	if fw.closed {
		return fmt.Errorf("file watcher is closed")
	}
	return fw.watcher.Add(name)
}

func (fw *FSNotifyFileWatcher) Remove(name string) error {
	fw.mu.RLock()
	defer fw.mu.RUnlock()
	if fw.closed {
		return fmt.Errorf("file watcher is closed")
	}
	return fw.watcher.Remove(name)
}

func (fw *FSNotifyFileWatcher) Close() error {
	fw.mu.Lock()
	if fw.closed {
		fw.mu.Unlock()
		return nil
	}
	fw.closed = true
	close(fw.done)
	fw.mu.Unlock()

	fw.wg.Wait()

	err := fw.watcher.Close()
	close(fw.events)
	close(fw.errors)
	return err
}

func (fw *FSNotifyFileWatcher) Events() <-chan FileWatchEvent {
	return fw.events
}

func (fw *FSNotifyFileWatcher) Errors() <-chan error {
	return fw.errors
}

// translateEvents converts fsnotify events to the abstracted form.
func (fw *FSNotifyFileWatcher) translateEvents() {
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			var op WatchOp
			if event.Op&fsnotify.Create != 0 {
				op |= Create
			}
			if event.Op&fsnotify.Write != 0 {
				op |= Write
			}
			if event.Op&fsnotify.Remove != 0 {
				op |= Remove
			}
			if event.Op&fsnotify.Rename != 0 {
				op |= Rename
			}
			if op == 0 {
				continue
			}
			select {
			case fw.events <- FileWatchEvent{Name: event.Name, Op: op}:
			case <-fw.done:
				return
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			select {
			case fw.errors <- err:
			case <-fw.done:
				return
			}
		case <-fw.done:
			return
		}
	}
}

// ScriptedWatcher is a controllable FileWatcher for tests: events are
// injected with Emit and delivered immediately.
type ScriptedWatcher struct {
	mu      sync.Mutex
	watched map[string]struct{}
	events  chan FileWatchEvent
	errors  chan error
	closed  bool
}

// NewScriptedWatcher creates an idle scripted watcher.
func NewScriptedWatcher() *ScriptedWatcher {
	return &ScriptedWatcher{
		watched: make(map[string]struct{}),
		events:  make(chan FileWatchEvent, 100),
		errors:  make(chan error, 10),
	}
}

func (m *ScriptedWatcher) Add(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("file watcher is closed")
	}
	m.watched[name] = struct{}{}
	return nil
}

func (m *ScriptedWatcher) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watched, name)
	return nil
}

func (m *ScriptedWatcher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.events)
	close(m.errors)
	return nil
}

func (m *ScriptedWatcher) Events() <-chan FileWatchEvent {
	return m.events
}

func (m *ScriptedWatcher) Errors() <-chan error {
	return m.errors
}

// Emit injects a file event.
func (m *ScriptedWatcher) Emit(name string, op WatchOp) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.events <- FileWatchEvent{Name: name, Op: op}
}
