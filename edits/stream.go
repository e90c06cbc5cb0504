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

// Package edits serializes source-edit processing. Edits are applied
// strictly in receipt order: each edit reconciles the suggestions index and
// invalidates affected cache entries in every execution context, which then
// re-evaluate in the same order. The stream is also the sole writer of the
// suggestions index.
package edits

import (
	"errors"

	"lumenlang.dev/runtime/execution"
	"lumenlang.dev/runtime/internal/logging"
	"lumenlang.dev/runtime/protocol"
	"lumenlang.dev/runtime/suggestions"
)

// ErrStreamClosed is returned for edits submitted after shutdown.
var ErrStreamClosed = errors.New("edit stream closed")

// Edit is one source change to a module. Replaced lists the expression ids
// whose parsed nodes were textually replaced, as reported by the parser.
type Edit struct {
	Module   string
	Replaced []protocol.ExpressionID
	// IndexActions and IndexTree carry the compilation result for the
	// edited module, applied to the suggestions index before contexts are
	// invalidated.
	IndexActions []suggestions.Action
	IndexTree    []suggestions.TreeNode
}

// Stream owns the single mutation path into the suggestions index and
// fans invalidations out to execution contexts.
type Stream struct {
	contexts *execution.Registry
	index    *suggestions.Index
	queue    chan func()
	quit     chan struct{}
	done     chan struct{}
}

// NewStream starts the edit worker.
func NewStream(contexts *execution.Registry, index *suggestions.Index) *Stream {
	s := &Stream{
		contexts: contexts,
		index:    index,
		queue:    make(chan func(), 256),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Stream) run() {
	defer close(s.done)
	for {
		select {
		case task := <-s.queue:
			task()
		case <-s.quit:
			// Drain what was queued before shutdown, then stop.
			for {
				select {
				case task := <-s.queue:
					task()
				default:
					return
				}
			}
		}
	}
}

// Shutdown stops the worker after draining queued edits.
func (s *Stream) Shutdown() {
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
	<-s.done
}

// do runs a task on the worker goroutine and waits for it, preserving
// receipt order across callers.
func (s *Stream) do(task func()) error {
	select {
	case <-s.quit:
		return ErrStreamClosed
	default:
	}
	finished := make(chan struct{})
	select {
	case s.queue <- func() {
		task()
		close(finished)
	}:
	case <-s.done:
		return ErrStreamClosed
	}
	select {
	case <-finished:
		return nil
	case <-s.done:
		return ErrStreamClosed
	}
}

// Apply processes one edit: index reconciliation first, then cache
// invalidation and re-evaluation in every context.
func (s *Stream) Apply(edit Edit) error {
	return s.do(func() {
		if len(edit.IndexActions) > 0 || len(edit.IndexTree) > 0 {
			s.index.ApplyModuleUpdate(edit.Module, edit.IndexActions, edit.IndexTree)
		}
		for _, id := range s.contexts.List() {
			actor, err := s.contexts.Get(id)
			if err != nil {
				continue
			}
			if err := actor.ApplyEdit(edit.Module, edit.Replaced); err != nil {
				logging.Debug("edit to %s skipped context %s: %v", edit.Module, id, err)
			}
		}
	})
}

// ApplyExports funnels export-graph updates through the single writer.
func (s *Stream) ApplyExports(updates []suggestions.ExportUpdate) (changed [][]uint64, version uint64, err error) {
	err = s.do(func() {
		changed, version = s.index.ApplyExports(updates)
	})
	return
}

// RenameProject funnels a project rename through the single writer.
func (s *Stream) RenameProject(oldName, newName string) (result suggestions.RenameResult, version uint64, err error) {
	err = s.do(func() {
		result, version = s.index.RenameProject(oldName, newName)
	})
	return
}

// UpdateByExternalID funnels return-type rewrites through the single
// writer.
func (s *Stream) UpdateByExternalID(pairs []suggestions.ExternalTypeUpdate) (changed []uint64, version uint64, err error) {
	err = s.do(func() {
		changed, version = s.index.UpdateByExternalID(pairs)
	})
	return
}

// Invalidate clears the whole suggestions index; it is rebuilt from
// subsequent compilation events.
func (s *Stream) Invalidate() error {
	return s.do(func() {
		s.index.Clean()
	})
}
