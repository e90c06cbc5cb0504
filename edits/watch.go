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
package edits

import (
	"sync"

	"lumenlang.dev/runtime/evaluator"
	"lumenlang.dev/runtime/internal/logging"
	"lumenlang.dev/runtime/internal/platform"
)

// Watcher forwards file-system changes under the project directory into the
// edit stream as whole-module edits. Front-end edits carry precise replaced
// expression sets; out-of-band file writes cannot, so the whole module is
// invalidated.
type Watcher struct {
	stream   *Stream
	watcher  platform.FileWatcher
	resolver evaluator.ModuleResolver
	quit     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewWatcher starts forwarding events from the file watcher. The caller
// remains responsible for adding paths to the watcher.
func NewWatcher(stream *Stream, watcher platform.FileWatcher, resolver evaluator.ModuleResolver) *Watcher {
	w := &Watcher{
		stream:   stream,
		watcher:  watcher,
		resolver: resolver,
		quit:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events():
			if !ok {
				return
			}
			module, ok := w.resolver.ResolveModule(event.Name)
			if !ok {
				continue
			}
			logging.Debug("watch: %s changed, invalidating module %s", event.Name, module)
			if err := w.stream.Apply(Edit{Module: module}); err != nil {
				return
			}
		case err, ok := <-w.watcher.Errors():
			if !ok {
				return
			}
			logging.Warning("watch: %v", err)
		case <-w.quit:
			return
		}
	}
}

// Stop closes the underlying watcher and waits for the forwarder to exit.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.quit)
		if err := w.watcher.Close(); err != nil {
			logging.Warning("watch: close: %v", err)
		}
	})
	w.wg.Wait()
}
