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
package server

import (
	"sync"

	"lumenlang.dev/runtime/internal/logging"
)

// coalesceThreshold is the queue depth beyond which successive expression
// updates for the same (context, expression) collapse to the most recent.
// Terminal and diagnostic notifications never carry a coalesce key and are
// never dropped.
const coalesceThreshold = 128

// outboundItem is one message queued for a session: either a text-channel
// notification/response or a binary-channel frame.
type outboundItem struct {
	text        any
	binary      []byte
	coalesceKey string
}

// outbox serializes outbound traffic for one session. A single writer
// goroutine drains the queue, which keeps notification order per session.
type outbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []outboundItem
	closed bool

	transport transport
	done      chan struct{}
}

func newOutbox(t transport) *outbox {
	o := &outbox{transport: t, done: make(chan struct{})}
	o.cond = sync.NewCond(&o.mu)
	go o.writeLoop()
	return o
}

// enqueue appends an item, coalescing against a queued item with the same
// key when the session is falling behind.
func (o *outbox) enqueue(item outboundItem) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	if item.coalesceKey != "" && len(o.queue) >= coalesceThreshold {
		for i := range o.queue {
			if o.queue[i].coalesceKey == item.coalesceKey {
				o.queue[i] = item
				o.cond.Signal()
				return
			}
		}
	}
	o.queue = append(o.queue, item)
	o.cond.Signal()
}

func (o *outbox) writeLoop() {
	defer close(o.done)
	for {
		o.mu.Lock()
		for len(o.queue) == 0 && !o.closed {
			o.cond.Wait()
		}
		if o.closed && len(o.queue) == 0 {
			o.mu.Unlock()
			return
		}
		item := o.queue[0]
		o.queue = o.queue[1:]
		o.mu.Unlock()

		var err error
		if item.binary != nil {
			err = o.transport.WriteBinary(item.binary)
		} else {
			err = o.transport.WriteText(item.text)
		}
		if err != nil {
			logging.Debug("outbox: write failed, dropping session: %v", err)
			o.close()
			return
		}
	}
}

// close stops the writer after the queue drains; pending writes after a
// transport failure are discarded.
func (o *outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.cond.Broadcast()
	o.mu.Unlock()
}

// wait blocks until the writer goroutine exits.
func (o *outbox) wait() {
	<-o.done
}
