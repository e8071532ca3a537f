// SPDX-License-Identifier: EPL-2.0

package msgbus

import (
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/ik5/audacq/writer"
)

// MaxPending is the default number of messages a Bus holds before it
// starts dropping the oldest.
const MaxPending = 1024

// Bus is an in-process, bounded FIFO of log messages. It is safe for
// concurrent use.
type Bus struct {
	server string
	max    int

	mu      sync.Mutex
	q       *queue.Queue
	dropped uint64
	closed  bool
}

func NewBus(server string) *Bus {
	return &Bus{server: server, max: MaxPending, q: queue.New()}
}

// SetMaxPending changes the bound. Messages beyond it are dropped oldest
// first on the next publish.
func (b *Bus) SetMaxPending(n int) {
	b.mu.Lock()
	b.max = max(n, 1)
	b.mu.Unlock()
}

// Server returns the server name the bus is addressed by.
func (b *Bus) Server() string { return b.server }

// Topic returns the topic log messages are published on.
func (b *Bus) Topic() string { return Topic(b.server) }

// Topic returns the log topic for a server name.
func Topic(server string) string { return server + "/log" }

// Publish queues a message stamped with the current time.
func (b *Bus) Publish(source, text string) error {
	return b.publish(writer.Message{Source: source, Time: time.Now(), Text: text})
}

func (b *Bus) publish(m writer.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	b.q.Add(m)
	for b.q.Length() > b.max {
		b.q.Remove()
		b.dropped++
	}
	return nil
}

// Drain passes up to n queued messages to fn, oldest first. fn runs
// without the bus lock held.
func (b *Bus) Drain(n int, fn func(writer.Message)) int {
	b.mu.Lock()
	n = min(n, b.q.Length())
	batch := make([]writer.Message, n)
	for i := range batch {
		batch[i] = b.q.Remove().(writer.Message)
	}
	b.mu.Unlock()

	for _, m := range batch {
		fn(m)
	}
	return n
}

// Len returns the number of queued messages.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.q.Length()
}

// Dropped returns how many messages were discarded to honour the bound.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close rejects further publishes. Queued messages can still be drained.
func (b *Bus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}
