// Package chat provides room presence tracking and the Telnet session
// handler that connects chat users to the counting game.
package chat

import (
	"fmt"
	"sync"
)

// Outbox queues outbound lines for one connected user. The session's
// writer goroutine drains it, decoupling room broadcasts from slow
// clients.
type Outbox struct {
	uid    string
	lines  chan string
	mu     sync.Mutex
	closed bool
}

// NewOutbox creates an Outbox for the given session UID.
//
// Precondition: uid must be non-empty.
// Postcondition: Returns an Outbox with an open lines channel.
func NewOutbox(uid string, bufferSize int) *Outbox {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Outbox{
		uid:   uid,
		lines: make(chan string, bufferSize),
	}
}

// UID returns the owning session's unique identifier.
func (o *Outbox) UID() string {
	return o.uid
}

// Push enqueues a line for delivery.
//
// Postcondition: The line is enqueued, or an error if the outbox is
// closed or full. A full outbox drops the line rather than blocking the
// broadcaster.
func (o *Outbox) Push(line string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("outbox %s is closed", o.uid)
	}
	select {
	case o.lines <- line:
		return nil
	default:
		return fmt.Errorf("outbox %s buffer full", o.uid)
	}
}

// Lines returns the read-only delivery channel. The session's writer
// goroutine reads from it until it is closed.
func (o *Outbox) Lines() <-chan string {
	return o.lines
}

// Close marks the outbox as closed and closes the lines channel.
//
// Postcondition: The lines channel is closed. Further Push calls return
// an error.
func (o *Outbox) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		close(o.lines)
	}
	return nil
}

// IsClosed reports whether the outbox has been closed.
func (o *Outbox) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
