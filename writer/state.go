// SPDX-License-Identifier: EPL-2.0

package writer

import (
	"fmt"
	"time"
)

// State of the consumer goroutine.
type State int32

const (
	Stopped State = iota
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Message is an out-of-band log message.
type Message struct {
	Source string
	Time   time.Time
	Text   string
}

// LogSource supplies out-of-band log messages. Drain passes at most max
// queued messages to fn, oldest first, and returns how many it passed.
type LogSource interface {
	Drain(max int, fn func(Message)) int
}
