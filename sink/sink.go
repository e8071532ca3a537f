// SPDX-License-Identifier: EPL-2.0

package sink

import (
	"fmt"
	"strings"
	"time"

	"github.com/ik5/audacq/ringbuffer"
	"go.uber.org/zap"
)

// Sink stores entries of blocks.
type Sink interface {
	// Ready reports whether an entry is open. Writers use it to decide
	// whether a block continues the current entry or needs NewEntry first,
	// so it must not report general storage health: a sink with no open
	// entry returns false even when it can accept one.
	Ready() bool
	// NewEntry opens an entry starting at frame, closing any open one.
	NewEntry(frame uint32) error
	CloseEntry() error
	// Xrun records that data was dropped upstream.
	Xrun() error
	// Write stores frames [start, stop) of b. A stop of 0 means the end of
	// the block. Non-sampled blocks are always written whole. It returns the
	// number of frames written.
	Write(b ringbuffer.Block, start, stop int) (int, error)
	// Log records an out-of-band message.
	Log(t time.Time, source, msg string) error
	Flush() error
	Close() error
}

// Kind selects a Sink variant.
type Kind int

const (
	KindNull Kind = iota
	KindStream
	KindWAV
)

var kindNames = [...]string{
	KindNull:   "null",
	KindStream: "stream",
	KindWAV:    "wav",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a configuration name to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Options configures New. Dir and SampleRate are used by KindWAV only.
type Options struct {
	Dir        string
	SampleRate int
	Attributes map[string]string
	Logger     *zap.Logger
}

// New creates a sink of the given kind.
func New(kind Kind, opts Options) (Sink, error) {
	switch kind {
	case KindNull:
		return &Null{}, nil
	case KindStream:
		return NewStream(opts.Logger), nil
	case KindWAV:
		return NewWAV(opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

// frameRange resolves a Write range against the block.
func frameRange(b ringbuffer.Block, start, stop int) (int, int, error) {
	n := b.Frames()
	if b.Type != ringbuffer.Sampled {
		return 0, n, nil
	}
	if stop == 0 || stop > n {
		stop = n
	}
	if start < 0 || start > stop {
		return 0, 0, fmt.Errorf("%w: [%d, %d) of %d", ErrBadRange, start, stop, n)
	}
	return start, stop, nil
}
