// SPDX-License-Identifier: EPL-2.0

package writer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/audacq/internal/metrics"
	"github.com/ik5/audacq/ringbuffer"
	"github.com/ik5/audacq/sink"
	"go.uber.org/zap"
)

const (
	DefaultBufferSize    = 1 << 20
	DefaultLogBatch      = 10
	DefaultFlushInterval = time.Second

	// room reserved per block for the header and channel id
	blockOverhead = ringbuffer.HeaderSize + 16
	// room reserved per period for trigger markers
	eventAllowance = blockOverhead + 64
)

// Options configures a writer. Zero values select the defaults.
type Options struct {
	BufferSize    int // ring buffer bytes
	Logger        *zap.Logger
	LogSource     LogSource
	LogBatch      int // messages forwarded per pass
	FlushInterval time.Duration
}

// handler decides what happens to blocks read from the buffer. It runs on
// the consumer goroutine with the writer lock held and must release every
// block it is done with.
type handler interface {
	handleBlock(b ringbuffer.Block)
	handleXrun()
	handleReset()
}

// BufferedWriter records every pushed block, one entry per gap-free run.
type BufferedWriter struct {
	sink  sink.Sink
	buf   *ringbuffer.BlockRingBuffer
	log   *zap.Logger
	logs  LogSource
	batch int
	every time.Duration
	extra int // frames RequestFrames adds for the pretrigger window
	h     handler

	state    atomic.Int32
	xrun     atomic.Bool
	reset    atomic.Bool
	overruns atomic.Uint64

	wake  chan struct{}
	space chan struct{} // signalled by the consumer after each block
	done  chan struct{}
	mu    sync.Mutex // held by the consumer while it works
}

func newBuffered(s sink.Sink, opts Options) *BufferedWriter {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.LogBatch <= 0 {
		opts.LogBatch = DefaultLogBatch
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	done := make(chan struct{})
	close(done)

	w := &BufferedWriter{
		sink:  s,
		buf:   ringbuffer.NewBlock(opts.BufferSize),
		log:   opts.Logger.Named("writer"),
		logs:  opts.LogSource,
		batch: opts.LogBatch,
		every: opts.FlushInterval,
		wake:  make(chan struct{}, 1),
		space: make(chan struct{}, 1),
		done:  done,
	}
	metrics.BufferBytes.Set(float64(w.buf.Size()))
	return w
}

// New returns a continuous writer feeding s.
func New(s sink.Sink, opts Options) *BufferedWriter {
	w := newBuffered(s, opts)
	w.h = w
	return w
}

// Push stores a block. It returns the bytes written; 0 means the block was
// dropped and an xrun was flagged, or that the writer is stopping.
func (w *BufferedWriter) Push(t uint32, dtype ringbuffer.DataType, id string, data []byte) int {
	if State(w.state.Load()) == Stopping {
		return 0
	}
	n := w.buf.Push(t, dtype, id, data)
	if n == 0 {
		w.Xrun()
	}
	return n
}

// PushSamples stores a sampled block. Same contract as Push.
func (w *BufferedWriter) PushSamples(t uint32, id string, samples []float32) int {
	if State(w.state.Load()) == Stopping {
		return 0
	}
	n := w.buf.PushSamples(t, id, samples)
	if n == 0 {
		w.Xrun()
	}
	return n
}

// DataReady wakes the consumer. A wake-up sent while the consumer is busy
// is kept until it next waits.
func (w *BufferedWriter) DataReady() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Xrun flags that data was lost. The consumer forwards it to the sink.
func (w *BufferedWriter) Xrun() {
	w.overruns.Add(1)
	w.xrun.Store(true)
}

// Reset asks the consumer to close the current entry before the next block.
func (w *BufferedWriter) Reset() {
	if State(w.state.Load()) == Running {
		w.reset.Store(true)
	}
}

// Overruns returns the number of xruns flagged so far.
func (w *BufferedWriter) Overruns() uint64 { return w.overruns.Load() }

func (w *BufferedWriter) State() State { return State(w.state.Load()) }

// Start launches the consumer goroutine.
func (w *BufferedWriter) Start() error {
	if !w.state.CompareAndSwap(int32(Stopped), int32(Running)) {
		return ErrAlreadyRunning
	}
	done := make(chan struct{})
	w.done = done
	go w.run(done)
	return nil
}

// Stop asks the consumer to drain the buffer and exit. It never blocks and
// may be called any number of times from any goroutine.
func (w *BufferedWriter) Stop() {
	if w.state.CompareAndSwap(int32(Running), int32(Stopping)) {
		w.DataReady()
	}
}

// Join waits for the consumer goroutine to exit. Call it from the goroutine
// that called Start.
func (w *BufferedWriter) Join() {
	<-w.done
}

// Close stops the writer and releases the buffer memory. The sink is left
// open.
func (w *BufferedWriter) Close() error {
	w.Stop()
	w.Join()
	return w.buf.Close()
}

// RequestBufferSize grows the buffer to at least bytes and returns the
// resulting size. It waits for the consumer to go idle. No Push may run
// concurrently.
func (w *BufferedWriter) RequestBufferSize(bytes int) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if bytes > w.buf.Size() {
		if err := w.buf.Resize(bytes); err != nil {
			w.log.Error("resize buffer", zap.Int("bytes", bytes), zap.Error(err))
		}
		metrics.BufferBytes.Set(float64(w.buf.Size()))
	}
	return w.buf.Size()
}

// PeriodBytes returns the buffer space taken by one period of nchannels
// sampled blocks of periodSize frames and one trigger block.
func PeriodBytes(nchannels, periodSize int) int {
	return nchannels*(blockOverhead+max(periodSize, 1)*ringbuffer.SampleSize) + eventAllowance
}

// RequestFrames sizes the buffer for nframes of nchannels sampled channels
// pushed in blocks of periodSize frames with one trigger block per period.
// A triggered writer adds its pretrigger window.
func (w *BufferedWriter) RequestFrames(nframes, nchannels, periodSize int) int {
	periodSize = max(periodSize, 1)
	periods := (nframes+w.extra+periodSize-1)/periodSize + 1
	return w.RequestBufferSize(periods * PeriodBytes(nchannels, periodSize))
}

// WaitWriteSpace blocks until n bytes can be pushed without an xrun, the
// writer stops or ctx is done. It is meant for producers that are allowed
// to block, such as file playback; never call it from an audio callback.
func (w *BufferedWriter) WaitWriteSpace(ctx context.Context, n int) error {
	if limit := w.buf.Size() - 1; n > limit {
		return fmt.Errorf("%w: %d bytes, at most %d", ErrBufferTooSmall, n, limit)
	}

	done := w.done
	for w.buf.WriteSpace() < n {
		if State(w.state.Load()) != Running {
			return ErrNotRunning
		}
		w.DataReady()
		select {
		case <-w.space:
		case <-done:
			return ErrNotRunning
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (w *BufferedWriter) run(done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.every)
	defer ticker.Stop()

	w.mu.Lock()
	w.log.Debug("consumer started", zap.Int("buffer", w.buf.Size()))
	for {
		if w.xrun.CompareAndSwap(true, false) {
			w.log.Warn("xrun", zap.Uint64("overruns", w.overruns.Load()))
			metrics.Xruns.Inc()
			w.h.handleXrun()
		}
		w.drainLogs(w.batch)

		if b, ok := w.buf.PeekAhead(); ok {
			if w.reset.CompareAndSwap(true, false) {
				w.h.handleReset()
			}
			w.h.handleBlock(b)
			select {
			case w.space <- struct{}{}:
			default:
			}
			continue
		}

		if State(w.state.Load()) == Stopping {
			break
		}

		w.flush()
		w.mu.Unlock()
		select {
		case <-w.wake:
		case <-ticker.C:
		}
		w.mu.Lock()
	}

	for w.drainLogs(w.batch) == w.batch {
		// a full batch may leave more behind
	}
	w.closeEntry()
	w.flush()
	w.log.Debug("consumer stopped", zap.Uint64("overruns", w.overruns.Load()))
	w.mu.Unlock()
	w.state.Store(int32(Stopped))
}

func (w *BufferedWriter) handleBlock(b ringbuffer.Block) {
	if !w.sink.Ready() {
		w.newEntry(b.Time)
	}
	w.writeBlock(b, 0, 0)
	w.buf.Release()
}

// handleXrun closes the entry so every entry is gap-free.
func (w *BufferedWriter) handleXrun() {
	w.sinkXrun()
	w.closeEntry()
}

func (w *BufferedWriter) handleReset() {
	w.closeEntry()
}

func (w *BufferedWriter) drainLogs(n int) int {
	if w.logs == nil {
		return 0
	}
	return w.logs.Drain(n, func(m Message) {
		if err := w.sink.Log(m.Time, m.Source, m.Text); err != nil {
			w.sinkError("log", err)
			return
		}
		metrics.LogMessages.Inc()
	})
}

func (w *BufferedWriter) newEntry(frame uint32) {
	if err := w.sink.NewEntry(frame); err != nil {
		w.sinkError("new entry", err, zap.Uint32("frame", frame))
		return
	}
	metrics.Entries.Inc()
	w.log.Debug("entry opened", zap.Uint32("frame", frame))
}

func (w *BufferedWriter) closeEntry() {
	if !w.sink.Ready() {
		return
	}
	if err := w.sink.CloseEntry(); err != nil {
		w.sinkError("close entry", err)
		return
	}
	w.log.Debug("entry closed")
}

func (w *BufferedWriter) writeBlock(b ringbuffer.Block, start, stop int) {
	n, err := w.sink.Write(b, start, stop)
	if err != nil {
		w.sinkError("write", err, zap.String("channel", b.Channel()), zap.Uint32("time", b.Time))
		return
	}
	metrics.BlocksWritten.Inc()
	if b.Type == ringbuffer.Sampled {
		metrics.FramesWritten.Add(float64(n))
	}
}

func (w *BufferedWriter) sinkXrun() {
	if err := w.sink.Xrun(); err != nil {
		w.sinkError("xrun", err)
	}
}

func (w *BufferedWriter) flush() {
	if err := w.sink.Flush(); err != nil {
		w.sinkError("flush", err)
	}
}

func (w *BufferedWriter) sinkError(op string, err error, fields ...zap.Field) {
	metrics.SinkErrors.Inc()
	w.log.Error("sink "+op, append(fields, zap.Error(err))...)
}
