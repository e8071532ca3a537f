// SPDX-License-Identifier: EPL-2.0

package msgbus

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ik5/audacq/writer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ writer.LogSource = (*Bus)(nil)

func collect(b *Bus, n int) []writer.Message {
	var out []writer.Message
	b.Drain(n, func(m writer.Message) { out = append(out, m) })
	return out
}

func TestBus_FIFO(t *testing.T) {
	t.Parallel()

	b := NewBus("jrecord")
	assert.Equal(t, "jrecord", b.Server())
	assert.Equal(t, "jrecord/log", b.Topic())

	for i := range 5 {
		require.NoError(t, b.Publish("ctl", fmt.Sprintf("msg %d", i)))
	}
	assert.Equal(t, 5, b.Len())

	got := collect(b, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "msg 0", got[0].Text)
	assert.Equal(t, "ctl", got[0].Source)
	assert.False(t, got[0].Time.IsZero())
	assert.Equal(t, "msg 2", got[2].Text)

	got = collect(b, 10)
	require.Len(t, got, 2)
	assert.Equal(t, "msg 4", got[1].Text)
	assert.Zero(t, collect(b, 10))
}

func TestBus_Bounded(t *testing.T) {
	t.Parallel()

	b := NewBus("s")
	b.SetMaxPending(3)
	for i := range 5 {
		require.NoError(t, b.Publish("ctl", fmt.Sprint(i)))
	}
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, uint64(2), b.Dropped())
	assert.Equal(t, "2", collect(b, 1)[0].Text)
}

func TestBus_Close(t *testing.T) {
	t.Parallel()

	b := NewBus("s")
	require.NoError(t, b.Publish("ctl", "kept"))
	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Publish("ctl", "late"), ErrClosed)
	assert.Len(t, collect(b, 10), 1)
}

func TestBus_Concurrent(t *testing.T) {
	t.Parallel()

	b := NewBus("s")
	var wg sync.WaitGroup
	for p := range 4 {
		wg.Go(func() {
			for i := range 100 {
				_ = b.Publish(fmt.Sprint(p), fmt.Sprint(i))
			}
		})
	}

	got := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		got += b.Drain(7, func(writer.Message) {})
		select {
		case <-done:
			got += b.Drain(1000, func(writer.Message) {})
			assert.Equal(t, 400, got)
			return
		default:
		}
	}
}
