// SPDX-License-Identifier: EPL-2.0

package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status Status
		want   string
	}{
		{NoteOn.WithChannel(3), "NOTE_ON(3)"},
		{NoteOff, "NOTE_OFF(0)"},
		{StimOn, "STIM_ON(0)"},
		{Info.WithChannel(15), "INFO(15)"},
		{Sysex, "SYSEX"},
		{Reset, "RESET"},
		{Status(0x30), "UNDEFINED(0)"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}

func TestStatus_Classification(t *testing.T) {
	t.Parallel()

	assert.True(t, NoteOn.WithChannel(2).IsOnset())
	assert.True(t, StimOn.IsOnset())
	assert.False(t, NoteOff.IsOnset())
	assert.True(t, NoteOff.WithChannel(9).IsOffset())
	assert.True(t, StimOff.IsOffset())
	assert.False(t, Info.IsOffset())

	assert.True(t, Control.IsMIDI())
	assert.False(t, StimOn.IsMIDI())

	ch, ok := PitchBend.WithChannel(7).Channel()
	assert.True(t, ok)
	assert.Equal(t, uint8(7), ch)

	_, ok = SysexEnd.WithChannel(1).Channel()
	assert.False(t, ok)
	assert.Equal(t, SysexEnd, SysexEnd.WithChannel(1))
}

func TestAppendEach(t *testing.T) {
	t.Parallel()

	var buf []byte
	buf = AppendNote(buf, 12, NoteOn)
	buf, err := Append(buf, 40, Info, []byte("hello"))
	require.NoError(t, err)
	buf = AppendNote(buf, 100, NoteOff)

	assert.Len(t, buf, Size(2)*2+Size(5))

	var got []Event
	require.NoError(t, Each(buf, func(e Event) bool {
		got = append(got, e)
		return true
	}))

	require.Len(t, got, 3)
	assert.Equal(t, uint32(12), got[0].Offset)
	assert.Equal(t, NoteOn, got[0].Status)
	assert.Equal(t, []byte{DefaultPitch, DefaultVelocity}, got[0].Data)
	assert.Equal(t, "hello", got[1].Message())
	assert.Equal(t, NoteOff, got[2].Status)
}

func TestEach_Truncated(t *testing.T) {
	t.Parallel()

	buf := AppendNote(nil, 0, NoteOn)

	err := Each(buf[:len(buf)-1], func(Event) bool { return true })
	assert.ErrorIs(t, err, ErrTruncated)

	err = Each(buf[:3], func(Event) bool { return true })
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestAppend_TooLong(t *testing.T) {
	t.Parallel()

	_, err := Append(nil, 0, Info, make([]byte, 1<<16))
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestFindTrigger(t *testing.T) {
	t.Parallel()

	buf, _ := Append(nil, 5, Info, []byte("start"))
	buf = AppendNote(buf, 10, NoteOff)
	buf, _ = Append(buf, 20, StimOn, []byte("song.wav"))
	buf = AppendNote(buf, 30, NoteOn)

	assert.Equal(t, 20, FindTrigger(buf, true))
	assert.Equal(t, 10, FindTrigger(buf, false))
	assert.Equal(t, -1, FindTrigger(nil, true))
	assert.Equal(t, -1, FindTrigger(AppendNote(nil, 0, NoteOn), false))
}
