// SPDX-License-Identifier: EPL-2.0

// Package event encodes the markers carried on trigger channels.
//
// Markers use MIDI-style status bytes. The low values 0x00, 0x10 and 0x20
// are data bytes in MIDI; here they carry string messages for stimulus
// onsets, offsets and free-form information.
//
// All markers of one period are packed into a single event block payload:
//
//	[offset u32][len u16][status][message...] ...
//
// offset is the frame offset of the marker relative to the block time.
package event

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Status is a marker status byte. For values below 0xf0 the low nibble
// holds a channel number.
type Status uint8

const (
	StimOn            Status = 0x00
	StimOff           Status = 0x10
	Info              Status = 0x20
	NoteOn            Status = 0x80
	NoteOff           Status = 0x90
	KeyPress          Status = 0xa0
	Control           Status = 0xb0
	ProgramChange     Status = 0xc0
	ChannelAftertouch Status = 0xd0
	PitchBend         Status = 0xe0
	Sysex             Status = 0xf0
	SysexEnd          Status = 0xf7
	Reset             Status = 0xff
)

// Default note parameters for markers generated by the detector.
const (
	DefaultPitch    = 60
	DefaultVelocity = 64
)

// WithChannel returns s with its channel nibble set to ch.
func (s Status) WithChannel(ch uint8) Status {
	if s >= 0xf0 {
		return s
	}
	return s&0xf0 | Status(ch&0x0f)
}

// Kind strips the channel nibble.
func (s Status) Kind() Status {
	if s >= 0xf0 {
		return s
	}
	return s & 0xf0
}

// Channel returns the channel nibble and whether the status carries one.
func (s Status) Channel() (uint8, bool) {
	if s >= 0xf0 {
		return 0, false
	}
	return uint8(s & 0x0f), true
}

// IsMIDI reports whether s is a standard MIDI status byte.
func (s Status) IsMIDI() bool { return s >= 0x80 }

func (s Status) IsOnset() bool {
	k := s.Kind()
	return k == NoteOn || k == StimOn
}

func (s Status) IsOffset() bool {
	k := s.Kind()
	return k == NoteOff || k == StimOff
}

var statusNames = map[Status]string{
	StimOn:            "STIM_ON",
	StimOff:           "STIM_OFF",
	Info:              "INFO",
	NoteOn:            "NOTE_ON",
	NoteOff:           "NOTE_OFF",
	KeyPress:          "KEYPRESS",
	Control:           "CTL",
	ProgramChange:     "PROGRAM_CHANGE",
	ChannelAftertouch: "AFTERTOUCH",
	PitchBend:         "PITCH_BEND",
	Sysex:             "SYSEX",
	SysexEnd:          "SYSEX_END",
	Reset:             "RESET",
}

func (s Status) String() string {
	name, ok := statusNames[s.Kind()]
	if !ok {
		name = "UNDEFINED"
	}
	if ch, ok := s.Channel(); ok {
		return fmt.Sprintf("%s(%d)", name, ch)
	}
	return name
}

// Event is one decoded marker. Data aliases the packed buffer.
type Event struct {
	Offset uint32
	Status Status
	Data   []byte
}

// Message returns the payload as a string, for the string-message kinds.
func (e Event) Message() string { return string(e.Data) }

const recordHeader = 6

var (
	// ErrTruncated indicates a packed event list that ends mid-record.
	ErrTruncated = errors.New("truncated event list")
	// ErrTooLong indicates a message that does not fit a record.
	ErrTooLong = errors.New("event message too long")
)

// Size returns the packed size of a marker with a message of n bytes.
func Size(n int) int { return recordHeader + 1 + n }

// Append packs a marker onto dst and returns the extended slice. When dst
// has enough capacity no allocation takes place.
func Append(dst []byte, offset uint32, status Status, msg []byte) ([]byte, error) {
	if len(msg)+1 > math.MaxUint16 {
		return dst, fmt.Errorf("%w: %d bytes", ErrTooLong, len(msg))
	}
	dst = binary.LittleEndian.AppendUint32(dst, offset)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(msg)+1))
	dst = append(dst, byte(status))
	return append(dst, msg...), nil
}

// AppendNote packs a NoteOn or NoteOff marker with default pitch and
// velocity.
func AppendNote(dst []byte, offset uint32, status Status) []byte {
	dst, _ = Append(dst, offset, status, []byte{DefaultPitch, DefaultVelocity})
	return dst
}

// Each calls fn for every marker in buf, in order. It stops early and
// returns nil when fn returns false.
func Each(buf []byte, fn func(Event) bool) error {
	for len(buf) > 0 {
		if len(buf) < recordHeader {
			return fmt.Errorf("%w: %d trailing bytes", ErrTruncated, len(buf))
		}
		offset := binary.LittleEndian.Uint32(buf[0:4])
		n := int(binary.LittleEndian.Uint16(buf[4:6]))
		if n == 0 || len(buf) < recordHeader+n {
			return fmt.Errorf("%w: record of %d bytes, %d left", ErrTruncated, n, len(buf)-recordHeader)
		}
		rec := buf[recordHeader : recordHeader+n]
		if !fn(Event{Offset: offset, Status: Status(rec[0]), Data: rec[1:]}) {
			return nil
		}
		buf = buf[recordHeader+n:]
	}
	return nil
}

// FindTrigger returns the offset of the first onset (onset true) or offset
// (onset false) marker in buf, or -1 if there is none. Malformed trailing
// data is ignored.
func FindTrigger(buf []byte, onset bool) int {
	found := -1
	_ = Each(buf, func(e Event) bool {
		if (onset && e.Status.IsOnset()) || (!onset && e.Status.IsOffset()) {
			found = int(e.Offset)
			return false
		}
		return true
	})
	return found
}
