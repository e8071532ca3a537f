// SPDX-License-Identifier: EPL-2.0

//go:build !linux

package ringbuffer

func mapMirror(int) ([]byte, func() error, error) {
	return nil, nil, ErrNoMirror
}

func lockMemory([]byte) {}
