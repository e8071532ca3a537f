// SPDX-License-Identifier: EPL-2.0

//go:build linux

package ringbuffer

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mapMirror maps one memfd twice, back to back, so that the second half of
// the returned slice aliases the first. size must be a multiple of the page
// size.
func mapMirror(size int) ([]byte, func() error, error) {
	if size <= 0 || size%os.Getpagesize() != 0 {
		return nil, nil, ErrNoMirror
	}

	fd, err := unix.MemfdCreate("ringbuffer", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: memfd: %w", ErrNoMirror, err)
	}
	defer unix.Close(fd)

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		return nil, nil, fmt.Errorf("%w: ftruncate: %w", ErrNoMirror, err)
	}

	length := uintptr(2 * size)
	base, err := unix.MmapPtr(-1, 0, nil, length, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reserve: %w", ErrNoMirror, err)
	}

	for half := range 2 {
		addr := unsafe.Add(base, half*size)
		if _, err := unix.MmapPtr(fd, 0, addr, uintptr(size),
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_FIXED); err != nil {
			_ = unix.MunmapPtr(base, length)
			return nil, nil, fmt.Errorf("%w: map half %d: %w", ErrNoMirror, half, err)
		}
	}

	data := unsafe.Slice((*byte)(base), 2*size)
	lockMemory(data)

	unmap := func() error {
		return unix.MunmapPtr(base, length)
	}

	return data, unmap, nil
}

// lockMemory keeps the buffer resident so the real-time thread does not
// take page faults. Failure (usually RLIMIT_MEMLOCK) is not fatal.
func lockMemory(data []byte) {
	_ = unix.Mlock(data)
}
