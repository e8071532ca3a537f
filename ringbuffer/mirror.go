// SPDX-License-Identifier: EPL-2.0

package ringbuffer

import "runtime"

// mirror is a 2*size byte store in which data[i] and data[i+size] refer to
// the same logical byte.
type mirror struct {
	data   []byte
	size   int
	mapped bool
	unmap  func() error
}

func newMirror(size int) *mirror {
	if data, unmap, err := mapMirror(size); err == nil {
		m := &mirror{data: data, size: size, mapped: true, unmap: unmap}
		runtime.SetFinalizer(m, (*mirror).release)
		return m
	}

	data := make([]byte, 2*size)
	lockMemory(data)
	return &mirror{data: data, size: size}
}

// sync replicates n bytes written at off (off < size) into the aliased
// half. It is a no-op when the mirror is provided by the MMU.
func (m *mirror) sync(off, n int) {
	if m.mapped || n == 0 {
		return
	}

	end := off + n
	if end <= m.size {
		copy(m.data[off+m.size:end+m.size], m.data[off:end])
		return
	}

	copy(m.data[off+m.size:], m.data[off:m.size])
	copy(m.data[:end-m.size], m.data[m.size:end])
}

func (m *mirror) release() error {
	if m.unmap == nil {
		m.data = nil
		return nil
	}

	err := m.unmap()
	m.unmap = nil
	m.data = nil
	runtime.SetFinalizer(m, nil)
	return err
}
