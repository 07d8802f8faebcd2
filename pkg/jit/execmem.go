package jit

import (
	"fmt"
	"unsafe"
)

// Buffer owns a page-aligned region of memory mapped outside the Go heap.
// It is readable and writable; it is also executable when allocated with
// executable set. Free is the only release point.
type Buffer struct {
	mem        []byte
	size       int
	executable bool
}

// Allocate maps a zeroed region of at least size bytes, rounded up to whole
// pages. Nothing stays mapped when an error is returned.
func Allocate(size int, executable bool) (*Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("invalid buffer size %d", size)
	}
	page := pageSize()
	mapped := (size + page - 1) / page * page
	if mapped == 0 {
		mapped = page
	}

	mem, err := mapRegion(mapped, executable)
	if err != nil {
		return nil, err
	}

	return &Buffer{
		mem:        mem,
		size:       size,
		executable: executable,
	}, nil
}

// Bytes returns the whole mapped region for writing. It is nil after Free.
func (b *Buffer) Bytes() []byte {
	return b.mem
}

// Addr returns the base address of the region, or 0 after Free.
func (b *Buffer) Addr() uintptr {
	if len(b.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b.mem[0]))
}

// Size returns the size requested at allocation.
func (b *Buffer) Size() int {
	return b.size
}

// Len returns the mapped length, a whole number of pages.
func (b *Buffer) Len() int {
	return len(b.mem)
}

func (b *Buffer) Executable() bool {
	return b.executable
}

// Free releases the region. Calling it again is a no-op.
func (b *Buffer) Free() error {
	if b.mem == nil {
		return nil
	}
	err := unmapRegion(b.mem)
	b.mem = nil
	return err
}
