//go:build unix

package jit

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func pageSize() int {
	return unix.Getpagesize()
}

// mapRegion maps anonymous read/write memory and, when requested, adds
// execute permission with a separate mprotect.
func mapRegion(size int, executable bool) ([]byte, error) {
	mem, err := unix.Mmap(
		-1, 0,
		size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap %d bytes: %w", size, err)
	}

	if executable {
		if err := unix.Mprotect(mem, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC); err != nil {
			unix.Munmap(mem)
			return nil, fmt.Errorf("failed to make %d bytes executable: %w", size, err)
		}
	}

	return mem, nil
}

func unmapRegion(mem []byte) error {
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("failed to munmap: %w", err)
	}
	return nil
}
