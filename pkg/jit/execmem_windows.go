//go:build windows

package jit

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

func pageSize() int {
	return windows.Getpagesize()
}

// mapRegion commits read/write pages and, when requested, switches them to
// read/write/execute with VirtualProtect.
func mapRegion(size int, executable bool) ([]byte, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to VirtualAlloc %d bytes: %w", size, err)
	}

	if executable {
		var old uint32
		if err := windows.VirtualProtect(addr, uintptr(size), windows.PAGE_EXECUTE_READWRITE, &old); err != nil {
			windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
			return nil, fmt.Errorf("failed to make %d bytes executable: %w", size, err)
		}
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func unmapRegion(mem []byte) error {
	addr := uintptr(unsafe.Pointer(&mem[0]))
	if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
		return fmt.Errorf("failed to VirtualFree: %w", err)
	}
	return nil
}
