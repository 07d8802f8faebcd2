//go:build !unix && !windows

package jit

func pageSize() int {
	return 4096
}

func mapRegion(size int, executable bool) ([]byte, error) {
	return nil, ErrUnsupported
}

func unmapRegion(mem []byte) error {
	return ErrUnsupported
}
