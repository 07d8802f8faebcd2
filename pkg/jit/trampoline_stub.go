//go:build !amd64 || !cgo || !(unix || windows)

package jit

// Supported reports whether the native backend is compiled in. Translation
// still works on every platform; only execution needs amd64 and cgo.
const Supported = false

func trampolineAddrs() (readByte, writeByte uint64) {
	panic("trampolineAddrs should never be called without the native backend")
}

func invoke(code, cells, in, out uintptr) error {
	return ErrUnsupported
}
