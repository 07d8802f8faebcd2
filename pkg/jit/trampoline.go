//go:build amd64 && cgo && (unix || windows)

package jit

/*
#include <stddef.h>
#include <stdint.h>

#ifdef _WIN32
#include <windows.h>
#else
#include <errno.h>
#include <unistd.h>
#endif

// Translated routines use the System V convention on every host, so the
// trampolines and the routine pointer type are pinned to it.
#define BF_ABI __attribute__((sysv_abi))
#define BF_OUT_CAP 4096

static uintptr_t bf_in;
static uintptr_t bf_out;
static unsigned char bf_out_buf[BF_OUT_CAP];
static size_t bf_out_len;
static int bf_out_err;

static int bf_sys_read(unsigned char *b) {
#ifdef _WIN32
	DWORD n = 0;
	return ReadFile((HANDLE)bf_in, b, 1, &n, NULL) && n == 1;
#else
	ssize_t n;
	do {
		n = read((int)bf_in, b, 1);
	} while (n < 0 && errno == EINTR);
	return n == 1;
#endif
}

static void bf_flush(void) {
	size_t off = 0;
	while (off < bf_out_len && !bf_out_err) {
#ifdef _WIN32
		DWORD n = 0;
		if (!WriteFile((HANDLE)bf_out, bf_out_buf + off, (DWORD)(bf_out_len - off), &n, NULL) || n == 0) {
			bf_out_err = 1;
			break;
		}
#else
		ssize_t n = write((int)bf_out, bf_out_buf + off, bf_out_len - off);
		if (n < 0 && errno == EINTR) {
			continue;
		}
		if (n <= 0) {
			bf_out_err = 1;
			break;
		}
#endif
		off += (size_t)n;
	}
	bf_out_len = 0;
}

// bf_read_byte returns the next input byte, or -1 at end of input or on error.
static BF_ABI int64_t bf_read_byte(void) {
	unsigned char b;
	bf_flush();
	if (!bf_sys_read(&b)) {
		return -1;
	}
	return b;
}

static BF_ABI void bf_write_byte(int64_t c) {
	if (bf_out_len == BF_OUT_CAP) {
		bf_flush();
	}
	bf_out_buf[bf_out_len++] = (unsigned char)c;
}

typedef BF_ABI void (*bf_routine)(uint8_t *cells);

static int bf_run(uintptr_t code, uintptr_t cells, uintptr_t in, uintptr_t out) {
	bf_in = in;
	bf_out = out;
	bf_out_len = 0;
	bf_out_err = 0;
	((bf_routine)code)((uint8_t *)cells);
	bf_flush();
	return bf_out_err;
}

static uintptr_t bf_read_addr(void) {
	return (uintptr_t)&bf_read_byte;
}

static uintptr_t bf_write_addr(void) {
	return (uintptr_t)&bf_write_byte;
}
*/
import "C"

import "errors"

// Supported reports whether the native backend is compiled in.
const Supported = true

var errShortWrite = errors.New("native output stream failed")

// trampolineAddrs returns the addresses translated code calls for input
// and output.
func trampolineAddrs() (readByte, writeByte uint64) {
	return uint64(C.bf_read_addr()), uint64(C.bf_write_addr())
}

// invoke calls the routine at code with the cell base address as its
// argument, with the trampolines bound to the given descriptors (handles
// on Windows).
func invoke(code, cells, in, out uintptr) error {
	if C.bf_run(C.uintptr_t(code), C.uintptr_t(cells), C.uintptr_t(in), C.uintptr_t(out)) != 0 {
		return errShortWrite
	}
	return nil
}
