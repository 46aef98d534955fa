// Package sendfile wraps the zero-copy file-to-socket transfer the fetch
// path uses to stream record bytes without staging them through a user
// buffer. The teacher never needed this (its raft log never left the
// process as raw bytes), so this is new infrastructure grounded only in
// the general Go idiom of a thin, testable wrapper around a raw syscall,
// with a portable fallback for platforms where the syscall isn't wired.
package sendfile

import (
	"errors"
	"io"
	"os"
	"syscall"
)

var errFallback = errors.New("sendfile: platform transfer unavailable")

// Transfer sends exactly length bytes from src, starting at offset, to
// dst. A length <= 0 is a no-op that returns (0, nil) without issuing any
// syscall, since a zero length has special meaning to the underlying
// sendfile(2) syscall.
func Transfer(dst io.Writer, src *os.File, offset, length int64) (int64, error) {
	if length <= 0 {
		return 0, nil
	}
	if conn, ok := dst.(syscall.Conn); ok {
		n, err := transferPlatform(conn, src, offset, length)
		if err != errFallback {
			return n, err
		}
	}
	return transferFallback(dst, src, offset, length)
}

func transferFallback(dst io.Writer, src *os.File, offset, length int64) (int64, error) {
	return io.Copy(dst, io.NewSectionReader(src, offset, length))
}
