//go:build !linux

package sendfile

import (
	"os"
	"syscall"
)

func transferPlatform(conn syscall.Conn, src *os.File, offset, length int64) (int64, error) {
	return 0, errFallback
}
