//go:build linux

package sendfile

import (
	"os"
	"syscall"
)

// transferPlatform drives syscall.Sendfile through the connection's raw fd,
// looping past EAGAIN under the runtime poller rather than busy-spinning.
func transferPlatform(conn syscall.Conn, src *os.File, offset, length int64) (int64, error) {
	rawConn, err := conn.SyscallConn()
	if err != nil {
		return 0, errFallback
	}

	srcFd := int(src.Fd())
	off := offset
	remaining := length
	var written int64
	var opErr error

	ctrlErr := rawConn.Write(func(fd uintptr) bool {
		for remaining > 0 {
			n, err := syscall.Sendfile(int(fd), srcFd, &off, int(remaining))
			if n > 0 {
				written += int64(n)
				remaining -= int64(n)
			}
			switch err {
			case nil:
				if n == 0 {
					return true
				}
				continue
			case syscall.EAGAIN:
				return false
			default:
				opErr = err
				return true
			}
		}
		return true
	})
	if ctrlErr != nil {
		return written, ctrlErr
	}
	return written, opErr
}
