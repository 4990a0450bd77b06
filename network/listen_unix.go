//go:build !windows

package network

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// ListenControl 在监听套接字上启用 SO_REUSEADDR，便于重启后立即复用端口。
func ListenControl(network, address string, c syscall.RawConn) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return opErr
}
