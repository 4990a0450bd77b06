//go:build windows

package network

import "syscall"

// ListenControl 在 windows 上不做处理。
func ListenControl(network, address string, c syscall.RawConn) error {
	return nil
}
