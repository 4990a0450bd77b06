package network

import "syscall"

// UnlinkUdsFile 删除 unix 套接字文件。
func UnlinkUdsFile(network, addr string) error {
	if network == "unix" {
		return syscall.Unlink(addr)
	}
	return nil
}
