package utils

import (
	"net"
	"sync"
)

// UnknownIPAddr 是无法确定本机地址时的占位值。
const UnknownIPAddr = "-"

// LocalIP 返回第一个已启用的非回环网卡地址，首次调用时探测并缓存。
var LocalIP = sync.OnceValue(func() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return UnknownIPAddr
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok && !ipNet.IP.IsLoopback() {
				return ipNet.IP.String()
			}
		}
	}
	return UnknownIPAddr
})

// TLSRecordHeaderLooksLikeHTTP 判断 TLS 端口收到的前 5 个字节是否像明文 HTTP 请求。
func TLSRecordHeaderLooksLikeHTTP(hdr [5]byte) bool {
	switch string(hdr[:]) {
	case "GET /", "HEAD ", "POST ", "PUT /", "OPTIO", "DELET", "PATCH", "CONNE":
		return true
	}
	return false
}
