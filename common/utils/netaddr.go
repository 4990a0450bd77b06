package utils

import "net"

// NetAddr 是只保存网络类型与地址文本的 net.Addr，用于没有真实套接字的场景。
type NetAddr struct {
	network string
	address string
}

var _ net.Addr = NetAddr{}

// NewNetAddr 返回给定网络和地址的 net.Addr。
func NewNetAddr(network, address string) net.Addr {
	return NetAddr{network: network, address: address}
}

func (na NetAddr) Network() string { return na.network }
func (na NetAddr) String() string  { return na.address }
