// Package network 提供面向事件的服务端连接。
//
// 传输器接受连接后，通过 Handler 投递可读、已写和断开三种事件；
// 写入经由容量受限的发送队列异步完成。包括两种实现：
//  1. 标准库 standard 实现，支持 TLS。
//  2. 高性能非阻塞库 netpoll 实现，仅支持明文。
package network
