package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTLSRecordHeaderLooksLikeHTTP(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"GET /", "HEAD ", "POST ", "PUT /", "OPTIO", "DELET", "PATCH"} {
		assert.True(t, TLSRecordHeaderLooksLikeHTTP([5]byte([]byte(s))), s)
	}
	// TLS 握手记录以 0x16 0x03 开头
	for _, s := range []string{"GET/ ", " HEAD", "PUT/ ", "BREEZ", "\x16\x03\x01\x02\x00"} {
		assert.False(t, TLSRecordHeaderLooksLikeHTTP([5]byte([]byte(s))), s)
	}
}

func TestLocalIP(t *testing.T) {
	t.Parallel()
	ip := LocalIP()
	assert.NotEmpty(t, ip)
	assert.Equal(t, ip, LocalIP())
}
