package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNetAddr(t *testing.T) {
	t.Parallel()
	addr := NewNetAddr("unix", "/tmp/breeze.sock")
	assert.Equal(t, "unix", addr.Network())
	assert.Equal(t, "/tmp/breeze.sock", addr.String())
	assert.Equal(t, NewNetAddr("unix", "/tmp/breeze.sock"), addr)
}
