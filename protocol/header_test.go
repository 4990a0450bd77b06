package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderCaseInsensitiveLookup(t *testing.T) {
	t.Parallel()
	var h Header
	h.Add("Content-Type", "text/html")
	assert.Equal(t, "text/html", h.Get("content-type"))
	assert.Equal(t, "text/html", h.Get("CONTENT-TYPE"))
	assert.True(t, h.Has("Content-type"))
	assert.False(t, h.Has("Content-Length"))
	assert.Equal(t, "", h.Get("Content-Length"))
}

func TestHeaderMultiValue(t *testing.T) {
	t.Parallel()
	var h Header
	h.Add("Accept", "text/html")
	h.Add("X-Foo", "1")
	h.Add("accept", "application/json")
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, "text/html", h.Get("Accept"))
	assert.Equal(t, []string{"text/html", "application/json"}, h.Values("ACCEPT"))

	h.Set("Accept", "*/*")
	assert.Equal(t, []string{"*/*"}, h.Values("Accept"))
	assert.Equal(t, 2, h.Len())

	h.Del("x-foo")
	assert.Equal(t, 1, h.Len())
	h.Reset()
	assert.Equal(t, 0, h.Len())
}

func TestHeaderFold(t *testing.T) {
	t.Parallel()
	var h Header
	assert.False(t, h.fold("orphan"))
	h.Add("X-Long", "first")
	assert.True(t, h.fold("second"))
	assert.Equal(t, "first second", h.Get("x-long"))
}

func TestHeaderAppendSorted(t *testing.T) {
	t.Parallel()
	var h Header
	h.Set("Content-Type", "text/plain")
	h.Set("Cache-Control", "no-cache")
	h.Add("X-A", "2")
	h.Add("Connection", "close")
	h.Add("X-A", "1")
	assert.Equal(t,
		"Cache-Control: no-cache\r\nConnection: close\r\nContent-Type: text/plain\r\nX-A: 2\r\nX-A: 1\r\n",
		string(h.AppendSorted(nil)))
}

func TestHeaderVisitAll(t *testing.T) {
	t.Parallel()
	var h Header
	h.Add("B", "2")
	h.Add("A", "1")
	var got []string
	h.VisitAll(func(k, v []byte) {
		got = append(got, string(k)+"="+string(v))
	})
	assert.Equal(t, []string{"B=2", "A=1"}, got)
}
