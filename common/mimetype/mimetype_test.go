package mimetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryDefaults(t *testing.T) {
	t.Parallel()
	r := NewRegistry(nil)
	assert.Equal(t, 12, r.Len())

	ct, ok := r.Lookup("PNG")
	assert.True(t, ok)
	assert.Equal(t, "image/png", ct)

	ct, ok = r.ByPath("/static/app.min.js")
	assert.True(t, ok)
	assert.Equal(t, "application/javascript", ct)

	_, ok = r.ByPath("/README")
	assert.False(t, ok)
	_, ok = r.ByPath("/archive.tar.gz")
	assert.False(t, ok)
}

func TestRegistryExtra(t *testing.T) {
	t.Parallel()
	r := NewRegistry(map[string]string{".SVG": "image/svg+xml", "txt": "text/plain; charset=utf-8"})
	ct, _ := r.Lookup("svg")
	assert.Equal(t, "image/svg+xml", ct)
	ct, _ = r.ByPath("a.txt")
	assert.Equal(t, "text/plain; charset=utf-8", ct)
}
