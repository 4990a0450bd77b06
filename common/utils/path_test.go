package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanPath(t *testing.T) {
	t.Parallel()
	cases := []struct{ in, want string }{
		{"", "/"},
		{"/", "/"},
		{"docs/a.css", "/docs/a.css"},
		{"/Foo/Bar/go/src/breeze/path_test.go", "/Foo/Bar/go/src/breeze/path_test.go"},
		{"/Foo/Bar/./././go/src", "/Foo/Bar/go/src"},
		{"../../..", "/"},
		{"/../....", "/...."}, // 多点可作文件名
		{"/Foo/Bar/../go/src/../../breeze", "/Foo/breeze"},
		{"///////Foo//Bar////go//src/breeze//..", "/Foo/Bar/go/src"},
		{"/docs/", "/docs/"},
		{"/docs/.", "/docs/"},
		{"/docs/..", "/"},
		{"//docs/./a.css", "/docs/a.css"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CleanPath(c.in), c.in)
	}
}
