package sourcectx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "roles"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "roles", "web.yml"), []byte("l1\nl2\nl3\nl4\nl5\nl6\n"), 0o644))

	r := NewReader(root, 1)

	tests := []struct {
		name string
		line int
		want string
	}{
		{name: "middle", line: 3, want: "l2\nl3\nl4"},
		{name: "first line clamps", line: 1, want: "l1\nl2"},
		{name: "file level", line: 0, want: "l1\nl2\nl3"},
		{name: "past end", line: 40, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Window("roles/web.yml", tt.line))
		})
	}
}

func TestWindowMissingFile(t *testing.T) {
	r := NewReader(t.TempDir(), 3)
	assert.Equal(t, "", r.Window("nope.pp", 2))
}
