package sourcectx

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Reader returns source lines surrounding a finding. Files are read once and kept in memory
// for the lifetime of the Reader.
type Reader struct {
	root   string
	radius int

	mu    sync.Mutex
	cache map[string][]string
}

// NewReader returns a Reader resolving repo-relative paths against root and returning radius
// lines on each side of the finding.
func NewReader(root string, radius int) *Reader {
	if radius < 0 {
		radius = 0
	}
	return &Reader{root: root, radius: radius, cache: make(map[string][]string)}
}

// Window returns lines [line-radius, line+radius] joined by newlines.
// File-level findings (line 0) get the head of the file. Missing files yield "".
func (r *Reader) Window(relPath string, line int) string {
	lines := r.lines(relPath)
	if len(lines) == 0 {
		return ""
	}

	start, end := line-r.radius, line+r.radius
	if line <= 0 {
		start, end = 1, 2*r.radius+1
	}
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

func (r *Reader) lines(relPath string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[relPath]; ok {
		return cached
	}

	var lines []string
	data, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(relPath)))
	if err == nil {
		lines = strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	}
	r.cache[relPath] = lines
	return lines
}
