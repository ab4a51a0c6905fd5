package files

import (
	"path/filepath"
	"testing"
)

func TestRelativeToRoot(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name    string
		target  string
		want    string
		wantErr bool
	}{
		{name: "absolute inside root", target: filepath.Join(root, "roles", "web.yml"), want: "roles/web.yml"},
		{name: "relative resolved against root", target: "a/b.yml", want: "a/b.yml"},
		{name: "dot prefix dropped", target: "./site.pp", want: "site.pp"},
		{name: "inner dot-dot collapsed", target: "a/../b/c.rb", want: "b/c.rb"},
		{name: "backslash separators", target: `roles\web\tasks.yml`, want: "roles/web/tasks.yml"},
		{name: "escapes root", target: "../outside.yml", wantErr: true},
		{name: "escapes root with backslashes", target: `..\outside.yml`, wantErr: true},
		{name: "absolute outside root", target: filepath.Join(filepath.Dir(root), "other.yml"), wantErr: true},
		{name: "empty", target: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RelativeToRoot(root, tt.target)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestWithExtension(t *testing.T) {
	cases := map[string]string{
		"report.sarif":     "report.jsonl",
		"out/results":      "out/results.jsonl",
		"nested.v1/report": "nested.v1/report.jsonl",
	}
	for in, want := range cases {
		if got := WithExtension(in, "jsonl"); got != want {
			t.Errorf("WithExtension(%q) = %q, want %q", in, got, want)
		}
	}
}
