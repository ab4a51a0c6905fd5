package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/iacsec/pkg/shared/errors"
)

var digest = strings.Repeat("ab", 32)

const sample = `
models:
  - name: codet5p-220m
    version: "1.0.0"
    uri: https://models.example.com/codet5p/model.onnx
    sha256: ` + "ABABABABABABABABABABABABABABABABABABABABABABABABABABABABABABABAB" + `
    framework: onnx
    default_threshold: 0.61
    labels: [TP, FP]
    tokenizer:
      uri: https://models.example.com/codet5p/vocab.txt
      sha256: ` + "abababababababababababababababababababababababababababababababab" + `
  - name: stub
    version: "0"
    framework: stub
    default_threshold: 0.5
`

func TestParse(t *testing.T) {
	reg, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, []string{"codet5p-220m", "stub"}, reg.Names())

	entry, err := reg.Lookup("codet5p-220m")
	require.NoError(t, err)
	assert.Equal(t, "codet5p-220m@1.0.0", entry.Identity())
	assert.Equal(t, digest, entry.SHA256, "digest is normalized to lower case")
	assert.Equal(t, 0.61, entry.DefaultThreshold)
	assert.Equal(t, DefaultMaxLength, entry.MaxLength)
	assert.Equal(t, 0, entry.PositiveIndex())
	assert.Equal(t, "model.onnx", entry.WeightsFileName())
	assert.Equal(t, "codet5p-220m-1.0.0-vocab.txt", entry.TokenizerFileName())

	stub, err := reg.Lookup("stub")
	require.NoError(t, err)
	assert.Equal(t, FrameworkStub, stub.Framework)
	assert.Equal(t, DefaultLabels, stub.Labels)
	assert.Equal(t, 1, stub.PositiveIndex())
	assert.Equal(t, "stub-0.bin", stub.WeightsFileName())
}

func TestLookupUnknownIsConfigurationError(t *testing.T) {
	reg, err := Parse([]byte(sample))
	require.NoError(t, err)

	_, err = reg.Lookup("gpt")
	require.Error(t, err)
	assert.Equal(t, errors.KindConfiguration, errors.KindOf(err))
	assert.Contains(t, err.Error(), "codet5p-220m")
}

func TestLookupReturnsCopies(t *testing.T) {
	reg, err := Parse([]byte(sample))
	require.NoError(t, err)

	entry, err := reg.Lookup("codet5p-220m")
	require.NoError(t, err)
	entry.Labels[0] = "FP"
	entry.DefaultThreshold = 0

	again, err := reg.Lookup("codet5p-220m")
	require.NoError(t, err)
	assert.Equal(t, "TP", again.Labels[0])
	assert.Equal(t, 0.61, again.DefaultThreshold)
}

func TestValidationFailsClosed(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
	}{
		{name: "missing name", entry: Entry{Version: "1", Framework: FrameworkStub}},
		{name: "missing version", entry: Entry{Name: "m", Framework: FrameworkStub}},
		{name: "threshold above one", entry: Entry{Name: "m", Version: "1", Framework: FrameworkStub, DefaultThreshold: 1.2}},
		{name: "unknown framework", entry: Entry{Name: "m", Version: "1", Framework: "torch"}},
		{name: "onnx without digest", entry: Entry{Name: "m", Version: "1", URI: "file:///m.onnx", Tokenizer: Artifact{URI: "file:///v.txt", SHA256: digest}}},
		{name: "onnx short digest", entry: Entry{Name: "m", Version: "1", URI: "file:///m.onnx", SHA256: "abc", Tokenizer: Artifact{URI: "file:///v.txt", SHA256: digest}}},
		{name: "onnx without tokenizer", entry: Entry{Name: "m", Version: "1", URI: "file:///m.onnx", SHA256: digest}},
		{name: "onnx without uri", entry: Entry{Name: "m", Version: "1", SHA256: digest, Tokenizer: Artifact{URI: "file:///v.txt", SHA256: digest}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New([]Entry{tt.entry})
			assert.Error(t, err)
		})
	}
}

func TestDuplicateNames(t *testing.T) {
	_, err := New([]Entry{
		{Name: "m", Version: "1", Framework: FrameworkStub},
		{Name: "m", Version: "2", Framework: FrameworkStub},
	})
	assert.ErrorContains(t, err, "duplicate")
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("models:\n  - name: m\n    version: '1'\n    framework: stub\n    checksum: abc\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	reg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, reg.Names(), 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, errors.KindConfiguration, errors.KindOf(err))
}
