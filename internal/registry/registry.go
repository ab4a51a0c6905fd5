package registry

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	yaml "gopkg.in/yaml.v2"

	"github.com/scan-io-git/iacsec/pkg/shared/errors"
)

const (
	FrameworkONNX = "onnx"
	FrameworkStub = "stub"

	DefaultMaxLength = 256
)

var sha256Pattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// DefaultLabels is the output order assumed when an entry does not declare one.
var DefaultLabels = []string{"FP", "TP"}

// Artifact is a downloadable file pinned by its sha256 digest.
type Artifact struct {
	URI    string `yaml:"uri"`
	SHA256 string `yaml:"sha256"`
}

// Entry describes one scoring model.
type Entry struct {
	Name             string   `yaml:"name"`
	Version          string   `yaml:"version"`
	URI              string   `yaml:"uri"`
	SHA256           string   `yaml:"sha256"`
	Framework        string   `yaml:"framework"`
	DefaultThreshold float64  `yaml:"default_threshold"`
	Labels           []string `yaml:"labels"`

	// Tokenizer is a WordPiece vocab.txt matching the exported encoder's training vocabulary.
	Tokenizer Artifact `yaml:"tokenizer"`
	MaxLength int      `yaml:"max_length"`
}

// Identity is the "name@version" string recorded as provenance.
func (e Entry) Identity() string {
	return fmt.Sprintf("%s@%s", e.Name, e.Version)
}

// Weights returns the model weights artifact.
func (e Entry) Weights() Artifact {
	return Artifact{URI: e.URI, SHA256: e.SHA256}
}

// WeightsFileName is the cache file name for the weights: the URI basename or name-version.bin.
func (e Entry) WeightsFileName() string {
	if base := uriBase(e.URI); base != "" {
		return base
	}
	return fmt.Sprintf("%s-%s.bin", e.Name, e.Version)
}

// TokenizerFileName is the cache file name for the vocabulary.
func (e Entry) TokenizerFileName() string {
	if base := uriBase(e.Tokenizer.URI); base != "" {
		return fmt.Sprintf("%s-%s-%s", e.Name, e.Version, base)
	}
	return fmt.Sprintf("%s-%s-vocab.txt", e.Name, e.Version)
}

// PositiveIndex returns the output index holding the true-positive logit.
func (e Entry) PositiveIndex() int {
	for i, label := range e.Labels {
		if strings.EqualFold(label, "TP") {
			return i
		}
	}
	return len(e.Labels) - 1
}

func uriBase(uri string) string {
	if uri == "" {
		return ""
	}
	trimmed := uri
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	base := path.Base(strings.TrimRight(trimmed, "/"))
	if base == "." || base == "/" || strings.Contains(base, ":") {
		return ""
	}
	return base
}

func (e *Entry) validate() error {
	if e.Name == "" {
		return fmt.Errorf("model name is required")
	}
	if e.Version == "" {
		return fmt.Errorf("model %q: version is required", e.Name)
	}
	if e.DefaultThreshold < 0 || e.DefaultThreshold > 1 {
		return fmt.Errorf("model %q: default_threshold %v outside [0, 1]", e.Name, e.DefaultThreshold)
	}
	if e.Framework == "" {
		e.Framework = FrameworkONNX
	}
	if len(e.Labels) == 0 {
		e.Labels = append([]string(nil), DefaultLabels...)
	}
	if e.MaxLength == 0 {
		e.MaxLength = DefaultMaxLength
	}
	if e.MaxLength < 8 {
		return fmt.Errorf("model %q: max_length %d too small", e.Name, e.MaxLength)
	}

	switch e.Framework {
	case FrameworkStub:
		return nil
	case FrameworkONNX:
	default:
		return fmt.Errorf("model %q: unsupported framework %q", e.Name, e.Framework)
	}

	// full backends are never loaded without pinned digests
	e.SHA256 = strings.ToLower(e.SHA256)
	e.Tokenizer.SHA256 = strings.ToLower(e.Tokenizer.SHA256)
	if e.URI == "" {
		return fmt.Errorf("model %q: uri is required", e.Name)
	}
	if !sha256Pattern.MatchString(e.SHA256) {
		return fmt.Errorf("model %q: sha256 must be 64 hex characters", e.Name)
	}
	if e.Tokenizer.URI == "" {
		return fmt.Errorf("model %q: tokenizer.uri is required", e.Name)
	}
	if !sha256Pattern.MatchString(e.Tokenizer.SHA256) {
		return fmt.Errorf("model %q: tokenizer.sha256 must be 64 hex characters", e.Name)
	}
	return nil
}

// Registry is an immutable, ordered lookup table of models.
type Registry struct {
	entries []Entry
	byName  map[string]int
}

type document struct {
	Models []Entry `yaml:"models"`
}

// Parse builds a Registry from YAML.
func Parse(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse model registry: %w", err)
	}
	return New(doc.Models)
}

// Load reads and parses the registry file at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.ConfigurationError{Field: "model registry", Err: err}
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, &errors.ConfigurationError{Field: "model registry " + path, Err: err}
	}
	return reg, nil
}

// New validates entries and returns a Registry that owns a private copy of them.
func New(entries []Entry) (*Registry, error) {
	reg := &Registry{byName: make(map[string]int, len(entries))}
	for i := range entries {
		entry := entries[i]
		entry.Labels = append([]string(nil), entry.Labels...)
		if err := entry.validate(); err != nil {
			return nil, fmt.Errorf("registry entry #%d: %w", i, err)
		}
		if _, dup := reg.byName[entry.Name]; dup {
			return nil, fmt.Errorf("registry entry #%d: duplicate model name %q", i, entry.Name)
		}
		reg.byName[entry.Name] = len(reg.entries)
		reg.entries = append(reg.entries, entry)
	}
	return reg, nil
}

// Lookup returns a copy of the named entry.
func (r *Registry) Lookup(name string) (Entry, error) {
	i, ok := r.byName[name]
	if !ok {
		return Entry{}, errors.NewConfigurationError("model", "model %q is not in the registry (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	entry := r.entries[i]
	entry.Labels = append([]string(nil), entry.Labels...)
	return entry, nil
}

// Names lists model names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.Name)
	}
	return names
}
