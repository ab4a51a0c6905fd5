package scoring

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/scan-io-git/iacsec/internal/registry"
	"github.com/scan-io-git/iacsec/pkg/shared/errors"
)

// EncoderPaths locates verified artifacts for the encoder backend.
type EncoderPaths struct {
	Weights        string
	Vocabulary     string
	RuntimeLibrary string
}

// EncoderLoader builds the full backend. It must return a *errors.BackendUnavailableError when
// the runtime itself cannot be used, and any other error for broken artifacts.
type EncoderLoader func(paths EncoderPaths, entry registry.Entry) (Backend, error)

var runtimeMu sync.Mutex

// InitRuntime loads the onnxruntime shared library once per process.
func InitRuntime(libPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	resolved := resolveSharedLibraryPath(libPath)
	if resolved == "" {
		return &errors.BackendUnavailableError{
			Backend: string(BackendEncoder),
			Err:     fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or scoring.onnxruntime_library"),
		}
	}
	ort.SetSharedLibraryPath(resolved)
	if err := ort.InitializeEnvironment(); err != nil {
		return &errors.BackendUnavailableError{Backend: string(BackendEncoder), Err: fmt.Errorf("initialize onnxruntime from %s: %w", resolved, err)}
	}
	return nil
}

func resolveSharedLibraryPath(configured string) string {
	if configured = strings.TrimSpace(configured); configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
		return ""
	}

	names := []string{
		"libonnxruntime.so",
		"libonnxruntime.dylib",
		"onnxruntime.dll",
	}
	dirs := []string{
		".",
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}
	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

// Encoder runs a sequence classification model exported to ONNX.
// Rows are evaluated one at a time over a fixed (1, max_length) shape, so a score never
// depends on which other findings share its batch.
type Encoder struct {
	session   *ort.AdvancedSession
	tokenizer *WordPieceTokenizer
	seqLen    int
	positive  int
	numLabels int

	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	output        *ort.Tensor[float32]

	mu sync.Mutex
}

// LoadEncoder is the default EncoderLoader.
func LoadEncoder(paths EncoderPaths, entry registry.Entry) (Backend, error) {
	if err := InitRuntime(paths.RuntimeLibrary); err != nil {
		return nil, err
	}

	tokenizer, err := LoadWordPieceTokenizer(paths.Vocabulary)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer for %s: %w", entry.Identity(), err)
	}

	seqLen := entry.MaxLength
	numLabels := len(entry.Labels)

	inputShape := ort.NewShape(1, int64(seqLen))
	inputIDs, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate input_ids tensor: %w", err)
	}
	attnMask, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		inputIDs.Destroy()
		return nil, fmt.Errorf("allocate attention_mask tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(numLabels)))
	if err != nil {
		inputIDs.Destroy()
		attnMask.Destroy()
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		paths.Weights,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		[]ort.Value{inputIDs, attnMask},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		inputIDs.Destroy()
		attnMask.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create onnx session for %s: %w", entry.Identity(), err)
	}

	return &Encoder{
		session:       session,
		tokenizer:     tokenizer,
		seqLen:        seqLen,
		positive:      entry.PositiveIndex(),
		numLabels:     numLabels,
		inputIDs:      inputIDs,
		attentionMask: attnMask,
		output:        output,
	}, nil
}

func (e *Encoder) Kind() BackendKind { return BackendEncoder }

func (e *Encoder) Score(ctx context.Context, batch []Input) ([]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	scores := make([]float64, len(batch))
	for i, in := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		first := in.Finding.Message() + " " + in.Finding.Snippet()
		ids, attn := e.tokenizer.EncodePair(first, in.Context, e.seqLen)
		copy(e.inputIDs.GetData(), ids)
		copy(e.attentionMask.GetData(), attn)

		if err := e.session.Run(); err != nil {
			return nil, fmt.Errorf("onnx run for %s: %w", in.Finding.Location(), err)
		}
		scores[i] = positiveProbability(e.output.GetData(), e.positive, e.numLabels)
	}
	return scores, nil
}

func (e *Encoder) Close() error {
	var firstErr error
	for _, destroy := range []func() error{e.session.Destroy, e.inputIDs.Destroy, e.attentionMask.Destroy, e.output.Destroy} {
		if err := destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// positiveProbability maps logits to P(TP): a sigmoid for single-logit heads and a softmax otherwise.
func positiveProbability(logits []float32, positive, numLabels int) float64 {
	if numLabels <= 1 || len(logits) == 1 {
		return 1.0 / (1.0 + math.Exp(-float64(logits[0])))
	}

	maxLogit := math.Inf(-1)
	for i := 0; i < numLabels && i < len(logits); i++ {
		maxLogit = math.Max(maxLogit, float64(logits[i]))
	}
	var sum, pos float64
	for i := 0; i < numLabels && i < len(logits); i++ {
		v := math.Exp(float64(logits[i]) - maxLogit)
		sum += v
		if i == positive {
			pos = v
		}
	}
	return pos / sum
}
