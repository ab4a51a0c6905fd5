package scoring

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// WordPieceTokenizer is a BERT-style uncased WordPiece tokenizer driven by a vocab.txt file.
type WordPieceTokenizer struct {
	vocab        map[string]int64
	clsID        int64
	sepID        int64
	padID        int64
	unkID        int64
	continuation string
	maxWordLen   int
}

// LoadWordPieceTokenizer reads one token per line; the line number is the token id.
func LoadWordPieceTokenizer(path string) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	sc := bufio.NewScanner(f)
	var idx int64
	for sc.Scan() {
		token := strings.TrimSpace(sc.Text())
		if token == "" {
			continue
		}
		vocab[token] = idx
		idx++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan vocab: %w", err)
	}
	return NewWordPieceTokenizer(vocab)
}

// NewWordPieceTokenizer builds a tokenizer from an in-memory vocabulary.
func NewWordPieceTokenizer(vocab map[string]int64) (*WordPieceTokenizer, error) {
	for _, special := range []string{"[CLS]", "[SEP]", "[PAD]", "[UNK]"} {
		if _, ok := vocab[special]; !ok {
			return nil, fmt.Errorf("vocab is missing special token %s", special)
		}
	}
	return &WordPieceTokenizer{
		vocab:        vocab,
		continuation: "##",
		clsID:        vocab["[CLS]"],
		sepID:        vocab["[SEP]"],
		padID:        vocab["[PAD]"],
		unkID:        vocab["[UNK]"],
		maxWordLen:   100,
	}, nil
}

// EncodePair lays out "[CLS] first [SEP] second [SEP]" padded to seqLen.
// When too long, the second segment is truncated before the first.
func (t *WordPieceTokenizer) EncodePair(first, second string, seqLen int) ([]int64, []int64) {
	if seqLen < 3 {
		return nil, nil
	}

	a := t.tokenize(first)
	b := t.tokenize(second)

	budget := seqLen - 3
	if len(b) == 0 {
		budget = seqLen - 2
	}
	for len(a)+len(b) > budget {
		if len(b) > 0 && len(b) >= len(a) {
			b = b[:len(b)-1]
		} else {
			a = a[:len(a)-1]
		}
	}

	ids := make([]int64, 0, seqLen)
	ids = append(ids, t.clsID)
	ids = append(ids, a...)
	ids = append(ids, t.sepID)
	if len(b) > 0 {
		ids = append(ids, b...)
		ids = append(ids, t.sepID)
	}

	attn := make([]int64, seqLen)
	for i := range ids {
		attn[i] = 1
	}
	for len(ids) < seqLen {
		ids = append(ids, t.padID)
	}
	return ids, attn
}

func (t *WordPieceTokenizer) tokenize(text string) []int64 {
	var out []int64
	for _, word := range splitWords(strings.ToLower(text)) {
		out = append(out, t.wordPiece(word)...)
	}
	return out
}

// splitWords splits on whitespace and isolates punctuation, as BERT's basic tokenizer does.
func splitWords(text string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			words = append(words, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

func (t *WordPieceTokenizer) wordPiece(token string) []int64 {
	if id, ok := t.vocab[token]; ok {
		return []int64{id}
	}
	if len(token) > t.maxWordLen {
		return []int64{t.unkID}
	}

	var pieces []int64
	start := 0
	for start < len(token) {
		end := len(token)
		matched := false
		for end > start {
			sub := token[start:end]
			if start > 0 {
				sub = t.continuation + sub
			}
			if id, ok := t.vocab[sub]; ok {
				pieces = append(pieces, id)
				start = end
				matched = true
				break
			}
			end--
		}
		if !matched {
			return []int64{t.unkID}
		}
	}
	return pieces
}
