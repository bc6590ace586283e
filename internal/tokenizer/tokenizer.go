// Package tokenizer provides token counting consistent with the embedding
// and billing layer. The counter is injected into the chunker rather than
// reached through global state so the pipeline stays testable and safe to
// run in parallel.
package tokenizer

import (
	"fmt"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is used when no model-specific encoding is configured.
const DefaultEncoding = "cl100k_base"

// Counter reports the number of tokens in a text. Implementations must be
// safe for concurrent use.
type Counter interface {
	Count(text string) int
}

// Tiktoken counts tokens with a tiktoken BPE encoding, matching what the
// embedding API later reports so usage accounting does not drift.
type Tiktoken struct {
	encodingName string
	tke          *tiktoken.Tiktoken
}

// NewTiktoken creates a counter for the given model or encoding name,
// falling back to DefaultEncoding when the name is unknown.
func NewTiktoken(modelOrEncoding string) (*Tiktoken, error) {
	if modelOrEncoding == "" {
		modelOrEncoding = DefaultEncoding
	}

	tke, err := tiktoken.GetEncoding(modelOrEncoding)
	if err != nil {
		tke, err = tiktoken.EncodingForModel(modelOrEncoding)
	}
	if err != nil {
		tke, err = tiktoken.GetEncoding(DefaultEncoding)
		if err != nil {
			return nil, fmt.Errorf("load default encoding %q: %w", DefaultEncoding, err)
		}
		modelOrEncoding = DefaultEncoding
	}

	return &Tiktoken{encodingName: modelOrEncoding, tke: tke}, nil
}

func (t *Tiktoken) Count(text string) int {
	return len(t.tke.Encode(text, nil, nil))
}

// Encoding returns the name of the encoding in use.
func (t *Tiktoken) Encoding() string { return t.encodingName }

// Heuristic counts whitespace-separated words. Approximate but fast,
// dependency-free and exactly additive across whitespace joins, which makes
// it the counter of choice in tests.
type Heuristic struct{}

func (Heuristic) Count(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				count++
				inWord = false
			}
		} else {
			inWord = true
		}
	}
	if inWord {
		count++
	}
	return count
}
