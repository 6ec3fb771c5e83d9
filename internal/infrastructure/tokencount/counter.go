package tokencount

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// HeuristicCounter approximates four characters per token. Cheap,
// dependency-free, and close enough for budget enforcement when no
// tokenizer data is available.
type HeuristicCounter struct{}

func (HeuristicCounter) Count(text string) int { return len(text) / 4 }

// TiktokenCounter counts tokens with a real BPE encoding; cl100k_base
// matches the context windows the pruned results are destined for.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}
