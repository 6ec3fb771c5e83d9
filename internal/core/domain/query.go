package domain

import (
	"strings"
	"unicode/utf8"
)

// MaxQueryLength bounds the raw query text in runes.
const MaxQueryLength = 1000

type SearchFilter struct {
	Category  string
	Language  string
	TimeRange string
}

// Query is the immutable input of one retrieval session.
type Query struct {
	Text   string
	Limit  int
	Filter SearchFilter
}

func NewQuery(text string, limit int) Query {
	return Query{Text: text, Limit: limit}
}

// Validate rejects empty and oversized queries before any backend call.
func (q Query) Validate() error {
	trimmed := strings.TrimSpace(q.Text)
	if trimmed == "" {
		return WrapError(ErrInvalidQuery, "validate query", errEmptyQuery)
	}
	if utf8.RuneCountInString(q.Text) > MaxQueryLength {
		return WrapError(ErrInvalidQuery, "validate query", errQueryTooLong)
	}
	return nil
}
