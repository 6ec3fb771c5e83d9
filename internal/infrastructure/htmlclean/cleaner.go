package htmlclean

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noisePatterns flag short boilerplate lines (cookie banners, footers,
// social prompts) that add no retrieval value.
var noisePatterns = []string{
	"cookie",
	"privacy policy",
	"terms of service",
	"subscribe",
	"newsletter",
	"advertisement",
	"sponsored",
	"click here",
	"read more",
	"share on",
	"follow us",
	"copyright ©",
	"all rights reserved",
}

// noiseLineMaxLength: longer lines that merely mention a noise pattern
// are kept, since real prose can reference cookies or copyright.
const noiseLineMaxLength = 200

// Cleaner strips markup and boilerplate from extracted page content.
type Cleaner struct{}

func New() *Cleaner {
	return &Cleaner{}
}

func (c *Cleaner) Clean(raw string) string {
	if raw == "" {
		return ""
	}

	text := raw
	if strings.Contains(raw, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
			doc.Find("script, style, noscript, iframe, svg").Remove()
			text = doc.Text()
		}
	}

	text = removeNoise(text)
	return normalizeWhitespace(text)
}

func removeNoise(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		lower := strings.ToLower(trimmed)
		noise := false
		for _, pattern := range noisePatterns {
			if strings.Contains(lower, pattern) && len(trimmed) < noiseLineMaxLength {
				noise = true
				break
			}
		}
		if !noise {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func normalizeWhitespace(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	prevSpace := false
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		b.WriteRune(r)
		prevSpace = false
	}
	return strings.TrimSpace(b.String())
}
