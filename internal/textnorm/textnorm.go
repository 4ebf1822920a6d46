// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textnorm canonicalizes extracted text and segments it into
// sentences. Every downstream miner works on Normalize output.
package textnorm

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// hyphenBreakRe matches a word wrapped across lines with a trailing
	// hyphen ("evi-\ndence"). The hyphen and the line break are dropped.
	hyphenBreakRe = regexp.MustCompile(`-\s*\n\s*`)

	whitespaceRe = regexp.MustCompile(`\s+`)

	// sentenceEndRe matches sentence-ending punctuation followed by
	// whitespace. The split happens after the punctuation.
	sentenceEndRe = regexp.MustCompile(`[.!?]\s+`)
)

// Normalize converts platform line endings, joins hyphenated line wraps,
// collapses whitespace runs to single spaces, and trims the result.
func Normalize(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\t", " ")
	text = hyphenBreakRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// SplitSentences normalizes text and splits it at sentence-ending
// punctuation followed by whitespace. Empty fragments are discarded.
func SplitSentences(text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	var sentences []string
	start := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(normalized, -1) {
		if s := strings.TrimSpace(normalized[start : loc[0]+1]); s != "" {
			sentences = append(sentences, s)
		}
		start = loc[1]
	}
	if s := strings.TrimSpace(normalized[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// Clamp returns at most max runes of s. It never splits a multi-byte rune.
func Clamp(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// Excerpt normalizes text and shortens it to at most max runes, marking a
// cut with a trailing ellipsis.
func Excerpt(text string, max int) string {
	normalized := Normalize(text)
	if utf8.RuneCountInString(normalized) <= max {
		return normalized
	}
	if max <= 3 {
		return Clamp(normalized, max)
	}
	return Clamp(normalized, max-3) + "..."
}

// Len returns the number of runes in s.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}
