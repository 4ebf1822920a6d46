// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package outcome

import (
	"regexp"
	"strings"

	"github.com/pdiddy/evidence-extractor/internal/textnorm"
)

// markers are lowercase substrings that flag a result-bearing sentence.
var markers = []string{
	"significant", "associated", "increase", "decrease", "improv", "reduc",
	"odds ratio", "hazard ratio", "risk ratio", "confidence interval",
	"p=", "p<", "p <", "p>", "versus", "vs", "compared",
}

var (
	effectRe = regexp.MustCompile(`(?i)(?:\b(?:OR|RR|HR|SMD|MD|IRR|beta|Cohen'?s?\s*d|d)|β)\s*[=:]\s*[-+]?\d+(?:\.\d+)?(?:\s*\([^)]*\))?`)
	pValueRe = regexp.MustCompile(`(?i)\bp\s*(?:=|<|>|<=|>=)\s*0?\.\d+`)
	ciRe     = regexp.MustCompile(`(?i)\b(?:95%\s*CI|CI\s*95%|confidence\s*interval)\b[^.;]*`)

	armPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b([^.;,]{2,80}?)\s+(?:vs\.?|versus|compared\s+with|compared\s+to|against)\s+([^.;,]{2,80})`),
		regexp.MustCompile(`(?i)\brandomi[sz]ed\s+to\s+([^.;,]{2,80}?)\s+(?:or|versus|vs\.?|compared\s+with)\s+([^.;,]{2,80})`),
	}

	// armTailRe cuts a comparator at the start of the clause that follows
	// it ("placebo improved sleep" -> "placebo").
	armTailRe = regexp.MustCompile(`(?i)\s+(?:(?:improved|increased|decreased|reduced|was|were|is|are|showed|resulted|led|had|did|yielded|produced|significantly|in|on|with|for|among|at|after|during|over|from)\b|p\s*[=<>]).*$`)

	leadingTheRe = regexp.MustCompile(`(?i)^the\s+`)

	labelAfterVerbRe  = regexp.MustCompile(`(?i)(?:improv(?:ed|ement)?\s+in|increase(?:d)?\s+in|decrease(?:d)?\s+in|reduction\s+in|associated\s+with|effect\s+on)\s+([a-z0-9\s\-]{3,80})`)
	labelBeforeVerbRe = regexp.MustCompile(`(?i)([a-z0-9\s\-]{3,80})\s+(?:improved|increased|decreased|reduced|was\s+associated)`)

	// labelTailRe drops a trailing qualifier from a label captured after
	// its verb ("sleep quality among adults" -> "sleep quality").
	labelTailRe = regexp.MustCompile(`(?i)\s+(?:with|among|in|at|for|after|during|by|compared|versus|vs|than|when|while|p)\b.*$`)

	articleRe    = regexp.MustCompile(`(?i)\b(?:the|a|an)\b`)
	nonTokenRe   = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

const (
	// MaxLabelLen bounds an outcome label in runes.
	MaxLabelLen = 120

	// FallbackLabel is used when a sentence yields no usable tokens.
	FallbackLabel = "reported outcome"

	labelTokens = 8
)

// HasMarker reports whether sentence contains a result marker.
func HasMarker(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Arms returns the intervention and comparator named in sentence. Both are
// empty unless a pattern yields two non-empty arms.
func Arms(sentence string) (intervention, comparator string) {
	for _, re := range armPatterns {
		m := re.FindStringSubmatch(sentence)
		if m == nil {
			continue
		}
		intervention = cleanArm(m[1])
		comparator = cleanArm(armTailRe.ReplaceAllString(m[2], ""))
		if intervention != "" && comparator != "" {
			return intervention, comparator
		}
	}
	return "", ""
}

func cleanArm(s string) string {
	return leadingTheRe.ReplaceAllString(textnorm.Normalize(s), "")
}

// EffectSize returns the first named statistic with a value, or "".
func EffectSize(sentence string) string {
	return textnorm.Normalize(effectRe.FindString(sentence))
}

// PValue returns the first p-value phrase, or a confidence-interval phrase
// when the sentence reports no p-value.
func PValue(sentence string) string {
	if p := pValueRe.FindString(sentence); p != "" {
		return textnorm.Normalize(p)
	}
	return textnorm.Normalize(ciRe.FindString(sentence))
}

// Label infers what was measured. It tries a phrase after a change verb,
// then a phrase before one, then the first content tokens of the sentence.
func Label(sentence string) string {
	if m := labelAfterVerbRe.FindStringSubmatch(sentence); m != nil {
		if label := cleanLabel(labelTailRe.ReplaceAllString(m[1], "")); label != "" {
			return label
		}
	}
	if m := labelBeforeVerbRe.FindStringSubmatch(sentence); m != nil {
		if label := cleanLabel(m[1]); label != "" {
			return label
		}
	}

	var tokens []string
	for _, tok := range strings.Fields(nonTokenRe.ReplaceAllString(strings.ToLower(sentence), " ")) {
		if len(tok) > 2 {
			tokens = append(tokens, tok)
		}
		if len(tokens) == labelTokens {
			break
		}
	}
	if len(tokens) == 0 {
		return FallbackLabel
	}
	return strings.Join(tokens, " ")
}

// cleanLabel strips articles and returns "" for labels under three runes.
func cleanLabel(s string) string {
	s = articleRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
	if textnorm.Len(s) < 3 {
		return ""
	}
	return textnorm.Clamp(s, MaxLabelLen)
}
