// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package outcome mines result sentences from normalized paper text. Each
// candidate sentence yields an OutcomeRecord and a confidence score. The
// miner always returns at least one outcome.
package outcome

import (
	"math"
	"strings"

	"github.com/pdiddy/evidence-extractor/internal/textnorm"
	"github.com/pdiddy/evidence-extractor/pkg/types"
)

const (
	// MaxSnippetLen bounds a citation snippet in runes.
	MaxSnippetLen = 1000

	// MaxFallbackSnippetLen bounds the snippet of a synthesized outcome.
	MaxFallbackSnippetLen = 280

	// EmptyTextSnippet is the snippet of the outcome synthesized when the
	// text has no sentences at all.
	EmptyTextSnippet = "No extractable text."
)

// Candidate is a mined outcome with its confidence.
type Candidate struct {
	Outcome    types.OutcomeRecord
	Confidence float64
}

// Miner extracts outcomes. It holds only configuration and is safe for
// concurrent use.
type Miner struct {
	threshold float64
}

// NewMiner creates a Miner. A zero threshold falls back to the default.
func NewMiner(cfg types.MiningConfig) *Miner {
	threshold := cfg.ConfidenceThreshold
	if threshold <= 0 {
		threshold = types.DefaultConfidenceThreshold
	}
	return &Miner{threshold: threshold}
}

// Mine returns the outcomes of text and their confidences as parallel
// slices of equal, non-zero length.
func (m *Miner) Mine(text string) ([]types.OutcomeRecord, []float64) {
	selected := m.Select(text)
	outcomes := make([]types.OutcomeRecord, len(selected))
	confidence := make([]float64, len(selected))
	for i, c := range selected {
		outcomes[i] = c.Outcome
		confidence[i] = c.Confidence
	}
	return outcomes, confidence
}

// Select runs the selection cascade: candidates at or above the
// threshold, else the single best candidate, else one outcome synthesized
// from the first sentence.
func (m *Miner) Select(text string) []Candidate {
	sentences := textnorm.SplitSentences(text)
	candidates := Dedupe(Candidates(sentences))

	var kept []Candidate
	for _, c := range candidates {
		if c.Confidence >= m.threshold {
			kept = append(kept, c)
		}
	}
	if len(kept) > 0 {
		return kept
	}
	if len(candidates) > 0 {
		return []Candidate{best(candidates)}
	}
	return []Candidate{synthesize(sentences)}
}

// Candidates builds one candidate per sentence that carries a result
// marker, in sentence order.
func Candidates(sentences []string) []Candidate {
	var out []Candidate
	for _, sentence := range sentences {
		if !HasMarker(sentence) {
			continue
		}
		snippet := textnorm.Clamp(sentence, MaxSnippetLen)
		intervention, comparator := Arms(snippet)
		rec := types.OutcomeRecord{
			OutcomeMeasured: Label(snippet),
			KeyResult:       snippet,
			CitationSnippet: snippet,
			Intervention:    intervention,
			Comparator:      comparator,
			EffectSize:      EffectSize(snippet),
			PValue:          PValue(snippet),
		}
		out = append(out, Candidate{Outcome: rec, Confidence: Score(rec)})
	}
	return out
}

// Score rates how much citable structure an outcome carries, in [0, 1]
// rounded to two decimals.
func Score(rec types.OutcomeRecord) float64 {
	score := 0.2
	if rec.KeyResult != "" {
		score += 0.2
	}
	if rec.EffectSize != "" {
		score += 0.25
	}
	if rec.PValue != "" {
		score += 0.2
	}
	if rec.Intervention != "" {
		score += 0.15
	}
	if rec.Comparator != "" {
		score += 0.15
	}
	if textnorm.Len(rec.CitationSnippet) >= 20 {
		score += 0.1
	}
	score = math.Max(0, math.Min(1, score))
	return math.Round(score*100) / 100
}

// Dedupe drops candidates whose label, effect size, p-value, and snippet
// repeat an earlier candidate. Order is preserved.
func Dedupe(candidates []Candidate) []Candidate {
	seen := make(map[string]bool, len(candidates))
	var out []Candidate
	for _, c := range candidates {
		k := dedupeKey(c.Outcome)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}

func dedupeKey(rec types.OutcomeRecord) string {
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(rec.OutcomeMeasured)),
		strings.ToLower(strings.TrimSpace(rec.EffectSize)),
		strings.ToLower(strings.TrimSpace(rec.PValue)),
		strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.ToLower(rec.CitationSnippet), " ")),
	}, "|")
}

// best returns the first candidate with the highest confidence.
func best(candidates []Candidate) Candidate {
	top := candidates[0]
	for _, c := range candidates[1:] {
		if c.Confidence > top.Confidence {
			top = c
		}
	}
	return top
}

func synthesize(sentences []string) Candidate {
	snippet := EmptyTextSnippet
	label := FallbackLabel
	if len(sentences) > 0 {
		snippet = textnorm.Clamp(sentences[0], MaxFallbackSnippetLen)
		label = Label(snippet)
	}
	rec := types.OutcomeRecord{
		OutcomeMeasured: label,
		KeyResult:       snippet,
		CitationSnippet: snippet,
	}
	return Candidate{Outcome: rec, Confidence: Score(rec)}
}
