// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fields mines the sample size and population description of a
// study from normalized text.
package fields

import (
	"regexp"
	"strconv"

	"github.com/pdiddy/evidence-extractor/internal/textnorm"
	"github.com/pdiddy/evidence-extractor/pkg/types"
)

// MaxPopulationLen bounds the population snippet in runes.
const MaxPopulationLen = 220

// samplePatterns are tried in order; each captures the count in group 1.
var samplePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bn\s*=\s*(\d{2,7})\b`),
	regexp.MustCompile(`(?i)\b(\d{2,7})\s+(?:participants|patients|subjects|adults|children|individuals)\b`),
}

var populationRe = regexp.MustCompile(
	`(?i)\b(participants|patients|subjects|adults|children|pregnant|volunteers|individuals)\b`,
)

// Miner extracts study fields within configured plausibility bounds.
type Miner struct {
	minSample int
	maxSample int
}

// NewMiner creates a Miner. Zero bounds fall back to the defaults.
func NewMiner(cfg types.MiningConfig) *Miner {
	m := &Miner{minSample: cfg.MinSampleSize, maxSample: cfg.MaxSampleSize}
	if m.minSample <= 0 {
		m.minSample = types.DefaultMinSampleSize
	}
	if m.maxSample <= 0 {
		m.maxSample = types.DefaultMaxSampleSize
	}
	return m
}

// SampleSize returns the first plausible count found by the ordered
// patterns, or nil.
func (m *Miner) SampleSize(text string) *int {
	for _, re := range samplePatterns {
		for _, match := range re.FindAllStringSubmatch(text, -1) {
			n, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			if n >= m.minSample && n <= m.maxSample {
				return &n
			}
		}
	}
	return nil
}

// Population returns the first sentence containing a population keyword as
// a whole word, clamped to MaxPopulationLen runes.
func (m *Miner) Population(text string) string {
	for _, sentence := range textnorm.SplitSentences(text) {
		if populationRe.MatchString(sentence) {
			return textnorm.Clamp(sentence, MaxPopulationLen)
		}
	}
	return ""
}
