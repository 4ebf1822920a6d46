// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify assigns a study design and review type to paper text
// using ordered keyword rules. The first matching rule wins.
package classify

import (
	"regexp"
	"strings"

	"github.com/pdiddy/evidence-extractor/internal/textnorm"
	"github.com/pdiddy/evidence-extractor/pkg/types"
)

type designRule struct {
	pattern *regexp.Regexp
	design  types.StudyDesign
}

// designRules are evaluated top-down. Review keywords outrank trial
// keywords because reviews routinely describe the trials they pool.
var designRules = []designRule{
	{regexp.MustCompile(`\b(meta-analysis|meta analysis|systematic review|scoping review|literature review|review)\b`), types.DesignReview},
	{regexp.MustCompile(`\b(randomized|randomised|randomly assigned|rct|controlled trial|clinical trial)\b`), types.DesignRCT},
	{regexp.MustCompile(`\b(cohort|prospective|retrospective|follow-up|longitudinal)\b`), types.DesignCohort},
	{regexp.MustCompile(`\b(cross-sectional|cross sectional|prevalence survey|survey)\b`), types.DesignCrossSectional},
}

// Input joins a title and body the way the classifier expects them.
func Input(title, body string) string {
	return textnorm.Normalize(title + ". " + body)
}

// StudyDesign returns the first design whose rule matches text.
func StudyDesign(text string) types.StudyDesign {
	lower := strings.ToLower(text)
	for _, rule := range designRules {
		if rule.pattern.MatchString(lower) {
			return rule.design
		}
	}
	return types.DesignUnknown
}

// ReviewType reports whether text describes a meta-analysis or a
// systematic review.
func ReviewType(text string) types.ReviewType {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "meta-analysis"), strings.Contains(lower, "meta analysis"):
		return types.ReviewMeta
	case strings.Contains(lower, "systematic review"):
		return types.ReviewSystematic
	default:
		return types.ReviewNone
	}
}

// Classify returns the design and review type of title and body. A design
// that no rule recognizes becomes review when the text is a review.
func Classify(title, body string) (types.StudyDesign, types.ReviewType) {
	text := Input(title, body)
	design := StudyDesign(text)
	review := ReviewType(text)
	if design == types.DesignUnknown && review != types.ReviewNone {
		design = types.DesignReview
	}
	return design, review
}
