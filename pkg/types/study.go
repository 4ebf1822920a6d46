// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// StudyDesign is the rule-based study design label.
type StudyDesign string

const (
	DesignRCT            StudyDesign = "RCT"
	DesignCohort         StudyDesign = "cohort"
	DesignCrossSectional StudyDesign = "cross-sectional"
	DesignReview         StudyDesign = "review"
	DesignUnknown        StudyDesign = "unknown"
)

// ReviewType records whether a paper is a systematic review or meta-analysis.
type ReviewType string

const (
	ReviewNone       ReviewType = "none"
	ReviewSystematic ReviewType = "systematic-review"
	ReviewMeta       ReviewType = "meta-analysis"
)

// Engine identifies which text source produced a StudyRecord.
type Engine string

const (
	EnginePDF      Engine = "pdf"
	EngineAbstract Engine = "abstract"
)

// OutcomeRecord is one mined result sentence with its statistical fields.
type OutcomeRecord struct {
	// OutcomeMeasured is the inferred outcome label.
	OutcomeMeasured string `json:"outcome_measured" yaml:"outcome_measured"`

	// KeyResult is the human-readable result sentence.
	KeyResult string `json:"key_result,omitempty" yaml:"key_result,omitempty"`

	// CitationSnippet is the verbatim sentence the outcome was mined from.
	// Never empty.
	CitationSnippet string `json:"citation_snippet" yaml:"citation_snippet"`

	Intervention string `json:"intervention,omitempty" yaml:"intervention,omitempty"`
	Comparator   string `json:"comparator,omitempty" yaml:"comparator,omitempty"`
	EffectSize   string `json:"effect_size,omitempty" yaml:"effect_size,omitempty"`

	// PValue holds a p-value phrase, or a confidence-interval phrase when no
	// p-value was reported.
	PValue string `json:"p_value,omitempty" yaml:"p_value,omitempty"`
}

// Citation carries the identifiers and formatted reference of a study.
type Citation struct {
	DOI        string `json:"doi,omitempty" yaml:"doi,omitempty"`
	PubMedID   string `json:"pubmed_id,omitempty" yaml:"pubmed_id,omitempty"`
	OpenAlexID string `json:"openalex_id,omitempty" yaml:"openalex_id,omitempty"`
	Formatted  string `json:"formatted" yaml:"formatted"`
}

// StudyRecord is the structured evidence extracted from one paper.
type StudyRecord struct {
	StudyID         string          `json:"study_id" yaml:"study_id"`
	Title           string          `json:"title" yaml:"title"`
	Year            int             `json:"year" yaml:"year"`
	StudyDesign     StudyDesign     `json:"study_design" yaml:"study_design"`
	SampleSize      *int            `json:"sample_size,omitempty" yaml:"sample_size,omitempty"`
	Population      string          `json:"population,omitempty" yaml:"population,omitempty"`
	Outcomes        []OutcomeRecord `json:"outcomes" yaml:"outcomes"`
	Citation        Citation        `json:"citation" yaml:"citation"`
	AbstractExcerpt string          `json:"abstract_excerpt" yaml:"abstract_excerpt"`
	PreprintStatus  PreprintStatus  `json:"preprint_status" yaml:"preprint_status"`
	ReviewType      ReviewType      `json:"review_type" yaml:"review_type"`
	Source          Source          `json:"source" yaml:"source"`
	CitationCount   *int            `json:"citationCount,omitempty" yaml:"citationCount,omitempty"`
	PDFURL          string          `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`
	LandingPageURL  string          `json:"landing_page_url,omitempty" yaml:"landing_page_url,omitempty"`
}

// Diagnostics records how a StudyRecord was produced.
type Diagnostics struct {
	Engine         Engine `json:"engine" yaml:"engine"`
	UsedPDF        bool   `json:"used_pdf" yaml:"used_pdf"`
	FallbackReason string `json:"fallback_reason,omitempty" yaml:"fallback_reason,omitempty"`
	ParseError     string `json:"parse_error,omitempty" yaml:"parse_error,omitempty"`

	// OutcomeConfidence is parallel to StudyRecord.Outcomes.
	OutcomeConfidence []float64 `json:"outcome_confidence" yaml:"outcome_confidence"`
}

// ExtractionItem is the per-paper result of a batch. Either Study and
// Diagnostics are set, or Error is; never both.
type ExtractionItem struct {
	StudyID     string       `json:"study_id" yaml:"study_id"`
	Study       *StudyRecord `json:"study,omitempty" yaml:"study,omitempty"`
	Diagnostics *Diagnostics `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Error       string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the item carries an error instead of a study. An
// item without a study counts as failed even when its error is blank.
func (it ExtractionItem) Failed() bool {
	return it.Error != "" || it.Study == nil
}

// BatchResponse holds one ExtractionItem per requested paper, in request order.
type BatchResponse struct {
	Results []ExtractionItem `json:"results" yaml:"results"`
}
