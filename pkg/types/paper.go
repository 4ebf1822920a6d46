// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Source identifies the upstream database a paper descriptor came from.
type Source string

const (
	SourceOpenAlex        Source = "openalex"
	SourceSemanticScholar Source = "semantic_scholar"
	SourceArxiv           Source = "arxiv"
	SourcePubMed          Source = "pubmed"
)

// PreprintStatus records whether a paper has been through peer review.
type PreprintStatus string

const (
	StatusPreprint     PreprintStatus = "preprint"
	StatusPeerReviewed PreprintStatus = "peer-reviewed"
)

// PaperDescriptor is the immutable input for one extraction. It is supplied
// by the upstream acquisition component and never modified.
type PaperDescriptor struct {
	// StudyID is echoed back on every ExtractionItem.
	StudyID string `json:"study_id" yaml:"study_id"`

	// Title is the paper title. It also serves as the text of last resort
	// when the abstract is empty.
	Title string `json:"title" yaml:"title"`

	// Year is the publication year.
	Year int `json:"year" yaml:"year"`

	// Source is the source-db tag (openalex, semantic_scholar, arxiv, pubmed).
	Source Source `json:"source" yaml:"source"`

	// Authors lists author names in source order. Optional; used only for
	// the formatted citation.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	DOI        string `json:"doi,omitempty" yaml:"doi,omitempty"`
	PubMedID   string `json:"pubmed_id,omitempty" yaml:"pubmed_id,omitempty"`
	OpenAlexID string `json:"openalex_id,omitempty" yaml:"openalex_id,omitempty"`

	// Abstract is the abstract text used by the abstract engine.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// PDFURL is the candidate full-text URL. It is attacker-influenced and
	// always passes through the fetch policy before use.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// LandingPageURL is the publisher landing page, if known.
	LandingPageURL string `json:"landing_page_url,omitempty" yaml:"landing_page_url,omitempty"`

	CitationCount  *int           `json:"citationCount,omitempty" yaml:"citationCount,omitempty"`
	PreprintStatus PreprintStatus `json:"preprint_status,omitempty" yaml:"preprint_status,omitempty"`
}

// BatchRequest is a list of papers to extract plus the overall timeout.
type BatchRequest struct {
	Papers []PaperDescriptor `json:"papers" yaml:"papers"`

	// TimeoutMS bounds each document fetch. Zero selects the default;
	// other values are clamped to [MinTimeoutMS, MaxTimeoutMS].
	TimeoutMS int `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

// Batch timeout bounds in milliseconds.
const (
	DefaultTimeoutMS = 12000
	MinTimeoutMS     = 1000
	MaxTimeoutMS     = 60000
)

// ClampTimeoutMS applies the default and the [MinTimeoutMS, MaxTimeoutMS]
// bounds to a requested batch timeout.
func ClampTimeoutMS(ms int) int {
	if ms == 0 {
		ms = DefaultTimeoutMS
	}
	if ms < MinTimeoutMS {
		return MinTimeoutMS
	}
	if ms > MaxTimeoutMS {
		return MaxTimeoutMS
	}
	return ms
}
