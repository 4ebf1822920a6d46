// Package extract turns paper descriptors into study records. For each
// paper it tries the PDF path (fetch, then parse) and falls back to the
// abstract on any failure, recording why in the diagnostics.
package extract

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pdiddy/evidence-extractor/internal/classify"
	"github.com/pdiddy/evidence-extractor/internal/fetch"
	"github.com/pdiddy/evidence-extractor/internal/fields"
	"github.com/pdiddy/evidence-extractor/internal/outcome"
	"github.com/pdiddy/evidence-extractor/internal/reader"
	"github.com/pdiddy/evidence-extractor/internal/textnorm"
	"github.com/pdiddy/evidence-extractor/pkg/types"
)

// Fallback reasons that are not errors.
const (
	ReasonMissingPDFURL = "missing_pdf_url"
	ReasonPDFFallback   = "pdf_fallback"
)

const (
	// MaxErrorLen bounds every error string placed in a result.
	MaxErrorLen = 200

	// MaxExcerptLen bounds the abstract excerpt in runes.
	MaxExcerptLen = 420
)

// reasonErrors are reported by their code rather than their message.
var reasonErrors = []error{
	fetch.ErrOnlyHTTPS,
	fetch.ErrInvalidURL,
	fetch.ErrPrivateHost,
	fetch.ErrPDFTooLarge,
	reader.ErrInvalidPDFHeader,
	reader.ErrEmptyPDFText,
}

// DocumentFetcher downloads a document. *fetch.Fetcher satisfies it.
type DocumentFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// TextReader converts document bytes to normalized text. *reader.Reader
// satisfies it.
type TextReader interface {
	Text(data []byte) (string, error)
}

// PDFDiscoverer finds a PDF URL for a paper that has none, returning "" if
// it cannot. discover.Chain satisfies it.
type PDFDiscoverer interface {
	Resolve(ctx context.Context, paper types.PaperDescriptor) string
}

// Extractor runs the per-paper state machine. It holds no per-paper state
// and is safe for concurrent use.
type Extractor struct {
	fetcher    DocumentFetcher
	reader     TextReader
	fields     *fields.Miner
	outcomes   *outcome.Miner
	discoverer PDFDiscoverer
	workers    int
	logger     *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithDiscoverer enables PDF URL discovery for papers without a pdf_url.
func WithDiscoverer(d PDFDiscoverer) Option {
	return func(e *Extractor) { e.discoverer = d }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// New creates an Extractor from the mining and extraction settings in cfg.
func New(cfg types.PipelineConfig, f DocumentFetcher, r TextReader, opts ...Option) *Extractor {
	e := &Extractor{
		fetcher:  f,
		reader:   r,
		fields:   fields.NewMiner(cfg.Mining),
		outcomes: outcome.NewMiner(cfg.Mining),
		workers:  cfg.Extraction.Workers,
		logger:   slog.Default(),
	}
	if e.workers <= 0 {
		e.workers = types.DefaultWorkers
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// pdfAttempt is the result of the FETCH and PARSE states. Exactly one of
// text and reason is set when url is set.
type pdfAttempt struct {
	url    string
	text   string
	reason string
}

// ExtractOne extracts a single paper. timeoutMS bounds the document fetch
// (see FetchTimeout). The PDF engine is used only when the document was
// fetched and yielded text; otherwise the abstract, or the title when the
// abstract is empty, is mined instead.
func (e *Extractor) ExtractOne(ctx context.Context, paper types.PaperDescriptor, timeoutMS int) types.ExtractionItem {
	a := e.tryPDF(ctx, paper, FetchTimeout(timeoutMS))
	if a.text != "" {
		e.logger.Debug("extracted from pdf", "study_id", paper.StudyID)
		return e.build(paper, a.text, a.url, types.EnginePDF, "", "")
	}

	reason := a.reason
	switch {
	case reason != "":
	case a.url == "":
		reason = ReasonMissingPDFURL
	default:
		reason = ReasonPDFFallback
	}
	e.logger.Debug("falling back to abstract", "study_id", paper.StudyID, "reason", reason)

	body := paper.Abstract
	if body == "" {
		body = paper.Title
	}
	return e.build(paper, body, a.url, types.EngineAbstract, reason, a.reason)
}

func (e *Extractor) tryPDF(ctx context.Context, paper types.PaperDescriptor, timeout time.Duration) pdfAttempt {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u := paper.PDFURL
	if u == "" && e.discoverer != nil {
		u = e.discoverer.Resolve(ctx, paper)
	}
	if u == "" {
		return pdfAttempt{}
	}

	data, err := e.fetcher.Fetch(ctx, u)
	if err != nil {
		return pdfAttempt{url: u, reason: ReasonCode(err)}
	}
	text, err := e.reader.Text(data)
	if err != nil {
		return pdfAttempt{url: u, reason: ReasonCode(err)}
	}
	if text == "" {
		return pdfAttempt{url: u, reason: reader.ErrEmptyPDFText.Error()}
	}
	return pdfAttempt{url: u, text: text}
}

// build assembles the record and diagnostics from the chosen text.
func (e *Extractor) build(paper types.PaperDescriptor, raw, pdfURL string, engine types.Engine, fallbackReason, parseError string) types.ExtractionItem {
	text := textnorm.Normalize(firstNonEmpty(raw, paper.Abstract, paper.Title))
	design, review := classify.Classify(paper.Title, text)
	outcomes, confidence := e.outcomes.Mine(text)

	if pdfURL == "" {
		pdfURL = paper.PDFURL
	}

	study := &types.StudyRecord{
		StudyID:     paper.StudyID,
		Title:       paper.Title,
		Year:        paper.Year,
		StudyDesign: design,
		SampleSize:  e.fields.SampleSize(text),
		Population:  e.fields.Population(text),
		Outcomes:    outcomes,
		Citation: types.Citation{
			DOI:        paper.DOI,
			PubMedID:   paper.PubMedID,
			OpenAlexID: paper.OpenAlexID,
			Formatted:  FormatCitation(paper),
		},
		AbstractExcerpt: textnorm.Excerpt(firstNonEmpty(paper.Abstract, text, paper.Title), MaxExcerptLen),
		PreprintStatus:  preprintStatus(paper),
		ReviewType:      review,
		Source:          paper.Source,
		CitationCount:   paper.CitationCount,
		PDFURL:          pdfURL,
		LandingPageURL:  paper.LandingPageURL,
	}

	diag := &types.Diagnostics{
		Engine:            engine,
		UsedPDF:           engine == types.EnginePDF,
		FallbackReason:    fallbackReason,
		ParseError:        textnorm.Clamp(parseError, MaxErrorLen),
		OutcomeConfidence: confidence,
	}

	return types.ExtractionItem{StudyID: paper.StudyID, Study: study, Diagnostics: diag}
}

// ReasonCode maps an error to its reason code. Errors without a code are
// reported by message, clamped to MaxErrorLen runes.
func ReasonCode(err error) string {
	for _, target := range reasonErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return textnorm.Clamp(err.Error(), MaxErrorLen)
}

// FetchTimeout converts a batch timeout in milliseconds to the per-paper
// fetch deadline: whole seconds, clamped to [1, 60]. Values under one
// second select the default.
func FetchTimeout(timeoutMS int) time.Duration {
	secs := timeoutMS / 1000
	if secs == 0 {
		secs = types.DefaultTimeoutMS / 1000
	}
	secs = max(1, min(60, secs))
	return time.Duration(secs) * time.Second
}

func preprintStatus(paper types.PaperDescriptor) types.PreprintStatus {
	if paper.PreprintStatus != "" {
		return paper.PreprintStatus
	}
	if paper.Source == types.SourceArxiv {
		return types.StatusPreprint
	}
	return types.StatusPeerReviewed
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
