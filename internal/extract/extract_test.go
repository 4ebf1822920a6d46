package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pdiddy/evidence-extractor/internal/fetch"
	"github.com/pdiddy/evidence-extractor/internal/reader"
	"github.com/pdiddy/evidence-extractor/pkg/types"
)

// --- fakes ---

type fakeFetcher struct {
	mu       sync.Mutex
	data     map[string][]byte
	err      error
	urls     []string
	deadline time.Duration
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, rawURL)
	if d, ok := ctx.Deadline(); ok {
		f.deadline = time.Until(d)
	}
	if f.err != nil {
		return nil, f.err
	}
	if strings.HasPrefix(rawURL, "http://") {
		return nil, fetch.ErrOnlyHTTPS
	}
	data, ok := f.data[rawURL]
	if !ok {
		return nil, errors.New("HTTP 404 from test")
	}
	return data, nil
}

type fakeReader struct {
	text  string
	err   error
	panic string
	// panicValue, when set, is what the reader panics with instead of
	// the default message.
	panicValue any
}

func (r *fakeReader) Text(data []byte) (string, error) {
	if r.panic != "" && strings.Contains(string(data), r.panic) {
		if r.panicValue != nil {
			panic(r.panicValue)
		}
		panic("reader exploded on " + r.panic)
	}
	if !reader.HasPDFHeader(data) {
		return "", reader.ErrInvalidPDFHeader
	}
	return r.text, r.err
}

type fakeDiscoverer struct {
	url string
}

func (d *fakeDiscoverer) Resolve(context.Context, types.PaperDescriptor) string {
	return d.url
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestExtractor(f DocumentFetcher, r TextReader, opts ...Option) *Extractor {
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(types.DefaultPipelineConfig(), f, r, opts...)
}

const melatoninAbstract = "Methods: n=120 participants were randomized. Melatonin versus placebo improved sleep quality with p = 0.02."

const pdfBody = "Background. Exercise versus rest reduced anxiety (OR = 0.61, p < 0.01) among 312 adults in a randomized trial."

// --- ExtractOne scenarios ---

func TestExtractOne_AbstractWithoutPDFURL(t *testing.T) {
	f := &fakeFetcher{}
	e := newTestExtractor(f, &fakeReader{})
	paper := types.PaperDescriptor{StudyID: "s-a", Title: "Melatonin and sleep", Year: 2021, Source: types.SourcePubMed, Abstract: melatoninAbstract}

	item := e.ExtractOne(context.Background(), paper, 12000)

	if item.Failed() || item.Study == nil || item.Diagnostics == nil {
		t.Fatalf("expected a study, got %+v", item)
	}
	d := item.Diagnostics
	if d.Engine != types.EngineAbstract || d.UsedPDF {
		t.Errorf("engine = %s used_pdf = %v, want abstract/false", d.Engine, d.UsedPDF)
	}
	if d.FallbackReason != ReasonMissingPDFURL {
		t.Errorf("fallback_reason = %q, want %q", d.FallbackReason, ReasonMissingPDFURL)
	}
	if d.ParseError != "" {
		t.Errorf("parse_error = %q, want empty", d.ParseError)
	}

	s := item.Study
	if s.SampleSize == nil || *s.SampleSize != 120 {
		t.Errorf("sample_size = %v, want 120", s.SampleSize)
	}
	if s.StudyDesign != types.DesignRCT {
		t.Errorf("study_design = %s, want RCT", s.StudyDesign)
	}
	if len(s.Outcomes) == 0 {
		t.Fatal("expected at least one outcome")
	}
	o := s.Outcomes[0]
	if o.Intervention != "Melatonin" || o.Comparator != "placebo" || o.PValue != "p = 0.02" {
		t.Errorf("outcome = %+v", o)
	}
	if len(d.OutcomeConfidence) != len(s.Outcomes) {
		t.Errorf("confidence len %d != outcomes len %d", len(d.OutcomeConfidence), len(s.Outcomes))
	}
	if s.PreprintStatus != types.StatusPeerReviewed {
		t.Errorf("preprint_status = %s", s.PreprintStatus)
	}
	if s.Citation.Formatted != "Unknown (2021). Melatonin and sleep." {
		t.Errorf("formatted = %q", s.Citation.Formatted)
	}
	if len(f.urls) != 0 {
		t.Errorf("fetcher called with %v", f.urls)
	}
}

func TestExtractOne_PrivateHostRejected(t *testing.T) {
	f := fetch.NewFetcher(types.FetchConfig{})
	e := newTestExtractor(f, reader.New(types.ReaderConfig{}))
	paper := types.PaperDescriptor{
		StudyID:  "s-b",
		Title:    "Private",
		Year:     2020,
		Abstract: "Sleep improved.",
		PDFURL:   "https://localhost/private.pdf",
	}

	item := e.ExtractOne(context.Background(), paper, 12000)

	if item.Diagnostics.Engine != types.EngineAbstract {
		t.Errorf("engine = %s, want abstract", item.Diagnostics.Engine)
	}
	if item.Diagnostics.ParseError != "private_host_rejected" {
		t.Errorf("parse_error = %q", item.Diagnostics.ParseError)
	}
	if item.Diagnostics.FallbackReason != "private_host_rejected" {
		t.Errorf("fallback_reason = %q", item.Diagnostics.FallbackReason)
	}
	if item.Study.PDFURL != paper.PDFURL {
		t.Errorf("pdf_url = %q", item.Study.PDFURL)
	}
}

func TestExtractOne_Cohort(t *testing.T) {
	e := newTestExtractor(&fakeFetcher{}, &fakeReader{})
	paper := types.PaperDescriptor{StudyID: "s-c", Title: "Sleep", Year: 2019, Abstract: "A cohort study followed 240 participants and observed improved sleep quality."}

	s := e.ExtractOne(context.Background(), paper, 0).Study

	if s.StudyDesign != types.DesignCohort {
		t.Errorf("study_design = %s, want cohort", s.StudyDesign)
	}
	if s.SampleSize == nil || *s.SampleSize != 240 {
		t.Errorf("sample_size = %v, want 240", s.SampleSize)
	}
	if s.Population == "" {
		t.Error("expected a population snippet")
	}
}

func TestExtractOne_EmptyAbstract(t *testing.T) {
	e := newTestExtractor(&fakeFetcher{}, &fakeReader{})

	for _, title := range []string{"", "Sleep in shift workers"} {
		item := e.ExtractOne(context.Background(), types.PaperDescriptor{StudyID: "s-d", Title: title, Year: 2022}, 12000)

		s, d := item.Study, item.Diagnostics
		if len(s.Outcomes) != 1 || len(d.OutcomeConfidence) != 1 {
			t.Fatalf("title %q: outcomes %d, confidence %d", title, len(s.Outcomes), len(d.OutcomeConfidence))
		}
		if c := d.OutcomeConfidence[0]; c < 0 || c > 1 {
			t.Errorf("title %q: confidence %v out of range", title, c)
		}
		if s.Outcomes[0].CitationSnippet == "" {
			t.Errorf("title %q: empty citation snippet", title)
		}
		if s.StudyDesign != types.DesignUnknown || s.ReviewType != types.ReviewNone {
			t.Errorf("title %q: design %s review %s", title, s.StudyDesign, s.ReviewType)
		}
		if d.FallbackReason != ReasonMissingPDFURL {
			t.Errorf("title %q: fallback_reason %q", title, d.FallbackReason)
		}
	}
}

func TestExtractOne_ReviewPrecedence(t *testing.T) {
	e := newTestExtractor(&fakeFetcher{}, &fakeReader{})
	paper := types.PaperDescriptor{
		StudyID:  "s-e",
		Title:    "Melatonin for insomnia",
		Year:     2023,
		Abstract: "We performed a systematic review of randomized trials of melatonin.",
	}

	s := e.ExtractOne(context.Background(), paper, 12000).Study

	if s.StudyDesign != types.DesignReview {
		t.Errorf("study_design = %s, want review", s.StudyDesign)
	}
	if s.ReviewType != types.ReviewSystematic {
		t.Errorf("review_type = %s, want systematic-review", s.ReviewType)
	}
}

// --- PDF path ---

func TestExtractOne_PDFEngine(t *testing.T) {
	url := "https://journal.example.org/paper.pdf"
	f := &fakeFetcher{data: map[string][]byte{url: []byte("%PDF-1.7 body")}}
	e := newTestExtractor(f, &fakeReader{text: pdfBody})
	paper := types.PaperDescriptor{StudyID: "s-pdf", Title: "Exercise", Year: 2024, Source: types.SourceArxiv, Abstract: "Short abstract.", PDFURL: url}

	item := e.ExtractOne(context.Background(), paper, 5000)

	d, s := item.Diagnostics, item.Study
	if d.Engine != types.EnginePDF || !d.UsedPDF {
		t.Errorf("engine = %s used_pdf = %v", d.Engine, d.UsedPDF)
	}
	if d.FallbackReason != "" || d.ParseError != "" {
		t.Errorf("unexpected reasons %q / %q", d.FallbackReason, d.ParseError)
	}
	if s.SampleSize == nil || *s.SampleSize != 312 {
		t.Errorf("sample_size = %v, want 312", s.SampleSize)
	}
	if s.StudyDesign != types.DesignRCT {
		t.Errorf("study_design = %s", s.StudyDesign)
	}
	if s.AbstractExcerpt != "Short abstract." {
		t.Errorf("abstract_excerpt = %q", s.AbstractExcerpt)
	}
	if s.PreprintStatus != types.StatusPreprint {
		t.Errorf("preprint_status = %s", s.PreprintStatus)
	}
	if f.deadline <= 0 || f.deadline > 5*time.Second {
		t.Errorf("fetch deadline %v, want within 5s", f.deadline)
	}
}

func TestExtractOne_PDFFailures(t *testing.T) {
	url := "https://journal.example.org/paper.pdf"
	longErr := errors.New(strings.Repeat("x", 500))

	tests := []struct {
		name   string
		fetch  *fakeFetcher
		reader *fakeReader
		want   string
	}{
		{"invalid header", &fakeFetcher{data: map[string][]byte{url: []byte("<html>")}}, &fakeReader{text: "unused"}, "invalid_pdf_header"},
		{"empty text", &fakeFetcher{data: map[string][]byte{url: []byte("%PDF-1.4")}}, &fakeReader{}, "empty_pdf_text"},
		{"too large", &fakeFetcher{err: fetch.ErrPDFTooLarge}, &fakeReader{}, "pdf_too_large"},
		{"wrapped code", &fakeFetcher{err: errors.Join(errors.New("redirect"), fetch.ErrOnlyHTTPS)}, &fakeReader{}, "only_https_allowed"},
		{"http error", &fakeFetcher{data: map[string][]byte{}}, &fakeReader{}, "HTTP 404 from test"},
		{"long error clamped", &fakeFetcher{err: longErr}, &fakeReader{}, strings.Repeat("x", MaxErrorLen)},
		{"reader error", &fakeFetcher{data: map[string][]byte{url: []byte("%PDF-1.4")}}, &fakeReader{err: errors.New("plain: malformed")}, "plain: malformed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExtractor(tt.fetch, tt.reader)
			paper := types.PaperDescriptor{StudyID: "s", Title: "T", Year: 2020, Abstract: melatoninAbstract, PDFURL: url}

			item := e.ExtractOne(context.Background(), paper, 12000)

			d := item.Diagnostics
			if d.Engine != types.EngineAbstract || d.UsedPDF {
				t.Errorf("engine = %s used_pdf = %v", d.Engine, d.UsedPDF)
			}
			if d.ParseError != tt.want {
				t.Errorf("parse_error = %q, want %q", d.ParseError, tt.want)
			}
			if d.FallbackReason != tt.want {
				t.Errorf("fallback_reason = %q, want %q", d.FallbackReason, tt.want)
			}
			if item.Study.SampleSize == nil || *item.Study.SampleSize != 120 {
				t.Errorf("abstract not mined: sample_size = %v", item.Study.SampleSize)
			}
		})
	}
}

func TestExtractOne_Discovery(t *testing.T) {
	url := "https://repo.example.org/found.pdf"
	f := &fakeFetcher{data: map[string][]byte{url: []byte("%PDF-1.4")}}
	paper := types.PaperDescriptor{StudyID: "s", Title: "T", Year: 2020, DOI: "10.1/x", Abstract: "Abstract only."}

	e := newTestExtractor(f, &fakeReader{text: pdfBody}, WithDiscoverer(&fakeDiscoverer{url: url}))
	item := e.ExtractOne(context.Background(), paper, 12000)
	if item.Diagnostics.Engine != types.EnginePDF {
		t.Errorf("engine = %s, want pdf", item.Diagnostics.Engine)
	}
	if item.Study.PDFURL != url {
		t.Errorf("pdf_url = %q, want discovered %q", item.Study.PDFURL, url)
	}

	e = newTestExtractor(f, &fakeReader{text: pdfBody}, WithDiscoverer(&fakeDiscoverer{}))
	item = e.ExtractOne(context.Background(), paper, 12000)
	if item.Diagnostics.FallbackReason != ReasonMissingPDFURL {
		t.Errorf("fallback_reason = %q, want %q", item.Diagnostics.FallbackReason, ReasonMissingPDFURL)
	}
}

func TestExtractOne_Idempotent(t *testing.T) {
	url := "https://journal.example.org/paper.pdf"
	f := &fakeFetcher{data: map[string][]byte{url: []byte("%PDF-1.4")}}
	e := newTestExtractor(f, &fakeReader{text: pdfBody})
	paper := types.PaperDescriptor{StudyID: "s", Title: "T", Year: 2020, Abstract: melatoninAbstract, PDFURL: url}

	first, err := json.Marshal(e.ExtractOne(context.Background(), paper, 12000))
	if err != nil {
		t.Fatal(err)
	}
	second, err := json.Marshal(e.ExtractOne(context.Background(), paper, 12000))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("records differ:\n%s\n%s", first, second)
	}
}

func TestExtractOne_ExcerptBounded(t *testing.T) {
	e := newTestExtractor(&fakeFetcher{}, &fakeReader{})
	paper := types.PaperDescriptor{StudyID: "s", Title: "T", Year: 2020, Abstract: strings.Repeat("Sleep improved again. ", 60)}

	s := e.ExtractOne(context.Background(), paper, 12000).Study
	if n := len([]rune(s.AbstractExcerpt)); n != MaxExcerptLen {
		t.Errorf("excerpt length %d, want %d", n, MaxExcerptLen)
	}
}

// --- helpers ---

func TestFetchTimeout(t *testing.T) {
	tests := []struct {
		ms   int
		want time.Duration
	}{
		{0, 12 * time.Second},
		{500, 12 * time.Second},
		{1000, time.Second},
		{12000, 12 * time.Second},
		{12999, 12 * time.Second},
		{60000, 60 * time.Second},
		{600000, 60 * time.Second},
		{-5000, time.Second},
	}
	for _, tt := range tests {
		if got := FetchTimeout(tt.ms); got != tt.want {
			t.Errorf("FetchTimeout(%d) = %v, want %v", tt.ms, got, tt.want)
		}
	}
}

func TestReasonCode(t *testing.T) {
	if got := ReasonCode(reader.ErrInvalidPDFHeader); got != "invalid_pdf_header" {
		t.Errorf("got %q", got)
	}
	wrapped := errors.Join(errors.New("Get \"https://x\""), fetch.ErrPrivateHost)
	if got := ReasonCode(wrapped); got != "private_host_rejected" {
		t.Errorf("got %q", got)
	}
	if got := ReasonCode(context.DeadlineExceeded); got != "context deadline exceeded" {
		t.Errorf("got %q", got)
	}
}

func TestFormatCitation(t *testing.T) {
	tests := []struct {
		name  string
		paper types.PaperDescriptor
		want  string
	}{
		{"no authors", types.PaperDescriptor{Title: "Sleep", Year: 2021}, "Unknown (2021). Sleep."},
		{"one author", types.PaperDescriptor{Title: "Sleep", Year: 2021, Authors: []string{"Ada Lovelace"}}, "Ada Lovelace (2021). Sleep."},
		{"many authors", types.PaperDescriptor{Title: "Sleep", Year: 2021, Authors: []string{" Smith ", "Jones"}}, "Smith et al. (2021). Sleep."},
		{"title punctuation kept", types.PaperDescriptor{Title: "Does sleep matter?", Year: 2020}, "Unknown (2020). Does sleep matter?"},
		{"no year", types.PaperDescriptor{Title: "Sleep."}, "Unknown (n.d.). Sleep."},
		{"blank authors ignored", types.PaperDescriptor{Title: "Sleep", Year: 2021, Authors: []string{"", " "}}, "Unknown (2021). Sleep."},
	}
	for _, tt := range tests {
		if got := FormatCitation(tt.paper); got != tt.want {
			t.Errorf("%s: FormatCitation = %q, want %q", tt.name, got, tt.want)
		}
	}
}
