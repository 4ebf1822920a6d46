package extract

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/evidence-extractor/internal/textnorm"
	"github.com/pdiddy/evidence-extractor/pkg/types"
)

// BatchSummary holds counts from a batch extraction run.
type BatchSummary struct {
	PDF      int
	Abstract int
	Failed   int
}

// Total returns the number of papers processed.
func (s BatchSummary) Total() int {
	return s.PDF + s.Abstract + s.Failed
}

// HasFailures reports whether any paper produced an item-level error.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// Summarize counts the items of a response by outcome.
func Summarize(resp types.BatchResponse) BatchSummary {
	var s BatchSummary
	for _, it := range resp.Results {
		switch {
		case it.Failed():
			s.Failed++
		case it.Diagnostics != nil && it.Diagnostics.UsedPDF:
			s.PDF++
		default:
			s.Abstract++
		}
	}
	return s
}

// ExtractBatch extracts every paper in req on a bounded worker pool. The
// response has one item per paper in request order. A panic while
// extracting one paper becomes that item's error; other papers are
// unaffected. Cancelling ctx makes pending fetches fail fast, so their
// papers fall back to the abstract.
func (e *Extractor) ExtractBatch(ctx context.Context, req types.BatchRequest) types.BatchResponse {
	timeoutMS := types.ClampTimeoutMS(req.TimeoutMS)
	results := make([]types.ExtractionItem, len(req.Papers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, paper := range req.Papers {
		g.Go(func() error {
			results[i] = e.safeExtract(gctx, paper, timeoutMS)
			return nil
		})
	}
	g.Wait()

	return types.BatchResponse{Results: results}
}

// panicFallbackError is the item error for a panic whose value prints empty.
const panicFallbackError = "extraction panicked"

func (e *Extractor) safeExtract(ctx context.Context, paper types.PaperDescriptor, timeoutMS int) (item types.ExtractionItem) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extraction panicked", "study_id", paper.StudyID, "panic", r)
			msg := textnorm.Clamp(strings.TrimSpace(fmt.Sprint(r)), MaxErrorLen)
			if msg == "" {
				msg = panicFallbackError
			}
			item = types.ExtractionItem{StudyID: paper.StudyID, Error: msg}
		}
	}()
	return e.ExtractOne(ctx, paper, timeoutMS)
}

// Run extracts a batch and writes one status line per paper to w in
// request order. Callers print the summary.
func (e *Extractor) Run(ctx context.Context, req types.BatchRequest, w io.Writer) (types.BatchResponse, BatchSummary) {
	resp := e.ExtractBatch(ctx, req)
	for _, it := range resp.Results {
		switch {
		case it.Failed():
			fmt.Fprintf(w, "failed    %s: %s\n", it.StudyID, it.Error)
		case it.Diagnostics != nil && it.Diagnostics.UsedPDF:
			fmt.Fprintf(w, "extracted %s (pdf, %d outcomes)\n", it.StudyID, len(it.Study.Outcomes))
		default:
			var reason string
			if it.Diagnostics != nil {
				reason = it.Diagnostics.FallbackReason
			}
			fmt.Fprintf(w, "extracted %s (abstract: %s, %d outcomes)\n", it.StudyID, reason, len(it.Study.Outcomes))
		}
	}

	summary := Summarize(resp)
	e.logger.Info("batch extracted", "total", summary.Total(), "pdf", summary.PDF, "abstract", summary.Abstract, "failed", summary.Failed)
	return resp, summary
}
