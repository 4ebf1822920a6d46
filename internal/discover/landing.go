// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discover

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/evidence-extractor/pkg/types"
)

// pdfSelectors are tried in order against a landing page. Each selects an
// element whose attribute holds a PDF link.
var pdfSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[name="citation_pdf_url"]`, "content"},
	{`meta[property="citation_pdf_url"]`, "content"},
	{`link[rel="alternate"][type="application/pdf"]`, "href"},
}

// LandingPage scrapes a publisher landing page for a PDF link.
type LandingPage struct {
	Getter Getter
}

func (l *LandingPage) Name() string { return "landing-page" }

// Resolve downloads the paper's landing page and returns the first PDF link
// it declares, made absolute against the page URL.
func (l *LandingPage) Resolve(ctx context.Context, paper types.PaperDescriptor) (string, error) {
	if paper.LandingPageURL == "" {
		return "", nil
	}
	base, err := url.Parse(paper.LandingPageURL)
	if err != nil {
		return "", fmt.Errorf("parsing landing page URL: %w", err)
	}

	body, err := l.Getter.Get(ctx, paper.LandingPageURL, "text/html,application/xhtml+xml")
	if err != nil {
		return "", fmt.Errorf("fetching landing page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parsing landing page: %w", err)
	}
	return PDFLink(doc, base), nil
}

// PDFLink returns the first PDF link declared in doc, resolved against
// base, or "".
func PDFLink(doc *goquery.Document, base *url.URL) string {
	for _, s := range pdfSelectors {
		val, ok := doc.Find(s.selector).First().Attr(s.attr)
		val = strings.TrimSpace(val)
		if !ok || val == "" {
			continue
		}
		ref, err := url.Parse(val)
		if err != nil {
			continue
		}
		return base.ResolveReference(ref).String()
	}
	return ""
}
