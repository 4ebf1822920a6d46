// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reader converts PDF bytes into normalized plain text. A
// layout-aware strategy runs first; when it fails or finds no text a more
// permissive strategy reads the same pages.
package reader

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/evidence-extractor/internal/textnorm"
	"github.com/pdiddy/evidence-extractor/pkg/types"
)

// Reason errors reported in extraction diagnostics.
var (
	ErrInvalidPDFHeader = errors.New("invalid_pdf_header")
	ErrEmptyPDFText     = errors.New("empty_pdf_text")
)

var pdfMagic = []byte("%PDF")

// Strategy extracts raw text from at most maxPages leading pages.
type Strategy interface {
	Name() string
	Text(data []byte, maxPages int) (string, error)
}

// Reader runs a primary and a fallback Strategy.
type Reader struct {
	primary  Strategy
	fallback Strategy
	maxPages int
}

// New creates a Reader using the row-based strategy first and the
// plain-text strategy second.
func New(cfg types.ReaderConfig) *Reader {
	return NewWithStrategies(cfg, RowStrategy{}, PlainStrategy{})
}

// NewWithStrategies creates a Reader with explicit strategies.
func NewWithStrategies(cfg types.ReaderConfig, primary, fallback Strategy) *Reader {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = types.DefaultMaxPages
	}
	return &Reader{primary: primary, fallback: fallback, maxPages: cfg.MaxPages}
}

// HasPDFHeader reports whether data starts with the PDF magic bytes.
func HasPDFHeader(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// Text returns the normalized text of data. Data without the PDF magic
// bytes fails with ErrInvalidPDFHeader before any strategy runs. An empty
// string with a nil error means neither strategy found text. An error from
// the fallback strategy is returned as is.
func (r *Reader) Text(data []byte) (string, error) {
	if !HasPDFHeader(data) {
		return "", ErrInvalidPDFHeader
	}

	text, err := r.primary.Text(data, r.maxPages)
	if err == nil {
		if normalized := textnorm.Normalize(text); normalized != "" {
			return normalized, nil
		}
	}

	text, err = r.fallback.Text(data, r.maxPages)
	if err != nil {
		return "", fmt.Errorf("%s: %w", r.fallback.Name(), err)
	}
	return textnorm.Normalize(text), nil
}

// RowStrategy reads text row by row, keeping the visual line order of
// each page.
type RowStrategy struct{}

func (RowStrategy) Name() string { return "rows" }

func (RowStrategy) Text(data []byte, maxPages int) (string, error) {
	return eachPage(data, maxPages, func(p pdf.Page) (string, error) {
		rows, err := p.GetTextByRow()
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		for _, row := range rows {
			for i, word := range row.Content {
				if i > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(word.S)
			}
			sb.WriteByte('\n')
		}
		return sb.String(), nil
	})
}

// PlainStrategy reads the content stream text of each page without
// layout reconstruction.
type PlainStrategy struct{}

func (PlainStrategy) Name() string { return "plain" }

func (PlainStrategy) Text(data []byte, maxPages int) (string, error) {
	return eachPage(data, maxPages, func(p pdf.Page) (string, error) {
		return p.GetPlainText(nil)
	})
}

// eachPage opens data and concatenates the text of up to maxPages pages.
// Pages that are null or fail to extract are skipped. Panics raised by the
// PDF library on malformed input are returned as errors.
func eachPage(data []byte, maxPages int, pageText func(pdf.Page) (string, error)) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	n := doc.NumPage()
	if n > maxPages {
		n = maxPages
	}

	var parts []string
	for i := 1; i <= n; i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		s, err := pageText(page)
		if err != nil || strings.TrimSpace(s) == "" {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n"), nil
}
