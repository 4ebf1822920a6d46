// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reader

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pdiddy/evidence-extractor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStrategy struct {
	name     string
	text     string
	err      error
	calls    int
	maxPages int
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Text(_ []byte, maxPages int) (string, error) {
	f.calls++
	f.maxPages = maxPages
	return f.text, f.err
}

var validPDF = []byte("%PDF-1.4\n% test body")

func TestText_RejectsMissingHeader(t *testing.T) {
	primary := &fakeStrategy{name: "primary", text: "text"}
	fallback := &fakeStrategy{name: "fallback", text: "text"}
	r := NewWithStrategies(types.ReaderConfig{}, primary, fallback)

	for _, data := range [][]byte{nil, []byte(""), []byte("<html>"), []byte(" %PDF-1.4"), []byte("%PD")} {
		_, err := r.Text(data)
		assert.ErrorIs(t, err, ErrInvalidPDFHeader)
	}
	assert.Equal(t, 0, primary.calls)
	assert.Equal(t, 0, fallback.calls)
}

func TestText_Strategies(t *testing.T) {
	tests := []struct {
		name          string
		primary       *fakeStrategy
		fallback      *fakeStrategy
		want          string
		wantErr       bool
		fallbackCalls int
	}{
		{
			name:          "primary succeeds",
			primary:       &fakeStrategy{name: "p", text: "Sleep  quality im-\nproved."},
			fallback:      &fakeStrategy{name: "f", text: "unused"},
			want:          "Sleep quality improved.",
			fallbackCalls: 0,
		},
		{
			name:          "primary errors",
			primary:       &fakeStrategy{name: "p", err: errors.New("bad xref")},
			fallback:      &fakeStrategy{name: "f", text: "fallback text"},
			want:          "fallback text",
			fallbackCalls: 1,
		},
		{
			name:          "primary empty",
			primary:       &fakeStrategy{name: "p", text: " \n\t "},
			fallback:      &fakeStrategy{name: "f", text: "fallback text"},
			want:          "fallback text",
			fallbackCalls: 1,
		},
		{
			name:          "both empty",
			primary:       &fakeStrategy{name: "p"},
			fallback:      &fakeStrategy{name: "f"},
			want:          "",
			fallbackCalls: 1,
		},
		{
			name:          "fallback errors",
			primary:       &fakeStrategy{name: "p", err: errors.New("bad xref")},
			fallback:      &fakeStrategy{name: "f", err: errors.New("malformed stream")},
			wantErr:       true,
			fallbackCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewWithStrategies(types.ReaderConfig{}, tt.primary, tt.fallback)
			got, err := r.Text(validPDF)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "malformed stream")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, 1, tt.primary.calls)
			assert.Equal(t, tt.fallbackCalls, tt.fallback.calls)
		})
	}
}

func TestText_PageBound(t *testing.T) {
	primary := &fakeStrategy{name: "p"}
	fallback := &fakeStrategy{name: "f"}

	r := NewWithStrategies(types.ReaderConfig{}, primary, fallback)
	_, err := r.Text(validPDF)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultMaxPages, primary.maxPages)
	assert.Equal(t, types.DefaultMaxPages, fallback.maxPages)

	r = NewWithStrategies(types.ReaderConfig{MaxPages: 3}, primary, fallback)
	_, err = r.Text(validPDF)
	require.NoError(t, err)
	assert.Equal(t, 3, primary.maxPages)
}

func TestText_MalformedPDFDoesNotPanic(t *testing.T) {
	r := New(types.ReaderConfig{})
	inputs := [][]byte{
		[]byte("%PDF-1.4"),
		[]byte("%PDF-1.7\n1 0 obj << /Type /Catalog >> endobj\ntrailer << /Root 1 0 R >>\n%%EOF"),
		[]byte("%PDF-\x00\x01\x02garbage startxref 99999 %%EOF"),
	}
	for _, data := range inputs {
		assert.NotPanics(t, func() {
			text, err := r.Text(data)
			if err == nil {
				assert.Empty(t, text)
			}
		})
	}
}

func TestHasPDFHeader(t *testing.T) {
	assert.True(t, HasPDFHeader([]byte("%PDF-1.4")))
	assert.False(t, HasPDFHeader([]byte("%pdf-1.4")))
	assert.False(t, HasPDFHeader(nil))
}

// --- real documents ---

const sleepSentence = "Melatonin versus placebo improved sleep quality."

// buildPDF writes a minimal PDF with one Helvetica text line per page. An
// empty string yields a page with an empty content stream.
func buildPDF(pages ...string) []byte {
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	for i, text := range pages {
		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			5+2*i))
		var content string
		if text != "" {
			content = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		}
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestText_RealPDF(t *testing.T) {
	data := buildPDF(sleepSentence)
	require.True(t, HasPDFHeader(data))

	got, err := New(types.ReaderConfig{}).Text(data)
	require.NoError(t, err)
	assert.Equal(t, sleepSentence, got)
}

func TestRowStrategy_RealPDF(t *testing.T) {
	got, err := RowStrategy{}.Text(buildPDF(sleepSentence), types.DefaultMaxPages)
	require.NoError(t, err)
	assert.Contains(t, got, sleepSentence)
}

func TestPlainStrategy_RealPDF(t *testing.T) {
	got, err := PlainStrategy{}.Text(buildPDF(sleepSentence), types.DefaultMaxPages)
	require.NoError(t, err)
	assert.Equal(t, sleepSentence, strings.TrimSpace(got))
}

func TestStrategies_RealPDFPages(t *testing.T) {
	data := buildPDF("First page text.", "", "Third page text.")

	for _, s := range []Strategy{RowStrategy{}, PlainStrategy{}} {
		t.Run(s.Name(), func(t *testing.T) {
			all, err := s.Text(data, 10)
			require.NoError(t, err)
			assert.Contains(t, all, "First page text.")
			assert.Contains(t, all, "Third page text.")

			first, err := s.Text(data, 1)
			require.NoError(t, err)
			assert.Contains(t, first, "First page text.")
			assert.NotContains(t, first, "Third page text.")
		})
	}
}

func TestText_RealPDFEmptyPagesYieldNoText(t *testing.T) {
	got, err := New(types.ReaderConfig{}).Text(buildPDF("", ""))
	require.NoError(t, err)
	assert.Empty(t, got)
}
