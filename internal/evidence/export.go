// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"go.yaml.in/yaml/v3"
)

const (
	exportLimit = 100000
	xlsxSheet   = "Evidence"
)

// ExportYAML writes matching outcomes to index/export.yaml and returns the
// path written.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) (string, error) {
	results, err := s.exportResults(ctx, opts)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.IndexDir(), "export.yaml")
	data, err := yaml.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes matching outcomes to index/export.json.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) (string, error) {
	results, err := s.exportResults(ctx, opts)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.IndexDir(), "export.json")
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

var xlsxHeaders = []string{
	"Study ID",
	"Citation",
	"Design",
	"Review Type",
	"Sample Size",
	"Outcome",
	"Intervention",
	"Comparator",
	"Effect Size",
	"P Value / CI",
	"Confidence",
	"Engine",
	"Snippet",
}

// ExportXLSX writes matching outcomes as an evidence table to
// index/evidence.xlsx, one row per outcome.
func (s *Store) ExportXLSX(ctx context.Context, opts QueryOptions) (string, error) {
	results, err := s.exportResults(ctx, opts)
	if err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return "", fmt.Errorf("naming sheet: %w", err)
	}

	for i, h := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(xlsxSheet, cell, h); err != nil {
			return "", fmt.Errorf("writing header: %w", err)
		}
	}

	for i, r := range results {
		row := i + 2
		var sampleSize any = ""
		if r.SampleSize != nil {
			sampleSize = *r.SampleSize
		}
		values := []any{
			r.StudyID, r.Citation, string(r.StudyDesign), string(r.ReviewType), sampleSize,
			r.OutcomeMeasured, r.Intervention, r.Comparator, r.EffectSize, r.PValue,
			r.Confidence, string(r.Engine), r.CitationSnippet,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(xlsxSheet, cell, v); err != nil {
				return "", fmt.Errorf("writing row %d: %w", row, err)
			}
		}
	}

	_ = f.SetColWidth(xlsxSheet, "A", "A", 14)
	_ = f.SetColWidth(xlsxSheet, "B", "B", 48)
	_ = f.SetColWidth(xlsxSheet, "F", "F", 32)
	_ = f.SetColWidth(xlsxSheet, "M", "M", 80)

	path := filepath.Join(s.IndexDir(), "evidence.xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

func (s *Store) exportResults(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	opts.MaxResults = exportLimit
	results, err := s.Retrieve(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	if results == nil {
		results = []QueryResult{}
	}
	return results, nil
}
