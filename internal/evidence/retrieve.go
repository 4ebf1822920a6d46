// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pdiddy/evidence-extractor/pkg/types"
)

// QueryOptions holds parameters for evidence queries.
type QueryOptions struct {
	// Query is an FTS4 match expression over outcome labels and snippets.
	Query string

	Design     types.StudyDesign
	ReviewType types.ReviewType
	StudyID    string
	Engine     types.Engine

	// MinConfidence drops outcomes scored below it. Zero disables the filter.
	MinConfidence float64

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Design == "" && q.ReviewType == "" &&
		q.StudyID == "" && q.Engine == "" && q.MinConfidence == 0
}

// QueryResult is one stored outcome with the study it belongs to.
type QueryResult struct {
	OutcomeID   string            `json:"outcome_id" yaml:"outcome_id"`
	StudyID     string            `json:"study_id" yaml:"study_id"`
	Title       string            `json:"title" yaml:"title"`
	Year        int               `json:"year" yaml:"year"`
	StudyDesign types.StudyDesign `json:"study_design" yaml:"study_design"`
	ReviewType  types.ReviewType  `json:"review_type" yaml:"review_type"`
	Engine      types.Engine      `json:"engine" yaml:"engine"`
	SampleSize  *int              `json:"sample_size,omitempty" yaml:"sample_size,omitempty"`
	Citation    string            `json:"citation" yaml:"citation"`

	types.OutcomeRecord `yaml:",inline"`

	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Retrieve returns stored outcomes matching opts. Full-text queries are
// ordered by confidence; structured-only queries by study and position.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	const columns = `o.id, o.study_id, st.title, st.year, st.study_design, st.review_type,
		st.engine, st.sample_size, st.citation, o.outcome_measured, o.citation_snippet,
		o.intervention, o.comparator, o.effect_size, o.p_value, o.confidence`

	if useFTS {
		qb.WriteString(`SELECT ` + columns + `
			FROM outcomes_fts
			JOIN outcomes o ON o.rowid = outcomes_fts.docid
			JOIN studies st ON st.study_id = o.study_id
			WHERE outcomes_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(`SELECT ` + columns + `
			FROM outcomes o
			JOIN studies st ON st.study_id = o.study_id
			WHERE 1=1`)
	}

	if opts.Design != "" {
		qb.WriteString(` AND st.study_design = ?`)
		args = append(args, string(opts.Design))
	}
	if opts.ReviewType != "" {
		qb.WriteString(` AND st.review_type = ?`)
		args = append(args, string(opts.ReviewType))
	}
	if opts.StudyID != "" {
		qb.WriteString(` AND o.study_id = ?`)
		args = append(args, opts.StudyID)
	}
	if opts.Engine != "" {
		qb.WriteString(` AND st.engine = ?`)
		args = append(args, string(opts.Engine))
	}
	if opts.MinConfidence > 0 {
		qb.WriteString(` AND o.confidence >= ?`)
		args = append(args, opts.MinConfidence)
	}

	if useFTS {
		qb.WriteString(` ORDER BY o.confidence DESC, o.study_id, o.position`)
	} else {
		qb.WriteString(` ORDER BY o.study_id, o.position`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying evidence store: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			qr           QueryResult
			design       string
			reviewType   string
			engine       string
			sampleSize   sql.NullInt64
			citation     sql.NullString
			intervention sql.NullString
			comparator   sql.NullString
			effectSize   sql.NullString
			pValue       sql.NullString
			confidence   sql.NullFloat64
		)

		if err := rows.Scan(
			&qr.OutcomeID, &qr.StudyID, &qr.Title, &qr.Year, &design, &reviewType,
			&engine, &sampleSize, &citation, &qr.OutcomeMeasured, &qr.CitationSnippet,
			&intervention, &comparator, &effectSize, &pValue, &confidence,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		qr.StudyDesign = types.StudyDesign(design)
		qr.ReviewType = types.ReviewType(reviewType)
		qr.Engine = types.Engine(engine)
		if sampleSize.Valid {
			n := int(sampleSize.Int64)
			qr.SampleSize = &n
		}
		qr.Citation = citation.String
		qr.Intervention = intervention.String
		qr.Comparator = comparator.String
		qr.EffectSize = effectSize.String
		qr.PValue = pValue.String
		qr.Confidence = confidence.Float64

		results = append(results, qr)
	}

	return results, rows.Err()
}
