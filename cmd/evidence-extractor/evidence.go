// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-extractor/internal/batchfile"
	"github.com/pdiddy/evidence-extractor/internal/evidence"
	"github.com/pdiddy/evidence-extractor/internal/textnorm"
	"github.com/pdiddy/evidence-extractor/pkg/types"
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Manage the evidence store (store, retrieve, show, export)",
	Long: `Evidence manages a local SQLite store of extracted study records.
Use subcommands to ingest batch results, search outcomes, or export an
evidence table.`,
}

// --- store subcommand ---

var evidenceStoreCmd = &cobra.Command{
	Use:   "store <results-file>...",
	Short: "Ingest batch results into the evidence store",
	Long: `Store reads results files written by extract and upserts every
successful record. Failed items are skipped. Re-storing a study replaces
its outcomes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEvidenceStore,
}

func runEvidenceStore(cmd *cobra.Command, args []string) error {
	cfg := storeConfig(cmd)
	for _, path := range args {
		resp, err := batchfile.ReadResponse(path)
		if err != nil {
			return err
		}
		if err := storeResults(context.Background(), cfg, resp.Results); err != nil {
			return err
		}
	}
	return nil
}

// --- retrieve subcommand ---

var evidenceRetrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Search stored outcomes with full-text search and filters",
	Long: `Retrieve searches outcome labels and snippets with SQLite full-text
search, structured filters (design, review type, study, engine, minimum
confidence), or both.`,
	RunE: runEvidenceRetrieve,
}

func runEvidenceRetrieve(cmd *cobra.Command, args []string) error {
	opts := queryOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --design, --review-type, --study, --engine, or --min-confidence")
	}

	store, err := evidence.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.Retrieve(context.Background(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRetrieveOutput(results, jsonOutput)
}

func formatRetrieveOutput(results []evidence.QueryResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-16s  %-15s  %-30s  %-5s  %s\n",
		"Rank", "Study", "Design", "Outcome", "Conf", "Snippet")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 120))

	for i, r := range results {
		fmt.Fprintf(os.Stdout, "%-4d  %-16s  %-15s  %-30s  %.2f  %s\n",
			i+1, textnorm.Clamp(r.StudyID, 16), r.StudyDesign,
			textnorm.Clamp(r.OutcomeMeasured, 30), r.Confidence,
			textnorm.Clamp(r.CitationSnippet, 50))
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- show subcommand ---

var evidenceShowCmd = &cobra.Command{
	Use:   "show <study-id>",
	Short: "Print the stored record of a study as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := evidence.NewStore(storeConfig(cmd))
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.Study(context.Background(), args[0])
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(rec); err != nil {
			return err
		}
		return enc.Close()
	},
}

// --- export subcommand ---

var evidenceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored outcomes to YAML, JSON, or XLSX",
	Long: `Export writes every stored outcome (or a filtered subset) to
<evidence-dir>/index/export.yaml, export.json, or evidence.xlsx. Supports
the same filter flags as retrieve.`,
	RunE: runEvidenceExport,
}

func runEvidenceExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := evidence.NewStore(storeConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)
	ctx := context.Background()

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(ctx, opts)
	case "json":
		path, err = store.ExportJSON(ctx, opts)
	case "xlsx":
		path, err = store.ExportXLSX(ctx, opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml, json, or xlsx", format)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Exported to %s\n", path)
	return nil
}

// --- shared helpers ---

func storeConfig(cmd *cobra.Command) types.StoreConfig {
	cfg := pipelineConfig(viper.GetViper(), loadedSecrets).Store
	if dir, _ := cmd.Flags().GetString("evidence-dir"); dir != "" {
		cfg.EvidenceDir = dir
	}
	if cmd.Flags().Changed("max-results") {
		cfg.MaxResults, _ = cmd.Flags().GetInt("max-results")
	}
	return cfg
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) evidence.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	design, _ := cmd.Flags().GetString("design")
	reviewType, _ := cmd.Flags().GetString("review-type")
	studyID, _ := cmd.Flags().GetString("study")
	engine, _ := cmd.Flags().GetString("engine")
	minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")
	limit, _ := cmd.Flags().GetInt("limit")

	return evidence.QueryOptions{
		Query:         queryText,
		Design:        types.StudyDesign(design),
		ReviewType:    types.ReviewType(reviewType),
		StudyID:       studyID,
		Engine:        types.Engine(engine),
		MinConfidence: minConfidence,
		MaxResults:    limit,
	}
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("query", "", "full-text search query")
	cmd.Flags().String("design", "", "filter by study design: RCT, cohort, cross-sectional, review, unknown")
	cmd.Flags().String("review-type", "", "filter by review type: none, systematic-review, meta-analysis")
	cmd.Flags().String("study", "", "filter by study ID")
	cmd.Flags().String("engine", "", "filter by engine: pdf or abstract")
	cmd.Flags().Float64("min-confidence", 0, "drop outcomes scored below this confidence")
	cmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
}

func init() {
	evidenceCmd.PersistentFlags().String("evidence-dir", "", "evidence store directory (contains index/)")
	evidenceCmd.PersistentFlags().Int("max-results", 20, "maximum number of query results")

	addFilterFlags(evidenceRetrieveCmd)
	evidenceRetrieveCmd.Flags().Bool("json", false, "output results as JSON")

	addFilterFlags(evidenceExportCmd)
	evidenceExportCmd.Flags().String("format", "yaml", "export format: yaml, json, or xlsx")

	evidenceCmd.AddCommand(evidenceStoreCmd)
	evidenceCmd.AddCommand(evidenceRetrieveCmd)
	evidenceCmd.AddCommand(evidenceShowCmd)
	evidenceCmd.AddCommand(evidenceExportCmd)

	rootCmd.AddCommand(evidenceCmd)
}
