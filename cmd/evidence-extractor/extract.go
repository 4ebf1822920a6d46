// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/evidence-extractor/internal/batchfile"
	"github.com/pdiddy/evidence-extractor/internal/discover"
	"github.com/pdiddy/evidence-extractor/internal/evidence"
	"github.com/pdiddy/evidence-extractor/internal/extract"
	"github.com/pdiddy/evidence-extractor/internal/fetch"
	"github.com/pdiddy/evidence-extractor/internal/reader"
	"github.com/pdiddy/evidence-extractor/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract <batch-file>",
	Short: "Extract evidence records from a batch of paper descriptors",
	Long: `Extract reads a batch request (JSON or YAML), extracts one evidence
record per paper, and writes the batch response to --out. Each paper is
tried against its full-text PDF first and falls back to the abstract.

One status line is printed per paper in request order, followed by a
batch summary. With --store the successful records are also ingested
into the evidence store.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("out", "results.json", "results file (.json, .yaml, or .yml)")
	extractCmd.Flags().Bool("store", false, "ingest successful records into the evidence store")
	extractCmd.Flags().String("evidence-dir", "", "evidence store directory (default from config)")
	extractCmd.Flags().Int("workers", 0, "papers extracted concurrently (default from config)")
	extractCmd.Flags().Int("timeout-ms", 0, "per-paper fetch timeout when the batch file sets none")
	extractCmd.Flags().Bool("discover", false, "look up PDF URLs for papers that have none")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	req, err := batchfile.ReadRequest(args[0])
	if err != nil {
		return err
	}

	cfg := extractConfig(cmd)
	if req.TimeoutMS == 0 {
		req.TimeoutMS = cfg.Extraction.TimeoutMS
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fetcher := fetch.NewFetcher(cfg.Fetch)
	var opts []extract.Option
	if cfg.Extraction.Discover {
		opts = append(opts, extract.WithDiscoverer(discover.NewChain(fetcher, cfg.Fetch.Mailto)))
	}
	e := extract.New(cfg, fetcher, reader.New(cfg.Reader), opts...)

	resp, summary := e.Run(ctx, *req, os.Stdout)
	fmt.Fprintf(os.Stdout, "\nBatch summary: %d papers, pdf: %d, abstract: %d, failed: %d\n",
		summary.Total(), summary.PDF, summary.Abstract, summary.Failed)

	out, _ := cmd.Flags().GetString("out")
	if err := batchfile.WriteResponse(out, resp); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Wrote %s\n", out)

	if store, _ := cmd.Flags().GetBool("store"); store {
		if err := storeResults(ctx, cfg.Store, resp.Results); err != nil {
			return err
		}
	}

	if summary.HasFailures() {
		return fmt.Errorf("%d paper(s) failed extraction", summary.Failed)
	}
	return nil
}

// extractConfig layers explicitly set flags over the viper configuration.
func extractConfig(cmd *cobra.Command) types.PipelineConfig {
	cfg := pipelineConfig(viper.GetViper(), loadedSecrets)

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Extraction.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("timeout-ms") {
		cfg.Extraction.TimeoutMS, _ = flags.GetInt("timeout-ms")
	}
	if flags.Changed("discover") {
		cfg.Extraction.Discover, _ = flags.GetBool("discover")
	}
	if dir, _ := flags.GetString("evidence-dir"); dir != "" {
		cfg.Store.EvidenceDir = dir
	}
	return cfg
}

func storeResults(ctx context.Context, cfg types.StoreConfig, items []types.ExtractionItem) error {
	store, err := evidence.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(ctx, items, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\nstored: %d, updated: %d, skipped: %d (run %s)\n",
		summary.Stored, summary.Updated, summary.Skipped, summary.RunID)
	return nil
}
