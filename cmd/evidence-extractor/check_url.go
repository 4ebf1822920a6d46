package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-extractor/internal/extract"
	"github.com/pdiddy/evidence-extractor/internal/fetch"
)

var checkURLCmd = &cobra.Command{
	Use:   "check-url <url>...",
	Short: "Report whether URLs pass the document fetch policy",
	Long: `Check-url applies the fetch policy (HTTPS only, no private, loopback,
link-local, or metadata hosts) to each URL and prints the verdict. Host
names are resolved but nothing is downloaded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheckURL,
}

func init() {
	rootCmd.AddCommand(checkURLCmd)
}

func runCheckURL(cmd *cobra.Command, args []string) error {
	policy := fetch.DefaultPolicy()

	blocked := 0
	for _, raw := range args {
		if _, err := policy.Check(context.Background(), raw); err != nil {
			fmt.Fprintf(os.Stdout, "blocked %s: %s\n", raw, extract.ReasonCode(err))
			blocked++
			continue
		}
		fmt.Fprintf(os.Stdout, "allowed %s\n", raw)
	}

	if blocked > 0 {
		return fmt.Errorf("%d url(s) blocked", blocked)
	}
	return nil
}
