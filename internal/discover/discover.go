// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discover finds a full-text PDF URL for papers that arrive
// without one. Resolvers query OpenAlex by DOI and scrape publisher landing
// pages. All requests go through the safe fetcher.
package discover

import (
	"context"
	"log/slog"

	"github.com/pdiddy/evidence-extractor/pkg/types"
)

// Getter downloads a URL under the fetch policy. *fetch.Fetcher satisfies it.
type Getter interface {
	Get(ctx context.Context, rawURL, accept string) ([]byte, error)
}

// Resolver returns a candidate PDF URL for a paper, or "" when it has none.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, paper types.PaperDescriptor) (string, error)
}

// Chain tries resolvers in order and returns the first URL found. Resolver
// errors are logged and skipped.
type Chain []Resolver

// NewChain returns the default chain: OpenAlex first, then the landing page.
func NewChain(g Getter, mailto string) Chain {
	return Chain{&OpenAlex{Getter: g, Mailto: mailto}, &LandingPage{Getter: g}}
}

// Resolve implements the chain lookup. It returns "" when no resolver
// produced a URL.
func (c Chain) Resolve(ctx context.Context, paper types.PaperDescriptor) string {
	for _, r := range c {
		u, err := r.Resolve(ctx, paper)
		if err != nil {
			slog.Debug("pdf discovery failed", "resolver", r.Name(), "study_id", paper.StudyID, "error", err)
			continue
		}
		if u != "" {
			slog.Debug("pdf discovered", "resolver", r.Name(), "study_id", paper.StudyID, "url", u)
			return u
		}
	}
	return ""
}
