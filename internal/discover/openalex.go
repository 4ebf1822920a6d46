// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/pdiddy/evidence-extractor/pkg/types"
)

// openAlexAPIBase is the OpenAlex works endpoint. Declared as a var so tests
// can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works/"

// openAlexResponse captures the fields we need from an OpenAlex work record.
type openAlexResponse struct {
	BestOALocation *openAlexLocation `json:"best_oa_location"`
}

type openAlexLocation struct {
	PDFURL     string `json:"pdf_url"`
	LandingURL string `json:"landing_page_url"`
}

// OpenAlex looks up a paper's best open-access location by DOI.
type OpenAlex struct {
	Getter Getter

	// Mailto is sent as the polite-pool contact address when set.
	Mailto string
}

func (o *OpenAlex) Name() string { return "openalex" }

// Resolve returns best_oa_location.pdf_url for the paper's DOI. Papers
// without a DOI and works without an open-access PDF yield "".
func (o *OpenAlex) Resolve(ctx context.Context, paper types.PaperDescriptor) (string, error) {
	doi := normalizeDOI(paper.DOI)
	if doi == "" {
		return "", nil
	}

	apiURL := openAlexAPIBase + "https://doi.org/" + doi
	if o.Mailto != "" {
		apiURL += "?" + url.Values{"mailto": {o.Mailto}}.Encode()
	}

	body, err := o.Getter.Get(ctx, apiURL, "application/json")
	if err != nil {
		return "", fmt.Errorf("OpenAlex API request: %w", err)
	}

	var oa openAlexResponse
	if err := json.Unmarshal(body, &oa); err != nil {
		return "", fmt.Errorf("parsing OpenAlex response: %w", err)
	}
	if oa.BestOALocation == nil {
		return "", nil
	}
	return oa.BestOALocation.PDFURL, nil
}

// normalizeDOI strips resolver prefixes so "https://doi.org/10.1/x" and
// "doi:10.1/x" both become "10.1/x".
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "doi:"} {
		if len(doi) >= len(prefix) && strings.EqualFold(doi[:len(prefix)], prefix) {
			return strings.TrimSpace(doi[len(prefix):])
		}
	}
	return doi
}
