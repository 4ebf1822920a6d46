// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads remote documents under a network safety policy.
// A URL is checked before any connection is made, every redirect target is
// checked again, and the dialer refuses blocked addresses so a DNS answer
// that changes between check and connect cannot reach an internal host.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"

	"github.com/pdiddy/evidence-extractor/internal/httputil"
	"github.com/pdiddy/evidence-extractor/pkg/types"
)

// Reason errors. Their messages are the reason codes reported in
// extraction diagnostics.
var (
	ErrOnlyHTTPS   = errors.New("only_https_allowed")
	ErrInvalidURL  = errors.New("invalid_url")
	ErrPrivateHost = errors.New("private_host_rejected")
	ErrPDFTooLarge = errors.New("pdf_too_large")
)

// Fetcher downloads documents. It is safe for concurrent use.
type Fetcher struct {
	client *http.Client
	policy *Policy
	cfg    types.FetchConfig
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client. The fetcher still installs its
// own redirect check on a copy of the client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithPolicy replaces the URL policy.
func WithPolicy(p *Policy) Option {
	return func(f *Fetcher) { f.policy = p }
}

// NewFetcher creates a Fetcher. Zero config values fall back to defaults.
func NewFetcher(cfg types.FetchConfig, opts ...Option) *Fetcher {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = types.DefaultMaxBytes
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = types.DefaultMaxRedirects
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = types.DefaultUserAgent
	}

	f := &Fetcher{cfg: cfg}
	for _, opt := range opts {
		opt(f)
	}
	if f.policy == nil {
		f.policy = DefaultPolicy()
	}

	var client http.Client
	if f.client != nil {
		client = *f.client
	} else {
		client = http.Client{Transport: guardedTransport(f.policy)}
	}
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}
	client.CheckRedirect = f.checkRedirect
	f.client = &client
	return f
}

// Policy returns the URL policy the fetcher enforces.
func (f *Fetcher) Policy() *Policy {
	return f.policy
}

// Fetch downloads the document at rawURL and returns the body. The URL is
// checked first and a rejected URL never produces a network request.
// Bodies larger than the configured maximum fail with ErrPDFTooLarge
// without being read in full.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return f.Get(ctx, rawURL, "application/pdf,*/*;q=0.8")
}

// Get downloads rawURL under the same policy and size cap as Fetch,
// sending accept as the Accept header.
func (f *Fetcher) Get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	u, err := f.policy.Check(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", accept)

	resp, err := httputil.DoWithRetry(ctx, f.client, req, f.cfg.MaxRetries)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, u.Host)
	}
	if resp.ContentLength > f.cfg.MaxBytes {
		return nil, ErrPDFTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if int64(len(data)) > f.cfg.MaxBytes {
		return nil, ErrPDFTooLarge
	}
	return data, nil
}

func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= f.cfg.MaxRedirects {
		return fmt.Errorf("stopped after %d redirects", len(via))
	}
	_, err := f.policy.Check(req.Context(), req.URL.String())
	return err
}

// guardedTransport clones the default transport with a dialer that refuses
// blocked addresses at connect time.
func guardedTransport(p *Policy) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   dialControl(p),
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = nil
	t.DialContext = dialer.DialContext
	return t
}

func dialControl(p *Policy) func(network, address string, c syscall.RawConn) error {
	return func(_, address string, _ syscall.RawConn) error {
		ap, err := netip.ParseAddrPort(address)
		if err != nil {
			return ErrPrivateHost
		}
		if p.blocked(ap.Addr()) {
			return ErrPrivateHost
		}
		return nil
	}
}
