// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the fetcher and the
// PDF discovery resolvers.
package httputil

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// HTTP 429 responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

// RetryMaxDelay caps a single backoff wait, including waits requested by a
// Retry-After header.
var RetryMaxDelay = 10 * time.Second

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests). The wait starts at RetryBaseDelay and doubles each attempt
// unless the server sends a Retry-After value in seconds, which is used
// instead. Waits are capped at RetryMaxDelay.
//
// A maxRetries of zero or less means a single attempt. On each 429 the
// response body is drained and closed before waiting. If the context ends
// during a wait the function returns ctx.Err(). After exhausting retries
// the last 429 response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff(attempt, resp.Header.Get("Retry-After"))):
		}
	}
}

// backoff returns the wait before the next attempt.
func backoff(attempt int, retryAfter string) time.Duration {
	wait := RetryBaseDelay << attempt
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
		wait = time.Duration(secs) * time.Second
	}
	if wait > RetryMaxDelay {
		wait = RetryMaxDelay
	}
	return wait
}
