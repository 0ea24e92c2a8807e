// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
// Implements: prd003-fetching (R5.3-R5.5); docs/ARCHITECTURE § Transport.
package httputil

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

const (
	defaultMaxRetries   = 3
	defaultRetryWaitMin = 500 * time.Millisecond
	defaultRetryWaitMax = 8 * time.Second
)

// retryStatuses is the set of transient statuses retried for GET and HEAD
// requests. Per prd003-fetching R5.3.
var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// NewClient builds an HTTP client with bounded automatic retry and
// exponential backoff on connection failures and the transient statuses in
// retryStatuses. TLS verification is on unless cfg disables it (R5.4).
// The returned client is safe for concurrent use.
func NewClient(cfg types.HTTPConfig) *http.Client {
	rc := retryablehttp.NewClient()
	rc.Logger = nil

	rc.RetryMax = cfg.MaxRetries
	if rc.RetryMax <= 0 {
		rc.RetryMax = defaultMaxRetries
	}
	rc.RetryWaitMin = cfg.RetryWaitMin
	if rc.RetryWaitMin <= 0 {
		rc.RetryWaitMin = defaultRetryWaitMin
	}
	rc.RetryWaitMax = cfg.RetryWaitMax
	if rc.RetryWaitMax <= 0 {
		rc.RetryWaitMax = defaultRetryWaitMax
	}

	rc.HTTPClient.Timeout = cfg.Timeout
	if cfg.InsecureSkipVerify {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		rc.HTTPClient.Transport = tr
	}

	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		return retryStatuses[resp.StatusCode], nil
	}

	return rc.StandardClient()
}

// EnsureSuccess returns an error when the response status is outside 2xx.
func EnsureSuccess(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return nil
}
