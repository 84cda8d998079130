// Package fallback issues one logical HTTP operation against an ordered
// list of candidate URLs. Some platforms are reachable through more than
// one historically valid addressing convention and there is no way to
// know in advance which one a given server honors, so every call walks
// the candidates in priority order and keeps the first success.
//
// This is address fallback, not retry: each candidate is attempted
// exactly once, with no backoff. A failed attempt may still have
// committed on the server, so idempotency of the underlying operation
// remains the caller's responsibility.
package fallback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds each individual attempt.
	DefaultTimeout = 30 * time.Second

	// maxErrBody caps how much of a failed response is kept for the error.
	maxErrBody = 300
)

// Request describes the operation shared by every candidate.
type Request struct {
	Method    string
	Body      []byte
	Header    http.Header
	BasicUser string
	BasicPass string
}

// Response is the drained result of the first successful attempt.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// StatusError records a non-2xx response from a candidate, keeping the
// status code and a truncated body so operators can tell candidate
// failures apart.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Body)
}

// Executor runs fallback requests through one HTTP client.
type Executor struct {
	client *http.Client
}

// New returns an executor whose per-attempt timeout defaults to
// DefaultTimeout when timeout is not positive.
func New(timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{client: &http.Client{Timeout: timeout}}
}

// NewWithClient returns an executor over a caller-supplied client.
func NewWithClient(client *http.Client) *Executor {
	return &Executor{client: client}
}

// Do tries each candidate URL in order and returns the first 2xx
// response. Non-2xx statuses and transport errors both move on to the
// next candidate. When every candidate fails, the returned error is the
// last recorded failure; earlier failures are superseded so the caller
// gets one actionable cause instead of a pile.
func (e *Executor) Do(ctx context.Context, req Request, candidates []string) (*Response, error) {
	if len(candidates) == 0 {
		return nil, errors.New("no candidate endpoints")
	}

	var last error
	for _, candidate := range candidates {
		httpReq, err := http.NewRequestWithContext(ctx, req.Method, candidate, bytes.NewReader(req.Body))
		if err != nil {
			last = err
			continue
		}
		for key, values := range req.Header {
			for _, value := range values {
				httpReq.Header.Add(key, value)
			}
		}
		if req.BasicUser != "" || req.BasicPass != "" {
			httpReq.SetBasicAuth(req.BasicUser, req.BasicPass)
		}

		resp, err := e.client.Do(httpReq)
		if err != nil {
			last = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			last = err
			continue
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return &Response{StatusCode: resp.StatusCode, Body: body, Header: resp.Header}, nil
		}
		last = &StatusError{Code: resp.StatusCode, Body: truncate(string(body), maxErrBody)}
	}

	return nil, last
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
