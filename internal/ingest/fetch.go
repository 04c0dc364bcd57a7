package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxBody = 32 << 20

// FetchError reports a source that could not be retrieved. The caller
// decides what to do; nothing is retried.
type FetchError struct {
	Source string
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s (%s): status %d", e.Source, e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s (%s): %v", e.Source, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err came from retrieving a source.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// TokenFunc looks up a bearer token for a keychain account. An empty token
// sends the request unauthenticated.
type TokenFunc func(account string) (string, error)

type Fetcher struct {
	hc      *http.Client
	limiter *HostLimiter
	token   TokenFunc
}

type FetcherOption func(*Fetcher)

func WithClient(hc *http.Client) FetcherOption { return func(f *Fetcher) { f.hc = hc } }

func WithLimiter(l *HostLimiter) FetcherOption { return func(f *Fetcher) { f.limiter = l } }

func WithTokens(fn TokenFunc) FetcherOption { return func(f *Fetcher) { f.token = fn } }

func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{hc: &http.Client{Timeout: 20 * time.Second}}
	for _, o := range opts {
		o(f)
	}
	return f
}

// SetRate changes the default per-host rate of a running fetcher.
func (f *Fetcher) SetRate(r Rate) {
	if f.limiter != nil {
		f.limiter.SetDefault(r)
	}
}

// Fetch downloads the source body, capped at 32 MiB.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]byte, error) {
	fail := func(status int, err error) error {
		return &FetchError{Source: src.Name, URL: src.URL, Status: status, Err: err}
	}

	if src.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, src.Timeout)
		defer cancel()
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, src); err != nil {
			return nil, fail(0, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fail(0, err)
	}
	req.Header.Set("User-Agent", "JobMarket/1.0 (+local)")
	if src.TokenAccount != "" && f.token != nil {
		tok, err := f.token(src.TokenAccount)
		if err != nil {
			return nil, fail(0, fmt.Errorf("token %q: %w", src.TokenAccount, err))
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	res, err := f.hc.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return nil, fail(res.StatusCode, fmt.Errorf("status %d", res.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody+1))
	if err != nil {
		return nil, fail(0, err)
	}
	if len(body) > maxBody {
		return nil, fail(0, fmt.Errorf("body exceeds %d bytes", maxBody))
	}
	return body, nil
}
