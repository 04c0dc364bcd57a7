package ingest

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"
)

// Load fetches and cleans one source. Fetch failures come back as
// *FetchError; there is no fallback data.
func (f *Fetcher) Load(ctx context.Context, src Source) (*Table, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	body, err := f.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}

	var t *Table
	switch src.Format {
	case FormatHTML:
		t, err = ParseHTMLTable(src, body)
	default:
		t, err = ParseCSV(src, body)
	}
	if err != nil {
		return nil, err
	}
	if t.Dropped > 0 {
		log.Printf("[ingest] %s: kept %d of %d rows (%d dropped)", src.Name, t.View.Len(), t.Read, t.Dropped)
	}
	return t, nil
}

// LoadAll loads every source concurrently. The first failure cancels the
// rest and is returned.
func (f *Fetcher) LoadAll(ctx context.Context, srcs []Source) (map[string]*Table, error) {
	out := make([]*Table, len(srcs))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range srcs {
		g.Go(func() error {
			t, err := f.Load(gctx, src)
			if err != nil {
				return err
			}
			out[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := make(map[string]*Table, len(srcs))
	for i, src := range srcs {
		if _, dup := m[src.Name]; dup {
			return nil, fmt.Errorf("duplicate source %q", src.Name)
		}
		m[src.Name] = out[i]
	}
	return m, nil
}
