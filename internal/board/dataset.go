package board

import (
	"context"
	"log"

	"jobmarket-engine/internal/config"
	"jobmarket-engine/internal/events"
	"jobmarket-engine/internal/frame"
	"jobmarket-engine/internal/generate"
	"jobmarket-engine/internal/ingest"
	"jobmarket-engine/internal/metrics"
	"jobmarket-engine/internal/session"
)

// table returns the board's full table from the session cache, generating
// or fetching it on first use. Failures are not cached.
func (s *Service) table(ctx context.Context, sess *session.Session, c config.Config, b config.BoardConfig, q Query) (frame.View, error) {
	key := datasetKey(c, b, q)
	return sess.Datasets.Get(key, func() (frame.View, error) {
		if b.Source == config.SourceGenerator {
			return s.generate(ctx, sess, c, b, q)
		}
		return s.fetch(ctx, sess, c, b)
	})
}

func (s *Service) generate(ctx context.Context, sess *session.Session, c config.Config, b config.BoardConfig, q Query) (frame.View, error) {
	gen, err := generate.New(c.SalaryModel(), generate.WithMaxRows(c.Dataset.MaxRows))
	if err != nil {
		return nil, err
	}
	jobs, err := gen.Generate(q.Rows, q.Seed)
	if err != nil {
		return nil, err
	}
	metrics.IncDatasetsGenerated()
	s.hub.Emit(scope(ctx, sess, b.Name), events.TypeDatasetGenerated, events.DatasetGenerated{Rows: len(jobs), Seed: q.Seed})
	return jobs.View(), nil
}

func (s *Service) fetch(ctx context.Context, sess *session.Session, c config.Config, b config.BoardConfig) (frame.View, error) {
	sc, _ := c.FindSource(b.Source)
	t, err := s.fetcher.Load(ctx, c.Source(sc))
	if err != nil {
		if ingest.IsFetchError(err) {
			metrics.IncSourceFailures()
		}
		log.Printf("[board] %s: load %s: %v", b.Name, sc.Name, err)
		return nil, err
	}
	metrics.ObserveSourceLoad(t.Dropped)
	s.hub.Emit(scope(ctx, sess, b.Name), events.TypeSourceLoaded, events.DatasetGenerated{Rows: t.View.Len(), Dropped: t.Dropped})
	return t.View, nil
}

type ctxKey struct{}

// WithRequestID tags ctx so events published while serving it carry id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// scope tags an event with the request, the session and the board it concerns.
func scope(ctx context.Context, sess *session.Session, board string) events.Scope {
	sc := events.Scope{RequestID: requestID(ctx), Board: board}
	if sess != nil {
		sc.Session = sess.ID
	}
	return sc
}
