// Package board serves dashboards: a dataset, its filters and readouts, and
// an optional model behind a prediction widget.
package board

import (
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"

	"jobmarket-engine/internal/config"
	"jobmarket-engine/internal/events"
	"jobmarket-engine/internal/frame"
	"jobmarket-engine/internal/ingest"
)

var (
	ErrUnknownBoard  = errors.New("unknown board")
	ErrUnknownColumn = errors.New("unknown column")
	ErrNoModel       = errors.New("board has no model")
	ErrBadInput      = errors.New("invalid prediction input")
)

// Query selects the dataset and the rows a request looks at.
// Rows and Seed only apply to generated boards.
type Query struct {
	Rows    int
	Seed    int64
	Filters frame.Filters
}

type ModelInfo struct {
	Kind            string   `json:"kind"`
	Features        []string `json:"features"`
	TrainOnFiltered bool     `json:"trainOnFiltered"`
}

// Info describes a board without loading its data.
type Info struct {
	Name       string     `json:"name"`
	Title      string     `json:"title"`
	Source     string     `json:"source"`
	Target     string     `json:"target"`
	Dimensions []string   `json:"dimensions"`
	Measures   []string   `json:"measures"`
	Model      *ModelInfo `json:"model,omitempty"`
}

// Classifies reports whether the target is categorical.
func (i Info) Classifies() bool {
	for _, d := range i.Dimensions {
		if d == i.Target {
			return true
		}
	}
	return false
}

type Deps struct {
	Config  func() config.Config
	Fetcher *ingest.Fetcher
	DB      *sql.DB // prediction history; nil disables it
	Hub     *events.Hub
}

type Service struct {
	cfg     func() config.Config
	fetcher *ingest.Fetcher
	db      *sql.DB
	hub     *events.Hub
}

func NewService(d Deps) *Service {
	if d.Fetcher == nil {
		d.Fetcher = ingest.NewFetcher()
	}
	return &Service{cfg: d.Config, fetcher: d.Fetcher, db: d.DB, hub: d.Hub}
}

// DefaultQuery returns the configured dataset size and seed with no filters.
func (s *Service) DefaultQuery() Query {
	c := s.cfg()
	return Query{Rows: c.Dataset.DefaultRows, Seed: c.Dataset.DefaultSeed}
}

// List returns every configured board in config order.
func (s *Service) List() []Info {
	c := s.cfg()
	out := make([]Info, 0, len(c.Boards))
	for _, b := range c.Boards {
		out = append(out, describe(c, b))
	}
	return out
}

// Board returns one board's description.
func (s *Service) Board(name string) (Info, error) {
	c := s.cfg()
	b, err := lookup(c, name)
	if err != nil {
		return Info{}, err
	}
	return describe(c, b), nil
}

func lookup(c config.Config, name string) (config.BoardConfig, error) {
	for _, b := range c.Boards {
		if b.Name == name {
			return b, nil
		}
	}
	return config.BoardConfig{}, fmt.Errorf("%w: %q", ErrUnknownBoard, name)
}

func describe(c config.Config, b config.BoardConfig) Info {
	info := Info{Name: b.Name, Title: b.Title, Source: b.Source, Target: b.Target}
	if info.Title == "" {
		info.Title = b.Name
	}

	info.Dimensions, info.Measures, _ = c.BoardColumns(b)
	if b.Model.Kind != "" {
		info.Model = &ModelInfo{
			Kind:            b.Model.Kind,
			Features:        append([]string(nil), b.Model.Features...),
			TrainOnFiltered: b.Model.TrainOnFiltered,
		}
	}
	return info
}

// datasetKey identifies a board's table within a session. Generated tables
// depend on the salary model too, so a config edit yields a new key.
func datasetKey(c config.Config, b config.BoardConfig, q Query) string {
	if b.Source == config.SourceGenerator {
		h := fnv.New64a()
		fmt.Fprintf(h, "%v", c.Generator)
		return fmt.Sprintf("gen|n=%d|seed=%d|model=%x", q.Rows, q.Seed, h.Sum64())
	}
	sc, _ := c.FindSource(b.Source)
	return "src|" + sc.Name + "|" + sc.URL
}

func contains(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
