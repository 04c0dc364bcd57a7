package generate

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"jobmarket-engine/internal/domain"
)

// ErrInvalidSize is returned for a row count outside (0, MaxRows].
var ErrInvalidSize = errors.New("invalid dataset size")

// NoiseSource draws the noise term of one row from the shared stream.
type NoiseSource interface {
	Noise(r *rand.Rand) float64
}

// Gaussian is zero-mean normal noise.
type Gaussian struct {
	StdDev float64
}

func (g Gaussian) Noise(r *rand.Rand) float64 { return r.NormFloat64() * g.StdDev }

// ZeroNoise contributes nothing and consumes nothing from the stream.
type ZeroNoise struct{}

func (ZeroNoise) Noise(*rand.Rand) float64 { return 0 }

// Generator produces reproducible synthetic job tables.
type Generator struct {
	model   Model
	noise   NoiseSource
	maxRows int
}

type Option func(*Generator)

// WithNoise replaces the model's Gaussian noise.
func WithNoise(n NoiseSource) Option {
	return func(g *Generator) { g.noise = n }
}

// WithMaxRows caps n. Zero means uncapped.
func WithMaxRows(max int) Option {
	return func(g *Generator) { g.maxRows = max }
}

// New validates model and returns a generator for it.
func New(model Model, opts ...Option) (*Generator, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	g := &Generator{model: model, noise: Gaussian{StdDev: model.NoiseStdDev}}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// Model returns the generator's salary model.
func (g *Generator) Model() Model { return g.model }

// Generate returns n rows drawn from a stream seeded with seed.
// Identical arguments yield an identical table.
func (g *Generator) Generate(n int, seed int64) (domain.Jobs, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: n=%d must be > 0", ErrInvalidSize, n)
	}
	if g.maxRows > 0 && n > g.maxRows {
		return nil, fmt.Errorf("%w: n=%d exceeds max %d", ErrInvalidSize, n, g.maxRows)
	}

	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	rows := make(domain.Jobs, n)

	// Column-major: each column consumes n draws before the next starts.
	cols := g.model.Columns()
	for _, c := range cols {
		for i := range rows {
			v := c.Domain[r.IntN(len(c.Domain))]
			setCategory(&rows[i], c.Name, v)
		}
	}
	for i := range rows {
		rows[i].Experience = uniformInt(r, g.model.Experience)
	}
	for i := range rows {
		rows[i].SkillScore = uniformInt(r, g.model.SkillScore)
	}
	for i := range rows {
		rows[i].Salary = g.model.Deterministic(rows[i]) + g.noise.Noise(r)
	}
	return rows, nil
}

func uniformInt(r *rand.Rand, rg IntRange) int {
	return rg.Min + r.IntN(rg.Max-rg.Min)
}

func setCategory(j *domain.JobRecord, col, v string) {
	switch col {
	case domain.ColRole:
		j.Role = v
	case domain.ColCountry:
		j.Country = v
	case domain.ColWorkMode:
		j.WorkMode = v
	case domain.ColEducation:
		j.Education = v
	case domain.ColCompanySize:
		j.CompanySize = v
	}
}
