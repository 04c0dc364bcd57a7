package config

import (
	"time"

	"jobmarket-engine/internal/domain"
	"jobmarket-engine/internal/generate"
	"jobmarket-engine/internal/ingest"
	"jobmarket-engine/internal/model"
)

// Default returns the built-in configuration: the synthetic job market plus
// the iris and tips sample sources.
func Default() Config {
	var cfg Config
	cfg.App.Port = 38471
	cfg.App.Host = "127.0.0.1"

	cfg.Session.IdleMinutes = 30
	cfg.Session.MaxDatasets = 8

	cfg.Dataset.DefaultRows = 1000
	cfg.Dataset.MaxRows = 100000
	cfg.Dataset.DefaultSeed = 42

	cfg.Generator = generatorConfig(generate.DefaultModel())

	cfg.Fetch.RequestsPerSecond = 2
	cfg.Fetch.Burst = 2
	cfg.Fetch.TimeoutSeconds = 15

	cfg.Sources = []SourceConfig{sourceConfig(ingest.IrisSource()), sourceConfig(ingest.TipsSource())}
	cfg.Boards = defaultBoards()

	cfg.History.RetentionDays = 30
	cfg.History.CleanupMinutes = 60
	return cfg
}

func defaultBoards() []BoardConfig {
	jobDims := append([]string(nil), domain.CategoricalColumns...)
	jobFeatures := []string{domain.ColExperience, domain.ColSkillScore}
	return []BoardConfig{
		{
			Name: "jobs", Title: "Job Market Salaries", Source: SourceGenerator,
			Dimensions: jobDims, Target: domain.ColSalary,
			Model: ModelConfig{Kind: model.KindLinear, Features: jobFeatures},
		},
		{
			Name: "jobs-forest", Title: "Job Market Salaries (forest)", Source: SourceGenerator,
			Dimensions: jobDims, Target: domain.ColSalary,
			Model: ModelConfig{Kind: model.KindForestRegressor, Features: jobFeatures, Trees: 50, MaxDepth: 8, Seed: 42},
		},
		{
			Name: "iris", Title: "Iris Species", Source: "iris", Target: "species",
			Model: ModelConfig{
				Kind:     model.KindForestClassifier,
				Features: []string{"sepal_length", "sepal_width", "petal_length", "petal_width"},
				Trees:    50, MaxDepth: 8, Seed: 42,
			},
		},
		{
			Name: "tips", Title: "Restaurant Tips", Source: "tips", Target: "tip",
			Model: ModelConfig{Kind: model.KindLinear, Features: []string{"total_bill", "size"}},
		},
	}
}

func generatorConfig(m generate.Model) GeneratorConfig {
	col := func(c generate.Column) ColumnConfig {
		coef := make(map[string]float64, len(c.Coef))
		for k, v := range c.Coef {
			coef[k] = v
		}
		return ColumnConfig{Values: append([]string(nil), c.Domain...), Coefficients: coef}
	}
	return GeneratorConfig{
		Roles:            col(m.Role),
		Countries:        col(m.Country),
		WorkModes:        col(m.WorkMode),
		Educations:       col(m.Education),
		CompanySizes:     col(m.CompanySize),
		Experience:       RangeConfig{Min: m.Experience.Min, Max: m.Experience.Max},
		SkillScore:       RangeConfig{Min: m.SkillScore.Min, Max: m.SkillScore.Max},
		ExperienceWeight: m.ExperienceWeight,
		SkillWeight:      m.SkillWeight,
		NoiseStdDev:      m.NoiseStdDev,
	}
}

func sourceConfig(s ingest.Source) SourceConfig {
	return SourceConfig{
		Name:           s.Name,
		URL:            s.URL,
		Format:         s.Format,
		Header:         s.Header,
		Columns:        s.Columns,
		Dimensions:     s.Dimensions,
		Measures:       s.Measures,
		Ranges:         s.Ranges,
		Selector:       s.Selector,
		TokenAccount:   s.TokenAccount,
		TimeoutSeconds: int(s.Timeout / time.Second),
	}
}

// applyDefaults fills sections a config file left out. Whole generator
// columns are replaced, never merged, so a shortened domain keeps its
// coefficients in step.
func applyDefaults(cfg *Config) {
	d := Default()

	if cfg.App.Port == 0 {
		cfg.App.Port = d.App.Port
	}
	if cfg.App.Host == "" {
		cfg.App.Host = d.App.Host
	}
	if cfg.Session.IdleMinutes == 0 {
		cfg.Session.IdleMinutes = d.Session.IdleMinutes
	}
	if cfg.Session.MaxDatasets == 0 {
		cfg.Session.MaxDatasets = d.Session.MaxDatasets
	}
	if cfg.Dataset.DefaultRows == 0 {
		cfg.Dataset.DefaultRows = d.Dataset.DefaultRows
	}
	if cfg.Dataset.MaxRows == 0 {
		cfg.Dataset.MaxRows = d.Dataset.MaxRows
	}

	g, dg := &cfg.Generator, d.Generator
	for _, pair := range []struct{ have, def *ColumnConfig }{
		{&g.Roles, &dg.Roles},
		{&g.Countries, &dg.Countries},
		{&g.WorkModes, &dg.WorkModes},
		{&g.Educations, &dg.Educations},
		{&g.CompanySizes, &dg.CompanySizes},
	} {
		if len(pair.have.Values) == 0 && len(pair.have.Coefficients) == 0 {
			*pair.have = *pair.def
		}
	}
	if g.Experience == (RangeConfig{}) {
		g.Experience = dg.Experience
	}
	if g.SkillScore == (RangeConfig{}) {
		g.SkillScore = dg.SkillScore
	}
	if g.ExperienceWeight == 0 && g.SkillWeight == 0 && g.NoiseStdDev == 0 {
		g.ExperienceWeight, g.SkillWeight, g.NoiseStdDev = dg.ExperienceWeight, dg.SkillWeight, dg.NoiseStdDev
	}

	if cfg.Fetch.RequestsPerSecond == 0 {
		cfg.Fetch.RequestsPerSecond = d.Fetch.RequestsPerSecond
	}
	if cfg.Fetch.Burst == 0 {
		cfg.Fetch.Burst = d.Fetch.Burst
	}
	if cfg.Fetch.TimeoutSeconds == 0 {
		cfg.Fetch.TimeoutSeconds = d.Fetch.TimeoutSeconds
	}
	if cfg.Sources == nil {
		cfg.Sources = d.Sources
	}
	if cfg.Boards == nil {
		cfg.Boards = d.Boards
	}
	if cfg.History.RetentionDays == 0 {
		cfg.History.RetentionDays = d.History.RetentionDays
	}
	if cfg.History.CleanupMinutes == 0 {
		cfg.History.CleanupMinutes = d.History.CleanupMinutes
	}
}
