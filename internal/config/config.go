// engine/internal/config/config.go
package config

import (
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"jobmarket-engine/internal/domain"
	"jobmarket-engine/internal/generate"
	"jobmarket-engine/internal/ingest"
	"jobmarket-engine/internal/model"
)

// SourceGenerator is the board source name of the synthetic dataset.
const SourceGenerator = "generator"

type ColumnConfig struct {
	Values       []string           `yaml:"values" json:"values"`
	Coefficients map[string]float64 `yaml:"coefficients" json:"coefficients"`
}

type RangeConfig struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

type GeneratorConfig struct {
	Roles        ColumnConfig `yaml:"roles" json:"roles"`
	Countries    ColumnConfig `yaml:"countries" json:"countries"`
	WorkModes    ColumnConfig `yaml:"work_modes" json:"work_modes"`
	Educations   ColumnConfig `yaml:"educations" json:"educations"`
	CompanySizes ColumnConfig `yaml:"company_sizes" json:"company_sizes"`

	Experience RangeConfig `yaml:"experience" json:"experience"`
	SkillScore RangeConfig `yaml:"skill_score" json:"skill_score"`

	ExperienceWeight float64 `yaml:"experience_weight" json:"experience_weight"`
	SkillWeight      float64 `yaml:"skill_weight" json:"skill_weight"`
	NoiseStdDev      float64 `yaml:"noise_stddev" json:"noise_stddev"`
}

type SourceConfig struct {
	Name           string   `yaml:"name" json:"name"`
	URL            string   `yaml:"url" json:"url"`
	Format         string   `yaml:"format" json:"format"`
	Header         bool     `yaml:"header" json:"header"`
	Columns        []string `yaml:"columns,omitempty" json:"columns,omitempty"`
	Dimensions     []string `yaml:"dimensions" json:"dimensions"`
	Measures       []string `yaml:"measures" json:"measures"`
	Ranges         []string `yaml:"ranges,omitempty" json:"ranges,omitempty"`
	Selector       string   `yaml:"selector,omitempty" json:"selector,omitempty"`
	TokenAccount   string   `yaml:"token_account,omitempty" json:"token_account,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`

	// Optional per-source pacing; zero uses fetch.requests_per_second.
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty" json:"requests_per_second,omitempty"`
	Burst             int     `yaml:"burst,omitempty" json:"burst,omitempty"`
}

type ModelConfig struct {
	Kind            string   `yaml:"kind" json:"kind"`
	Features        []string `yaml:"features" json:"features"`
	Trees           int      `yaml:"trees,omitempty" json:"trees,omitempty"`
	MaxDepth        int      `yaml:"max_depth,omitempty" json:"max_depth,omitempty"`
	Seed            uint64   `yaml:"seed,omitempty" json:"seed,omitempty"`
	TrainOnFiltered bool     `yaml:"train_on_filtered" json:"train_on_filtered"`
}

type BoardConfig struct {
	Name  string `yaml:"name" json:"name"`
	Title string `yaml:"title" json:"title"`
	// Source is "generator" or the name of an entry in sources.
	Source     string      `yaml:"source" json:"source"`
	Dimensions []string    `yaml:"dimensions,omitempty" json:"dimensions,omitempty"`
	Target     string      `yaml:"target" json:"target"`
	Model      ModelConfig `yaml:"model" json:"model"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port" json:"port"`
		Host    string `yaml:"host" json:"host"`
		DataDir string `yaml:"data_dir" json:"data_dir"`
	} `yaml:"app" json:"app"`

	Session struct {
		IdleMinutes int `yaml:"idle_minutes" json:"idle_minutes"`
		MaxDatasets int `yaml:"max_datasets" json:"max_datasets"`
	} `yaml:"session" json:"session"`

	Dataset struct {
		DefaultRows int   `yaml:"default_rows" json:"default_rows"`
		MaxRows     int   `yaml:"max_rows" json:"max_rows"`
		DefaultSeed int64 `yaml:"default_seed" json:"default_seed"`
	} `yaml:"dataset" json:"dataset"`

	Generator GeneratorConfig `yaml:"generator" json:"generator"`

	Fetch struct {
		RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
		Burst             int     `yaml:"burst" json:"burst"`
		TimeoutSeconds    int     `yaml:"timeout_seconds" json:"timeout_seconds"`
	} `yaml:"fetch" json:"fetch"`

	Sources []SourceConfig `yaml:"sources" json:"sources"`
	Boards  []BoardConfig  `yaml:"boards" json:"boards"`

	History struct {
		RetentionDays  int `yaml:"retention_days" json:"retention_days"`
		CleanupMinutes int `yaml:"cleanup_minutes" json:"cleanup_minutes"`
	} `yaml:"history" json:"history"`
}

// Load reads path and fills every section the file leaves out from Default.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return Default(), err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Default(), err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// SalaryModel converts the generator section.
func (c Config) SalaryModel() generate.Model {
	g := c.Generator
	col := func(name string, cc ColumnConfig) generate.Column {
		return generate.Column{Name: name, Domain: cc.Values, Coef: generate.CoefficientTable(cc.Coefficients)}
	}
	return generate.Model{
		Role:             col(domain.ColRole, g.Roles),
		Country:          col(domain.ColCountry, g.Countries),
		WorkMode:         col(domain.ColWorkMode, g.WorkModes),
		Education:        col(domain.ColEducation, g.Educations),
		CompanySize:      col(domain.ColCompanySize, g.CompanySizes),
		Experience:       generate.IntRange{Min: g.Experience.Min, Max: g.Experience.Max},
		SkillScore:       generate.IntRange{Min: g.SkillScore.Min, Max: g.SkillScore.Max},
		ExperienceWeight: g.ExperienceWeight,
		SkillWeight:      g.SkillWeight,
		NoiseStdDev:      g.NoiseStdDev,
	}
}

// Source converts a source entry. A zero timeout falls back to fetch.timeout_seconds.
func (c Config) Source(sc SourceConfig) ingest.Source {
	secs := sc.TimeoutSeconds
	if secs <= 0 {
		secs = c.Fetch.TimeoutSeconds
	}
	var r *ingest.Rate
	if sc.RequestsPerSecond != 0 || sc.Burst != 0 {
		r = &ingest.Rate{PerSecond: sc.RequestsPerSecond, Burst: sc.Burst}
		if r.PerSecond == 0 {
			r.PerSecond = c.Fetch.RequestsPerSecond
		}
	}
	return ingest.Source{
		Name:         sc.Name,
		URL:          sc.URL,
		Format:       sc.Format,
		Header:       sc.Header,
		Columns:      sc.Columns,
		Dimensions:   sc.Dimensions,
		Measures:     sc.Measures,
		Ranges:       sc.Ranges,
		Selector:     sc.Selector,
		TokenAccount: sc.TokenAccount,
		Timeout:      time.Duration(secs) * time.Second,
		Rate:         r,
	}
}

// FetchRate is the default per-host pacing for sources.
func (c Config) FetchRate() ingest.Rate {
	return ingest.Rate{PerSecond: c.Fetch.RequestsPerSecond, Burst: c.Fetch.Burst}
}

// FindSource returns the source entry with the given name.
func (c Config) FindSource(name string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// BoardColumns resolves the dimensions and measures a board exposes. A
// board's own dimension list narrows its source's, and a classifier's target
// is always kept as a dimension. ok is false when the source is unknown.
func (c Config) BoardColumns(b BoardConfig) (dims, measures []string, ok bool) {
	if b.Source == SourceGenerator {
		dims = append([]string(nil), domain.CategoricalColumns...)
		measures = []string{domain.ColExperience, domain.ColSkillScore, domain.ColSalary}
	} else if sc, found := c.FindSource(b.Source); found {
		src := c.Source(sc)
		dims = append([]string(nil), src.Dimensions...)
		measures = src.MeasureKeys()
	} else {
		return nil, nil, false
	}
	if len(b.Dimensions) > 0 {
		dims = append([]string(nil), b.Dimensions...)
		if b.Model.Kind == model.KindForestClassifier && !slices.Contains(dims, b.Target) {
			dims = append(dims, b.Target)
		}
	}
	return dims, measures, true
}
