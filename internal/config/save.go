package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"jobmarket-engine/internal/model"
)

func Validate(cfg Config) error {
	errs := validationErrors(cfg)
	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

func validationErrors(cfg Config) []string {
	var errs []string

	if cfg.App.Port <= 0 || cfg.App.Port > 65535 {
		errs = append(errs, "app.port must be 1..65535")
	}
	if cfg.Session.IdleMinutes <= 0 {
		errs = append(errs, "session.idle_minutes must be > 0")
	}
	if cfg.Session.MaxDatasets <= 0 {
		errs = append(errs, "session.max_datasets must be > 0")
	}
	if cfg.Dataset.MaxRows <= 0 {
		errs = append(errs, "dataset.max_rows must be > 0")
	}
	if cfg.Dataset.DefaultRows <= 0 || cfg.Dataset.DefaultRows > cfg.Dataset.MaxRows {
		errs = append(errs, "dataset.default_rows must be 1..dataset.max_rows")
	}
	if cfg.Fetch.RequestsPerSecond <= 0 {
		errs = append(errs, "fetch.requests_per_second must be > 0")
	}
	if cfg.Fetch.TimeoutSeconds <= 0 {
		errs = append(errs, "fetch.timeout_seconds must be > 0")
	}
	if cfg.History.RetentionDays <= 0 {
		errs = append(errs, "history.retention_days must be > 0")
	}

	sm := cfg.SalaryModel()
	if err := sm.Validate(); err != nil {
		for _, line := range strings.Split(err.Error(), "\n- ")[1:] {
			errs = append(errs, "generator."+line)
		}
	}

	sources := map[string]bool{}
	for i, sc := range cfg.Sources {
		if sources[sc.Name] {
			errs = append(errs, fmt.Sprintf("sources[%d]: duplicate name %q", i, sc.Name))
		}
		sources[sc.Name] = true
		if sc.Name == SourceGenerator {
			errs = append(errs, fmt.Sprintf("sources[%d]: name %q is reserved", i, sc.Name))
		}
		if err := cfg.Source(sc).Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("sources[%d]: %v", i, err))
		}
	}

	boards := map[string]bool{}
	for i, b := range cfg.Boards {
		at := fmt.Sprintf("boards[%d]", i)
		if strings.TrimSpace(b.Name) == "" {
			errs = append(errs, at+".name is required")
		}
		if boards[b.Name] {
			errs = append(errs, fmt.Sprintf("%s: duplicate name %q", at, b.Name))
		}
		boards[b.Name] = true
		if b.Source != SourceGenerator && !sources[b.Source] {
			errs = append(errs, fmt.Sprintf("%s.source %q is not %q or a configured source", at, b.Source, SourceGenerator))
		}
		if strings.TrimSpace(b.Target) == "" {
			errs = append(errs, at+".target is required")
		}
		switch b.Model.Kind {
		case "":
		case model.KindLinear, model.KindForestRegressor, model.KindForestClassifier:
			if len(b.Model.Features) == 0 {
				errs = append(errs, at+".model.features must have at least 1 column")
			}
			for _, f := range b.Model.Features {
				if f == b.Target {
					errs = append(errs, fmt.Sprintf("%s.model.features contains the target %q", at, f))
				}
			}
		default:
			errs = append(errs, fmt.Sprintf("%s.model.kind %q is not linear, forest_regressor or forest_classifier", at, b.Model.Kind))
		}
		errs = append(errs, boardColumnErrors(cfg, at, b)...)
	}
	return errs
}

// boardColumnErrors checks a board's columns against what its source
// provides: dimensions exist, the target suits the model kind and every
// feature is a measure.
func boardColumnErrors(cfg Config, at string, b BoardConfig) []string {
	srcDims, measures, ok := cfg.BoardColumns(BoardConfig{Source: b.Source})
	if !ok {
		return nil
	}
	var errs []string
	for _, d := range b.Dimensions {
		if !slices.Contains(srcDims, d) {
			errs = append(errs, fmt.Sprintf("%s.dimensions: %q is not a dimension of %s", at, d, b.Source))
		}
	}

	isDim, isMeasure := slices.Contains(srcDims, b.Target), slices.Contains(measures, b.Target)
	switch {
	case b.Target == "":
	case b.Model.Kind == model.KindForestClassifier && !isDim:
		errs = append(errs, fmt.Sprintf("%s.target %q must be a dimension of %s to classify it", at, b.Target, b.Source))
	case (b.Model.Kind == model.KindLinear || b.Model.Kind == model.KindForestRegressor) && !isMeasure:
		errs = append(errs, fmt.Sprintf("%s.target %q must be a measure of %s for %s", at, b.Target, b.Source, b.Model.Kind))
	case !isDim && !isMeasure:
		errs = append(errs, fmt.Sprintf("%s.target %q is not a column of %s", at, b.Target, b.Source))
	}

	for _, f := range b.Model.Features {
		if f != b.Target && !slices.Contains(measures, f) {
			errs = append(errs, fmt.Sprintf("%s.model.features: %q is not a measure of %s", at, f, b.Source))
		}
	}
	return errs
}

func SaveAtomic(path string, cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	bak := path + ".bak"

	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}

	_ = os.Remove(bak)
	_ = os.Rename(path, bak)

	return os.Rename(tmp, path)
}
