package config

import (
	"fmt"
	"strings"

	"jobmarket-engine/internal/model"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a trimmed, de-duplicated copy of cfg with
// its errors and warnings.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" || seen[x] {
				continue
			}
			seen[x] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Sources = append([]SourceConfig(nil), cfg.Sources...)
	for i := range out.Sources {
		s := &out.Sources[i]
		s.Name = strings.TrimSpace(s.Name)
		s.URL = strings.TrimSpace(s.URL)
		s.Format = strings.ToLower(strings.TrimSpace(s.Format))
		s.Dimensions = trimList(s.Dimensions)
		s.Measures = trimList(s.Measures)
		s.Ranges = trimList(s.Ranges)
	}
	out.Boards = append([]BoardConfig(nil), cfg.Boards...)
	for i := range out.Boards {
		b := &out.Boards[i]
		b.Name = strings.TrimSpace(b.Name)
		b.Dimensions = trimList(b.Dimensions)
		b.Model.Kind = strings.ToLower(strings.TrimSpace(b.Model.Kind))
		b.Model.Features = trimList(b.Model.Features)
	}

	for _, e := range validationErrors(out) {
		res.addErr("%s", e)
	}

	if out.Generator.NoiseStdDev == 0 {
		res.addWarn("generator.noise_stddev is 0; salaries will be an exact linear function of the inputs.")
	}
	if out.Dataset.MaxRows > 1_000_000 {
		res.addWarn("dataset.max_rows is %d; large tables are held in memory per session.", out.Dataset.MaxRows)
	}
	if out.Fetch.RequestsPerSecond > 20 {
		res.addWarn("fetch.requests_per_second is high (%.0f) and may get sources rate limited.", out.Fetch.RequestsPerSecond)
	}
	for _, b := range out.Boards {
		switch {
		case b.Model.Kind == "":
			res.addWarn("board %q has no model; predictions are disabled.", b.Name)
		case b.Model.Kind != model.KindLinear && b.Model.Trees > 500:
			res.addWarn("board %q trains %d trees; predictions may be slow to warm up.", b.Name, b.Model.Trees)
		}
		if b.Model.TrainOnFiltered {
			res.addWarn("board %q trains on the filtered selection; the model refits whenever filters change.", b.Name)
		}
	}
	if len(out.Boards) == 0 {
		res.addWarn("no boards configured; the dashboard will be empty.")
	}

	return out, res
}
