package generate

import (
	"errors"
	"fmt"
	"strings"

	"jobmarket-engine/internal/domain"
)

// ErrInvalidModel is returned when a salary model fails validation.
var ErrInvalidModel = errors.New("invalid salary model")

// CoefficientTable maps each categorical value to its salary contribution.
type CoefficientTable map[string]float64

// Column is one categorical column: its domain in sampling order and the
// coefficient of every domain value.
type Column struct {
	Name   string
	Domain []string
	Coef   CoefficientTable
}

// IntRange is a half-open integer interval [Min, Max).
type IntRange struct {
	Min int
	Max int
}

func (r IntRange) Contains(v int) bool { return v >= r.Min && v < r.Max }

// Model is the linear salary model over categorical lookups and two
// continuous inputs.
type Model struct {
	Role        Column
	Country     Column
	WorkMode    Column
	Education   Column
	CompanySize Column

	Experience IntRange
	SkillScore IntRange

	ExperienceWeight float64
	SkillWeight      float64
	NoiseStdDev      float64
}

// Columns returns the categorical columns in sampling order.
func (m *Model) Columns() []*Column {
	return []*Column{&m.Role, &m.Country, &m.WorkMode, &m.Education, &m.CompanySize}
}

// Column returns the categorical column with the given key.
func (m *Model) Column(name string) (*Column, bool) {
	for _, c := range m.Columns() {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Validate checks that every domain value has exactly one coefficient and
// that no coefficient is orphaned. All problems are reported at once.
func (m *Model) Validate() error {
	var errs []string

	for i, c := range m.Columns() {
		want := domain.CategoricalColumns[i]
		if c.Name != want {
			errs = append(errs, fmt.Sprintf("column %d is %q, want %q", i, c.Name, want))
		}
		if len(c.Domain) == 0 {
			errs = append(errs, fmt.Sprintf("%s: domain is empty", c.Name))
		}
		seen := make(map[string]bool, len(c.Domain))
		for _, v := range c.Domain {
			if strings.TrimSpace(v) == "" {
				errs = append(errs, fmt.Sprintf("%s: empty domain value", c.Name))
				continue
			}
			if seen[v] {
				errs = append(errs, fmt.Sprintf("%s: duplicate domain value %q", c.Name, v))
			}
			seen[v] = true
			if _, ok := c.Coef[v]; !ok {
				errs = append(errs, fmt.Sprintf("%s: no coefficient for %q", c.Name, v))
			}
		}
		for k := range c.Coef {
			if !seen[k] {
				errs = append(errs, fmt.Sprintf("%s: coefficient %q is not in the domain", c.Name, k))
			}
		}
	}

	if m.Experience.Max <= m.Experience.Min {
		errs = append(errs, fmt.Sprintf("experience range [%d,%d) is empty", m.Experience.Min, m.Experience.Max))
	}
	if m.SkillScore.Max <= m.SkillScore.Min {
		errs = append(errs, fmt.Sprintf("skill_score range [%d,%d) is empty", m.SkillScore.Min, m.SkillScore.Max))
	}
	if m.NoiseStdDev < 0 {
		errs = append(errs, "noise stddev must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n- %s", ErrInvalidModel, strings.Join(errs, "\n- "))
	}
	return nil
}

// Deterministic returns the salary of r without the noise term.
// The model must be valid.
func (m *Model) Deterministic(r domain.JobRecord) float64 {
	s := m.Role.Coef[r.Role] +
		m.Country.Coef[r.Country] +
		m.WorkMode.Coef[r.WorkMode] +
		m.Education.Coef[r.Education] +
		m.CompanySize.Coef[r.CompanySize]
	s += m.ExperienceWeight * float64(r.Experience)
	s += m.SkillWeight * float64(r.SkillScore)
	return s
}

// DefaultModel returns the built-in job market model.
func DefaultModel() Model {
	return Model{
		Role: Column{
			Name:   domain.ColRole,
			Domain: []string{"Data Scientist", "Data Analyst", "ML Engineer", "Software Engineer", "Data Engineer", "Business Analyst"},
			Coef: CoefficientTable{
				"Data Scientist":    95,
				"Data Analyst":      65,
				"ML Engineer":       110,
				"Software Engineer": 100,
				"Data Engineer":     98,
				"Business Analyst":  60,
			},
		},
		Country: Column{
			Name:   domain.ColCountry,
			Domain: []string{"USA", "UK", "Germany", "Canada", "India", "Australia"},
			Coef: CoefficientTable{
				"USA":       20,
				"UK":        10,
				"Germany":   8,
				"Canada":    9,
				"India":     -25,
				"Australia": 7,
			},
		},
		WorkMode: Column{
			Name:   domain.ColWorkMode,
			Domain: []string{"Remote", "Hybrid", "On-site"},
			Coef:   CoefficientTable{"Remote": 5, "Hybrid": 2, "On-site": 0},
		},
		Education: Column{
			Name:   domain.ColEducation,
			Domain: []string{"Bachelor", "Master", "PhD"},
			Coef:   CoefficientTable{"Bachelor": 0, "Master": 8, "PhD": 15},
		},
		CompanySize: Column{
			Name:   domain.ColCompanySize,
			Domain: []string{"Startup", "Mid-size", "Enterprise"},
			Coef:   CoefficientTable{"Startup": -5, "Mid-size": 0, "Enterprise": 10},
		},
		Experience:       IntRange{Min: 0, Max: 20},
		SkillScore:       IntRange{Min: 50, Max: 100},
		ExperienceWeight: 2,
		SkillWeight:      0.3,
		NoiseStdDev:      5,
	}
}
