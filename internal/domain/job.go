package domain

import "jobmarket-engine/internal/frame"

// Column keys of a generated job table.
const (
	ColRole        = "role"
	ColCountry     = "country"
	ColWorkMode    = "work_mode"
	ColEducation   = "education"
	ColCompanySize = "company_size"
	ColExperience  = "experience"
	ColSkillScore  = "skill_score"
	ColSalary      = "salary"
)

// CategoricalColumns lists the categorical columns in sampling order.
var CategoricalColumns = []string{ColRole, ColCountry, ColWorkMode, ColEducation, ColCompanySize}

// JobRecord is one row of the synthetic job market table.
type JobRecord struct {
	Role        string  `json:"role"`
	Country     string  `json:"country"`
	Experience  int     `json:"experience"`
	SkillScore  int     `json:"skill_score"`
	WorkMode    string  `json:"work_mode"`
	Education   string  `json:"education"`
	CompanySize string  `json:"company_size"`
	Salary      float64 `json:"salary"`
}

// Category returns the value of a categorical column by key.
func (j JobRecord) Category(col string) string {
	switch col {
	case ColRole:
		return j.Role
	case ColCountry:
		return j.Country
	case ColWorkMode:
		return j.WorkMode
	case ColEducation:
		return j.Education
	case ColCompanySize:
		return j.CompanySize
	}
	return ""
}

// Jobs is an immutable generated table.
type Jobs []JobRecord

var jobAdapter = frame.NewAdapter[JobRecord]().
	Dimension(ColRole, func(j JobRecord) string { return j.Role }).
	Dimension(ColCountry, func(j JobRecord) string { return j.Country }).
	Dimension(ColWorkMode, func(j JobRecord) string { return j.WorkMode }).
	Dimension(ColEducation, func(j JobRecord) string { return j.Education }).
	Dimension(ColCompanySize, func(j JobRecord) string { return j.CompanySize }).
	Measure(ColExperience, func(j JobRecord) float64 { return float64(j.Experience) }).
	Measure(ColSkillScore, func(j JobRecord) float64 { return float64(j.SkillScore) }).
	Measure(ColSalary, func(j JobRecord) float64 { return j.Salary })

// View exposes the table to the frame operations.
func (js Jobs) View() frame.View {
	return jobAdapter.Bind(js)
}
