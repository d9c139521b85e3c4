package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Roadmap struct {
	gorm.Model
	UserID      uint    `gorm:"index;not null" json:"user_id"`
	Title       string  `gorm:"not null" json:"title"`
	Summary     string  `json:"summary"`
	SalaryRange string  `json:"salary_range"`
	GrowthScore float64 `json:"growth_score"`
	Steps       []Step  `gorm:"constraint:OnDelete:CASCADE" json:"steps"`
}

// Step - этап роадмапа. Порядок этапов фиксируется StepNumber при создании,
// после создания меняется только флаг Completed.
type Step struct {
	gorm.Model
	RoadmapID   uint                        `gorm:"index;not null" json:"roadmap_id"`
	StepNumber  int                         `gorm:"not null" json:"step_number"`
	Title       string                      `json:"title"`
	Description string                      `json:"description"`
	Duration    string                      `json:"duration"`
	Resources   datatypes.JSONSlice[string] `gorm:"type:json" json:"resources"`
	Completed   bool                        `gorm:"default:false" json:"completed"`
}

// CurrentStep возвращает первый незавершённый этап (текущий фокус)
func (r *Roadmap) CurrentStep() *Step {
	for i := range r.Steps {
		if !r.Steps[i].Completed {
			return &r.Steps[i]
		}
	}
	return nil
}
