package ai

import (
	"context"
	"fmt"
	"strings"

	"project/backend/models"

	"gorm.io/gorm"
)

// RoadmapGenerator превращает запрос "роль + срок + часы в неделю"
// в сохраненный роадмап. Один вызов провайдера на запрос, без ретраев:
// политика повторов - забота вызывающей стороны.
type RoadmapGenerator struct {
	DB       *gorm.DB
	Provider Provider
}

func NewRoadmapGenerator(db *gorm.DB, provider Provider) *RoadmapGenerator {
	return &RoadmapGenerator{DB: db, Provider: provider}
}

// Generate генерирует и сохраняет роадмап для пользователя.
// При любой ошибке генерации ничего не сохраняется.
func (g *RoadmapGenerator) Generate(ctx context.Context, userID uint, role, duration string, hours float64) (*models.Roadmap, error) {
	if strings.TrimSpace(role) == "" || hours <= 0 {
		return nil, ErrInvalidInput
	}

	prompt := buildRoadmapPrompt(role, duration, hours)

	raw, err := g.Provider.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, &GenerationError{Reason: "provider call failed", Err: err}
	}

	payload, err := ExtractRoadmap(raw)
	if err != nil {
		return nil, &GenerationError{Reason: "unparseable model output", Err: err}
	}

	if err := validateRoadmapPayload(payload); err != nil {
		return nil, &GenerationError{Reason: "model output failed validation", Err: err}
	}

	roadmap := &models.Roadmap{
		UserID:      userID,
		Title:       payload.Title,
		Summary:     payload.Summary,
		SalaryRange: payload.SalaryRange,
		GrowthScore: payload.GrowthScore,
	}
	for i, step := range payload.Steps {
		roadmap.Steps = append(roadmap.Steps, models.Step{
			StepNumber:  i + 1,
			Title:       step.Title,
			Description: step.Description,
			Duration:    step.Duration,
			Resources:   step.Resources,
		})
	}

	if err := g.DB.Create(roadmap).Error; err != nil {
		return nil, err
	}

	return roadmap, nil
}

func validateRoadmapPayload(payload *RoadmapPayload) error {
	if strings.TrimSpace(payload.Title) == "" {
		return fmt.Errorf("missing title")
	}
	if len(payload.Steps) == 0 {
		return fmt.Errorf("missing steps")
	}
	for i, step := range payload.Steps {
		if strings.TrimSpace(step.Title) == "" {
			return fmt.Errorf("step %d has no title", i+1)
		}
	}
	return nil
}

func buildRoadmapPrompt(role, duration string, hours float64) string {
	return fmt.Sprintf(`
Create a detailed learning roadmap for a "%s".
Duration: %s.
Time Commitment: %g hours/week.

Return a JSON object with this structure:
{
  "title": "%s Roadmap",
  "summary": "Brief overview...",
  "salary_range": "$X - $Y",
  "growth_score": 9,
  "steps": [
    {
      "title": "Phase 1: ...",
      "description": "...",
      "duration": "...",
      "resources": ["Topic A", "Topic B"]
    }
  ]
}
`, role, duration, hours, role)
}
