package controllers

import (
	"errors"
	"fmt"
	"log"

	"project/backend/ai"
	"project/backend/config"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AIController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Provider ai.Provider
	Roadmaps *ai.RoadmapGenerator
	Tasks    *ai.TaskGenerator
}

func NewAIController(db *gorm.DB, cfg *config.Config, provider ai.Provider, logger *log.Logger) *AIController {
	return &AIController{
		DB:       db,
		Cfg:      cfg,
		Provider: provider,
		Roadmaps: ai.NewRoadmapGenerator(db, provider),
		Tasks:    ai.NewTaskGenerator(db, provider, logger),
	}
}

// GenerateRoadmap godoc
// @Summary Generate roadmap
// @Description Generates and saves a learning roadmap for a target role
// @Tags ai
// @Accept json
// @Produce json
// @Param input body map[string]interface{} true "Target role, duration, hours per week"
// @Success 200 {object} models.Roadmap
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /ai/generate [post]
func (ac *AIController) GenerateRoadmap(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		Role     string  `json:"role"`
		Duration string  `json:"duration"`
		Hours    float64 `json:"hours"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	roadmap, err := ac.Roadmaps.Generate(c.Context(), userID, input.Role, input.Duration, input.Hours)
	if err != nil {
		if errors.Is(err, ai.ErrInvalidInput) {
			return utils.BadRequest(c, "Role and hours are required")
		}
		// Генерация повторяемая, ничего не сохранено - пусть клиент попробует снова
		return utils.InternalServerError(c, "Failed to generate roadmap")
	}

	return c.JSON(roadmap)
}

// SuggestTasks godoc
// @Summary Suggest daily tasks
// @Description Generates one daily task per selected roadmap; degrades to fallback tasks on AI failure
// @Tags ai
// @Accept json
// @Produce json
// @Param input body map[string]interface{} true "Roadmap IDs"
// @Success 200 {array} models.Task
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /ai/suggest-tasks [post]
func (ac *AIController) SuggestTasks(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		RoadmapIDs []uint `json:"roadmapIds"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	tasks, err := ac.Tasks.Suggest(c.Context(), userID, input.RoadmapIDs)
	if err != nil {
		if errors.Is(err, ai.ErrInvalidInput) {
			return utils.BadRequest(c, "No roadmap selected")
		}
		if errors.Is(err, ai.ErrNotFound) {
			return utils.NotFound(c, "Roadmaps not found")
		}
		return utils.InternalServerError(c, "Could not save tasks")
	}

	return c.JSON(tasks)
}

// Help godoc
// @Summary AI tutor
// @Description Returns a short mentoring guide for a task the user is stuck on
// @Tags ai
// @Accept json
// @Produce json
// @Param input body map[string]interface{} true "Task text and learning context"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /ai/help [post]
func (ac *AIController) Help(c *fiber.Ctx) error {
	if _, err := utils.ExtractUserIDFromToken(c, ac.Cfg); err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		TaskText string `json:"taskText"`
		Context  string `json:"context"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.TaskText == "" {
		return utils.BadRequest(c, "Task text is required")
	}

	learning := input.Context
	if learning == "" {
		learning = "Software Development"
	}

	prompt := fmt.Sprintf(`
You are a Senior Coding Mentor. The student is stuck on this task:
"%s"

Context: They are learning %s.

Provide a helpful, concise guide.
1. Explain the "Why" briefly.
2. Provide a code snippet or command if applicable.
3. Give a "Pro Tip".

Keep it under 200 words. Use Markdown formatting.
`, input.TaskText, learning)

	advice, err := ac.Provider.GenerateText(c.Context(), prompt)
	if err != nil {
		return utils.InternalServerError(c, "AI is currently offline")
	}

	return c.JSON(fiber.Map{"advice": advice})
}
