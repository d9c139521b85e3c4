package controllers

import (
	"errors"
	"strconv"

	"project/backend/config"
	"project/backend/gamification"
	"project/backend/models"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type RoadmapController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Engine *gamification.Engine
}

func NewRoadmapController(db *gorm.DB, cfg *config.Config) *RoadmapController {
	return &RoadmapController{DB: db, Cfg: cfg, Engine: gamification.NewEngine(db)}
}

// GetRoadmaps godoc
// @Summary List roadmaps
// @Description Returns all roadmaps of the authenticated user, newest first
// @Tags roadmaps
// @Produce json
// @Success 200 {array} models.Roadmap
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /roadmaps [get]
func (rc *RoadmapController) GetRoadmaps(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, rc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var roadmaps []models.Roadmap
	if err := rc.DB.
		Preload("Steps", stepOrder).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&roadmaps).Error; err != nil {
		return utils.InternalServerError(c, "Could not query roadmaps")
	}

	return c.JSON(roadmaps)
}

// GetRoadmap godoc
// @Summary Get roadmap
// @Description Returns a single roadmap owned by the authenticated user
// @Tags roadmaps
// @Produce json
// @Param id path int true "Roadmap ID"
// @Success 200 {object} models.Roadmap
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /roadmaps/{id} [get]
func (rc *RoadmapController) GetRoadmap(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, rc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	roadmap, status, err := rc.findOwnedRoadmap(c.Params("id"), userID)
	if err != nil {
		return utils.Error(c, status, err)
	}

	return c.JSON(roadmap)
}

// CreateRoadmap godoc
// @Summary Create roadmap
// @Description Creates a roadmap manually (usually the AI route is used instead)
// @Tags roadmaps
// @Accept json
// @Produce json
// @Param input body map[string]interface{} true "Roadmap data"
// @Success 200 {object} models.Roadmap
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /roadmaps [post]
func (rc *RoadmapController) CreateRoadmap(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, rc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		Title       string  `json:"title"`
		Summary     string  `json:"summary"`
		SalaryRange string  `json:"salary_range"`
		GrowthScore float64 `json:"growth_score"`
		Steps       []struct {
			Title       string   `json:"title"`
			Description string   `json:"description"`
			Duration    string   `json:"duration"`
			Resources   []string `json:"resources"`
		} `json:"steps"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Title == "" {
		return utils.BadRequest(c, "Title is required")
	}

	roadmap := models.Roadmap{
		UserID:      userID,
		Title:       input.Title,
		Summary:     input.Summary,
		SalaryRange: input.SalaryRange,
		GrowthScore: input.GrowthScore,
	}
	// Порядок этапов фиксируется при создании
	for i, step := range input.Steps {
		roadmap.Steps = append(roadmap.Steps, models.Step{
			StepNumber:  i + 1,
			Title:       step.Title,
			Description: step.Description,
			Duration:    step.Duration,
			Resources:   step.Resources,
		})
	}

	if err := rc.DB.Create(&roadmap).Error; err != nil {
		return utils.InternalServerError(c, "Could not create roadmap")
	}

	return c.JSON(roadmap)
}

// ToggleStep godoc
// @Summary Toggle roadmap step
// @Description Flips a step's completion flag and applies XP, level and badge rules
// @Tags roadmaps
// @Produce json
// @Param id path int true "Roadmap ID"
// @Param index path int true "Step index (zero-based)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /roadmaps/{id}/step/{index} [put]
func (rc *RoadmapController) ToggleStep(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, rc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	// Проверки владения и индекса идут до любых изменений
	roadmap, status, err := rc.findOwnedRoadmap(c.Params("id"), userID)
	if err != nil {
		return utils.Error(c, status, err)
	}

	index, err := strconv.Atoi(c.Params("index"))
	if err != nil || index < 0 || index >= len(roadmap.Steps) {
		return utils.BadRequest(c, "Invalid step index")
	}

	step := &roadmap.Steps[index]
	step.Completed = !step.Completed
	if err := rc.DB.Save(step).Error; err != nil {
		return utils.InternalServerError(c, "Could not update step")
	}

	var user models.User
	if err := rc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	rc.Engine.ApplyStepCompletion(&user, step.Completed)
	if err := rc.DB.Save(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not update user stats")
	}

	newBadge, err := rc.Engine.CheckBadges(&user)
	if err != nil {
		return utils.InternalServerError(c, "Could not evaluate badges")
	}

	return c.JSON(fiber.Map{
		"roadmap":   roadmap,
		"userXp":    user.XP,
		"userLevel": user.Level,
		"newBadge":  newBadge,
	})
}

// DeleteRoadmap godoc
// @Summary Delete roadmap
// @Description Deletes a roadmap with its steps
// @Tags roadmaps
// @Produce json
// @Param id path int true "Roadmap ID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /roadmaps/{id} [delete]
func (rc *RoadmapController) DeleteRoadmap(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, rc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	roadmap, status, err := rc.findOwnedRoadmap(c.Params("id"), userID)
	if err != nil {
		return utils.Error(c, status, err)
	}

	if err := rc.DB.Where("roadmap_id = ?", roadmap.ID).Delete(&models.Step{}).Error; err != nil {
		return utils.InternalServerError(c, "Could not delete roadmap")
	}
	if err := rc.DB.Delete(&models.Roadmap{}, roadmap.ID).Error; err != nil {
		return utils.InternalServerError(c, "Could not delete roadmap")
	}

	return c.JSON(fiber.Map{"msg": "Roadmap removed"})
}

// findOwnedRoadmap грузит роадмап с этапами и проверяет владельца.
// Чужой роадмап отдаем как 401, несуществующий - как 404.
func (rc *RoadmapController) findOwnedRoadmap(idParam string, userID uint) (*models.Roadmap, int, error) {
	id, err := strconv.Atoi(idParam)
	if err != nil {
		return nil, fiber.StatusNotFound, errors.New("Roadmap not found")
	}

	var roadmap models.Roadmap
	if err := rc.DB.Preload("Steps", stepOrder).First(&roadmap, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.StatusNotFound, errors.New("Roadmap not found")
		}
		return nil, fiber.StatusInternalServerError, errors.New("Could not query database")
	}

	if roadmap.UserID != userID {
		return nil, fiber.StatusUnauthorized, errors.New("Not authorized")
	}

	return &roadmap, fiber.StatusOK, nil
}

func stepOrder(db *gorm.DB) *gorm.DB {
	return db.Order("step_number ASC")
}
