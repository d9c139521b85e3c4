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

type TaskController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Engine *gamification.Engine
}

func NewTaskController(db *gorm.DB, cfg *config.Config) *TaskController {
	return &TaskController{DB: db, Cfg: cfg, Engine: gamification.NewEngine(db)}
}

// GetTasks godoc
// @Summary List tasks
// @Description Returns all tasks of the authenticated user, newest first
// @Tags tasks
// @Produce json
// @Success 200 {array} models.Task
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /tasks [get]
func (tc *TaskController) GetTasks(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var tasks []models.Task
	if err := tc.DB.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return utils.InternalServerError(c, "Could not query tasks")
	}

	return c.JSON(tasks)
}

// CreateTask godoc
// @Summary Create task
// @Description Adds a task, optionally linked to a roadmap
// @Tags tasks
// @Accept json
// @Produce json
// @Param input body map[string]interface{} true "Task data"
// @Success 200 {object} models.Task
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /tasks [post]
func (tc *TaskController) CreateTask(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		Text      string `json:"text"`
		RoadmapID *uint  `json:"roadmapId"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Text == "" {
		return utils.BadRequest(c, "Text is required")
	}

	task := models.Task{
		UserID:    userID,
		RoadmapID: input.RoadmapID,
		Text:      input.Text,
	}
	if err := tc.DB.Create(&task).Error; err != nil {
		return utils.InternalServerError(c, "Could not create task")
	}

	return c.JSON(task)
}

// ToggleTask godoc
// @Summary Toggle task
// @Description Flips a task's completion flag and applies XP, streak and badge rules
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /tasks/{id} [put]
func (tc *TaskController) ToggleTask(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	// Проверки владения идут до любых изменений
	task, status, err := tc.findOwnedTask(c.Params("id"), userID)
	if err != nil {
		return utils.Error(c, status, err)
	}

	task.IsCompleted = !task.IsCompleted
	if err := tc.DB.Save(task).Error; err != nil {
		return utils.InternalServerError(c, "Could not update task")
	}

	var user models.User
	if err := tc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	tc.Engine.ApplyTaskCompletion(&user, task.IsCompleted)
	if err := tc.DB.Save(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not update user stats")
	}

	newBadge, err := tc.Engine.CheckBadges(&user)
	if err != nil {
		return utils.InternalServerError(c, "Could not evaluate badges")
	}

	return c.JSON(fiber.Map{
		"task":       task,
		"userXp":     user.XP,
		"userLevel":  user.Level,
		"userStreak": user.Streak,
		"newBadge":   newBadge,
	})
}

// DeleteTask godoc
// @Summary Delete task
// @Description Deletes a task owned by the authenticated user
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /tasks/{id} [delete]
func (tc *TaskController) DeleteTask(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, tc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	task, status, err := tc.findOwnedTask(c.Params("id"), userID)
	if err != nil {
		return utils.Error(c, status, err)
	}

	if err := tc.DB.Delete(task).Error; err != nil {
		return utils.InternalServerError(c, "Could not delete task")
	}

	return c.JSON(fiber.Map{"msg": "Task removed"})
}

func (tc *TaskController) findOwnedTask(idParam string, userID uint) (*models.Task, int, error) {
	id, err := strconv.Atoi(idParam)
	if err != nil {
		return nil, fiber.StatusNotFound, errors.New("Task not found")
	}

	var task models.Task
	if err := tc.DB.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.StatusNotFound, errors.New("Task not found")
		}
		return nil, fiber.StatusInternalServerError, errors.New("Could not query database")
	}

	if task.UserID != userID {
		return nil, fiber.StatusUnauthorized, errors.New("Not authorized")
	}

	return &task, fiber.StatusOK, nil
}
