package controllers

import (
	"project/backend/config"
	"project/backend/models"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewUserController(db *gorm.DB, cfg *config.Config) *UserController {
	return &UserController{DB: db, Cfg: cfg}
}

// GetProfile godoc
// @Summary Get user profile
// @Description Returns authenticated user's profile with progression data
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /users/profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, uc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	// Сводка по задачам для страницы профиля
	var tasksCompleted int64
	uc.DB.Model(&models.Task{}).
		Where("user_id = ? AND is_completed = ?", userID, true).
		Count(&tasksCompleted)

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"id":               user.ID,
		"name":             user.Name,
		"email":            user.Email,
		"xp":               user.XP,
		"level":            user.Level,
		"streak":           user.Streak,
		"last_active_date": user.LastActiveDate,
		"badges":           user.Badges,
		"tasks_completed":  tasksCompleted,
		"created_at":       user.CreatedAt,
	})
}

// UpdateProfile godoc
// @Summary Update user profile
// @Description Updates authenticated user's name and email
// @Tags users
// @Accept json
// @Produce json
// @Param input body map[string]interface{} true "Profile update data"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /users/profile [put]
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, uc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Email != "" && input.Email != user.Email {
		// Почта должна остаться уникальной
		var existing models.User
		if err := uc.DB.Where("email = ? AND id <> ?", input.Email, userID).First(&existing).Error; err == nil {
			return utils.BadRequest(c, "Email already in use")
		}
		user.Email = input.Email
	}

	if err := uc.DB.Save(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not update profile")
	}

	return c.JSON(user)
}

// ChangePassword godoc
// @Summary Change password
// @Description Verifies the current password and sets a new one
// @Tags users
// @Accept json
// @Produce json
// @Param input body map[string]interface{} true "Password change data"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /users/password [put]
func (uc *UserController) ChangePassword(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, uc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.NewPassword == "" {
		return utils.BadRequest(c, "New password is required")
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.CurrentPassword)); err != nil {
		return utils.BadRequest(c, "Incorrect current password")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return utils.InternalServerError(c, "Could not hash password")
	}
	user.PasswordHash = string(hashedPassword)

	if err := uc.DB.Save(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not update password")
	}

	return c.JSON(fiber.Map{"msg": "Password updated successfully"})
}

// GetLeaderboard godoc
// @Summary Get leaderboard
// @Description Returns top 10 users by XP
// @Tags users
// @Produce json
// @Success 200 {array} map[string]interface{}
// @Router /users/leaderboard [get]
func (uc *UserController) GetLeaderboard(c *fiber.Ctx) error {
	var topUsers []models.User
	if err := uc.DB.
		Order("xp DESC").
		Limit(10).
		Find(&topUsers).Error; err != nil {
		return utils.InternalServerError(c, "Could not query leaderboard")
	}

	leaderboard := make([]fiber.Map, 0, len(topUsers))
	for _, user := range topUsers {
		leaderboard = append(leaderboard, fiber.Map{
			"name":       user.Name,
			"xp":         user.XP,
			"level":      user.Level,
			"created_at": user.CreatedAt,
		})
	}

	return c.JSON(leaderboard)
}
