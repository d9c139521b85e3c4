package routes

import (
	"log"

	"project/backend/ai"
	"project/backend/config"
	"project/backend/controllers"
	"project/backend/middleware"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, provider ai.Provider, logger *log.Logger) {
	authMiddleware := middleware.AuthMiddleware(cfg)

	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)
	app.Get("/api/auth/user", authMiddleware, authController.GetCurrentUser)

	// User routes
	userController := controllers.NewUserController(db, cfg)
	app.Get("/api/users/leaderboard", userController.GetLeaderboard)
	app.Get("/api/users/profile", authMiddleware, userController.GetProfile)
	app.Put("/api/users/profile", authMiddleware, userController.UpdateProfile)
	app.Put("/api/users/password", authMiddleware, userController.ChangePassword)
	app.Delete("/api/users/account", authMiddleware, authController.DeleteAccount)

	// Roadmap routes
	roadmapController := controllers.NewRoadmapController(db, cfg)
	roadmaps := app.Group("/api/roadmaps", authMiddleware)
	roadmaps.Get("/", roadmapController.GetRoadmaps)
	roadmaps.Post("/", roadmapController.CreateRoadmap)
	roadmaps.Get("/:id", roadmapController.GetRoadmap)
	roadmaps.Delete("/:id", roadmapController.DeleteRoadmap)
	roadmaps.Put("/:id/step/:index", roadmapController.ToggleStep)

	// Task routes
	taskController := controllers.NewTaskController(db, cfg)
	tasks := app.Group("/api/tasks", authMiddleware)
	tasks.Get("/", taskController.GetTasks)
	tasks.Post("/", taskController.CreateTask)
	tasks.Put("/:id", taskController.ToggleTask)
	tasks.Delete("/:id", taskController.DeleteTask)

	// AI routes
	aiController := controllers.NewAIController(db, cfg, provider, logger)
	aiGroup := app.Group("/api/ai", authMiddleware)
	aiGroup.Post("/generate", aiController.GenerateRoadmap)
	aiGroup.Post("/suggest-tasks", aiController.SuggestTasks)
	aiGroup.Post("/help", aiController.Help)
}
