package routes

import (
	"github.com/labstack/echo/v4"
	"repo-explainer/controllers"
)

func SetupRoutes(e *echo.Echo, healthController *controllers.HealthController, repoController *controllers.RepoController, chatController *controllers.ChatController) {
	// Health check route
	e.GET("/health", healthController.HealthCheck)

	// API routes
	api := e.Group("/api")

	// Repository analysis endpoints
	api.POST("/repo/analyze", repoController.AnalyzeRepository)
	api.GET("/repo/list", repoController.ListProjects)
	api.DELETE("/repo", repoController.DeleteProject)

	// Chat endpoint
	api.POST("/chat", chatController.ChatWithRepo)
}
