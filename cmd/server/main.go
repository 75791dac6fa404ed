package main

import (
	"log"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"repo-explainer/cache"
	"repo-explainer/config"
	"repo-explainer/controllers"
	"repo-explainer/internal/github"
	"repo-explainer/internal/openai"
	"repo-explainer/internal/pipeline"
	"repo-explainer/internal/store"
	"repo-explainer/routes"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// Shared clients are constructed once and injected explicitly
	projects := store.NewProjectStore(db)
	githubClient := github.NewClient(cfg)
	aiClient := openai.NewClient(cfg, logger)
	fileCache := cache.NewCache(cfg)

	service := pipeline.NewService(cfg, logger, githubClient, aiClient, projects, fileCache)

	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize controllers
	healthController := controllers.NewHealthController()
	repoController := controllers.NewRepoController(service, logger)
	chatController := controllers.NewChatController(service, logger)

	// Setup routes
	routes.SetupRoutes(e, healthController, repoController, chatController)

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Server.Port))
}
