package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"repo-explainer/internal/github"
	"repo-explainer/internal/pipeline"
)

// RepoController exposes the repository analysis flow over HTTP
type RepoController struct {
	service *pipeline.Service
	log     *zap.Logger
}

type AnalyzeRequest struct {
	URL string `json:"url"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewRepoController(service *pipeline.Service, log *zap.Logger) *RepoController {
	return &RepoController{service: service, log: log}
}

// AnalyzeRepository handles POST /api/repo/analyze
func (rc *RepoController) AnalyzeRepository(c echo.Context) error {
	userID := requestUserID(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Missing user identity"})
	}

	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil || req.URL == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format"})
	}

	project, err := rc.service.AnalyzeRepository(c.Request().Context(), userID, req.URL)
	if err != nil {
		switch {
		case errors.Is(err, github.ErrInvalidRepoURL):
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid GitHub URL"})
		case errors.Is(err, github.ErrNotFound):
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "Repository not found"})
		case errors.Is(err, github.ErrUnavailable):
			return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Failed reading repository"})
		case errors.Is(err, pipeline.ErrSummaryFailed):
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "AI summary generation failed"})
		default:
			rc.log.Error("analysis failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Analysis failed"})
		}
	}

	return c.JSON(http.StatusCreated, project)
}

// ListProjects handles GET /api/repo/list
func (rc *RepoController) ListProjects(c echo.Context) error {
	userID := requestUserID(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Missing user identity"})
	}

	projects, err := rc.service.ListProjects(c.Request().Context(), userID)
	if err != nil {
		rc.log.Error("failed to list projects", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list projects"})
	}

	return c.JSON(http.StatusOK, projects)
}

// DeleteProject handles DELETE /api/repo
func (rc *RepoController) DeleteProject(c echo.Context) error {
	userID := requestUserID(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Missing user identity"})
	}

	projectID := c.QueryParam("projectId")
	if projectID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Project ID is required"})
	}

	if err := rc.service.DeleteProject(c.Request().Context(), userID, projectID); err != nil {
		if errors.Is(err, pipeline.ErrProjectNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "Project not found"})
		}
		rc.log.Error("failed to delete project", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to delete repository"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Repository deleted successfully"})
}

// requestUserID extracts the caller's user ID. Authentication itself is
// handled upstream; this server trusts the forwarded identity header.
func requestUserID(c echo.Context) string {
	return c.Request().Header.Get("X-User-ID")
}
