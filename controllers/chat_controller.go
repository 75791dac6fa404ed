package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"repo-explainer/internal/pipeline"
)

// ChatController exposes the follow-up question flow over HTTP
type ChatController struct {
	service *pipeline.Service
	log     *zap.Logger
}

type ChatRequest struct {
	Message string `json:"message"`
}

func NewChatController(service *pipeline.Service, log *zap.Logger) *ChatController {
	return &ChatController{service: service, log: log}
}

// ChatWithRepo handles POST /api/chat?projectId=...
func (cc *ChatController) ChatWithRepo(c echo.Context) error {
	projectID := c.QueryParam("projectId")
	if projectID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Project ID is required"})
	}

	var req ChatRequest
	if err := c.Bind(&req); err != nil || req.Message == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Message is required"})
	}

	result, err := cc.service.AskQuestion(c.Request().Context(), projectID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrProjectNotFound):
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "Project not found"})
		case errors.Is(err, pipeline.ErrChatFailed):
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Message failed"})
		default:
			cc.log.Error("chat failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Chat failed"})
		}
	}

	return c.JSON(http.StatusOK, result)
}
