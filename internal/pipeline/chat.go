package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"repo-explainer/internal/filter"
	"repo-explainer/internal/openai"
	"repo-explainer/internal/store"
)

// ChatResult is the outcome of one answered question
type ChatResult struct {
	Answer    string   `json:"response"`
	FilesUsed []string `json:"filesUsed"`
}

// AskQuestion answers a follow-up question against an analyzed project and
// appends both turns of the exchange to its history atomically. If the
// responder fails, neither turn is stored.
func (s *Service) AskQuestion(ctx context.Context, projectID, message string) (*ChatResult, error) {
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	paths := filter.Paths(project.FileList)

	// Fail-open: an empty selection means the turn proceeds without file context
	selected := s.model.SelectRelevantFiles(ctx, message, paths, s.config.Retrieval.MaxRelevantFiles)
	s.log.Info("files selected for question",
		zap.String("project_id", projectID),
		zap.Strings("files", selected))

	contextBlock := s.assembler.Assemble(ctx, project.Owner, project.Repo, selected)

	history := make([]openai.ChatMessage, len(project.ChatHistory))
	for i, turn := range project.ChatHistory {
		history[i] = openai.ChatMessage{Role: turn.Role, Content: turn.Content}
	}

	answer, err := s.model.GenerateChatResponse(ctx, contextBlock, message, history)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChatFailed, err)
	}

	now := time.Now().UTC()
	turns := []store.ChatTurn{
		{Role: store.RoleUser, Content: message, Timestamp: now},
		{Role: store.RoleAssistant, Content: answer, Timestamp: now},
	}

	if err := s.projects.AppendTurns(ctx, projectID, turns); err != nil {
		return nil, fmt.Errorf("failed to persist chat turns: %w", err)
	}

	if selected == nil {
		selected = []string{}
	}

	return &ChatResult{Answer: answer, FilesUsed: selected}, nil
}

// ListProjects returns all projects owned by a user
func (s *Service) ListProjects(ctx context.Context, userID string) ([]store.Project, error) {
	return s.projects.ListByUser(ctx, userID)
}

// DeleteProject removes a user's project and its chat history
func (s *Service) DeleteProject(ctx context.Context, userID, projectID string) error {
	err := s.projects.Delete(ctx, userID, projectID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrProjectNotFound
	}
	return err
}
