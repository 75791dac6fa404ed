package pipeline

import (
	"context"

	"go.uber.org/zap"
	"repo-explainer/cache"
	"repo-explainer/config"
	"repo-explainer/internal/github"
	"repo-explainer/internal/openai"
	"repo-explainer/internal/store"
)

// SourceHost fetches repository trees and file contents
type SourceHost interface {
	FetchTree(ctx context.Context, owner, repo, ref string) ([]github.TreeEntry, error)
	FetchContent(ctx context.Context, owner, repo, path string) (string, error)
}

// ModelClient performs the three generative-model operations of the pipeline
type ModelClient interface {
	SelectRelevantFiles(ctx context.Context, query string, paths []string, maxFiles int) []string
	GenerateSummary(ctx context.Context, repoContext string) (*openai.StructuredSummary, error)
	GenerateChatResponse(ctx context.Context, contextBlock, query string, history []openai.ChatMessage) (string, error)
}

// ProjectStore persists projects and their append-only chat history
type ProjectStore interface {
	Create(ctx context.Context, project *store.Project) error
	Get(ctx context.Context, id string) (*store.Project, error)
	FindByRepo(ctx context.Context, userID, owner, repo string) (*store.Project, error)
	ListByUser(ctx context.Context, userID string) ([]store.Project, error)
	AppendTurns(ctx context.Context, projectID string, turns []store.ChatTurn) error
	Delete(ctx context.Context, userID, projectID string) error
}

// Service orchestrates the repository analysis and chat flows
type Service struct {
	config    *config.Config
	log       *zap.Logger
	host      SourceHost
	model     ModelClient
	projects  ProjectStore
	assembler *Assembler
	cache     *cache.Cache
}

// NewService creates a new pipeline service
func NewService(cfg *config.Config, log *zap.Logger, host SourceHost, model ModelClient, projects ProjectStore, fileCache *cache.Cache) *Service {
	return &Service{
		config:    cfg,
		log:       log,
		host:      host,
		model:     model,
		projects:  projects,
		assembler: NewAssembler(host, fileCache, cfg.Retrieval.ConcurrentFetches, log),
		cache:     fileCache,
	}
}
