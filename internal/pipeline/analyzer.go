package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"repo-explainer/internal/filter"
	"repo-explainer/internal/github"
	"repo-explainer/internal/store"
)

// AnalyzeRepository ingests a repository URL and produces a persisted project
// with its structured summary. Re-analyzing a repository a user already
// analyzed returns the existing project unchanged, with no model calls.
func (s *Service) AnalyzeRepository(ctx context.Context, userID, repoURL string) (*store.Project, error) {
	ref, err := github.ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}
	ref.Ref = s.config.Retrieval.DefaultRef

	existing, err := s.projects.FindByRepo(ctx, userID, ref.Owner, ref.Name)
	if err == nil {
		s.log.Info("returning existing project",
			zap.String("owner", ref.Owner),
			zap.String("repo", ref.Name))
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up existing project: %w", err)
	}

	tree, err := s.fetchTree(ctx, ref)
	if err != nil {
		return nil, err
	}

	logical := filter.LogicalEntries(tree)
	paths := filter.Paths(logical)

	heroPaths := s.heroPaths(paths)
	s.log.Info("analyzing repository",
		zap.String("owner", ref.Owner),
		zap.String("repo", ref.Name),
		zap.Int("logical_files", len(paths)),
		zap.Strings("hero_files", heroPaths))

	// Hero fetch failures surface as placeholders inside the context,
	// they never fail the analysis
	heroContext := s.assembler.Assemble(ctx, ref.Owner, ref.Name, heroPaths)

	combinedContext := fmt.Sprintf("Project File Structure:\n%s\n\nKey File Contents:\n%s",
		strings.Join(paths, "\n"), heroContext)

	summary, err := s.model.GenerateSummary(ctx, combinedContext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSummaryFailed, err)
	}

	now := time.Now().UTC()
	summaryData, _ := json.Marshal(summary)

	project := &store.Project{
		ID:        uuid.NewString(),
		UserID:    userID,
		Owner:     ref.Owner,
		Repo:      ref.Name,
		SourceURL: repoURL,
		Analysis:  *summary,
		FileList:  logical,
		ChatHistory: []store.ChatTurn{
			{
				Role: store.RoleAssistant,
				Content: fmt.Sprintf(
					"I've analyzed your repository! Here's a quick summary:\n\n%s\n\n**Tech Stack:** %s",
					summary.Summary, strings.Join(summary.TechStack, ", ")),
				UIComponent: "ProjectSummaryCard",
				UIData:      summaryData,
				Timestamp:   now,
			},
		},
		CreatedAt: now,
	}

	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to persist project: %w", err)
	}

	s.log.Info("project created",
		zap.String("project_id", project.ID),
		zap.String("user_id", userID))

	return project, nil
}

func (s *Service) fetchTree(ctx context.Context, ref github.RepoRef) ([]github.TreeEntry, error) {
	if tree, ok := s.cache.GetTree(ref.Owner, ref.Name, ref.Ref); ok {
		return tree, nil
	}

	tree, err := s.host.FetchTree(ctx, ref.Owner, ref.Name, ref.Ref)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetTree(ref.Owner, ref.Name, ref.Ref, tree); err != nil {
		s.log.Warn("failed to cache tree", zap.Error(err))
	}

	return tree, nil
}

// heroPaths picks the high-signal files read in full during initial analysis,
// by exact lowercase match against the configured filename set.
func (s *Service) heroPaths(paths []string) []string {
	var hero []string
	for _, path := range paths {
		lower := strings.ToLower(path)
		for _, name := range s.config.Retrieval.HeroFiles {
			if lower == name {
				hero = append(hero, path)
				break
			}
		}
	}
	return hero
}
