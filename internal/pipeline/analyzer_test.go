package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"repo-explainer/internal/github"
	"repo-explainer/internal/store"
)

func sampleTree() []github.TreeEntry {
	return []github.TreeEntry{
		{Path: "README.md", Type: "blob", SHA: "1"},
		{Path: "src", Type: "tree", SHA: "2"},
		{Path: "src/main.go", Type: "blob", SHA: "3"},
		{Path: "node_modules/left-pad/index.js", Type: "blob", SHA: "4"},
		{Path: "logo.png", Type: "blob", SHA: "5"},
	}
}

func TestAnalyzeRepository_Success(t *testing.T) {
	host := &fakeHost{
		tree: sampleTree(),
		contents: map[string]string{
			"README.md":   "# Hello World",
			"src/main.go": "package main",
		},
	}
	model := &fakeModel{summary: sampleSummary()}
	service, _ := newTestService(t, host, model)

	project, err := service.AnalyzeRepository(context.Background(), "u1", "https://github.com/octocat/hello-world")
	require.NoError(t, err)

	require.Equal(t, "octocat", project.Owner)
	require.Equal(t, "hello-world", project.Repo)
	require.Equal(t, *sampleSummary(), project.Analysis)

	// Only logical blobs survive into the stored file list
	require.Equal(t, []github.TreeEntry{
		{Path: "README.md", Type: "blob", SHA: "1"},
		{Path: "src/main.go", Type: "blob", SHA: "3"},
	}, project.FileList)

	// Only the hero file was fetched, not the whole tree
	require.Equal(t, []string{"README.md"}, host.fetchedPaths())

	// The summarizer saw the path list and the hero content
	require.Contains(t, model.lastSummaryContext, "Project File Structure:")
	require.Contains(t, model.lastSummaryContext, "src/main.go")
	require.Contains(t, model.lastSummaryContext, "--- FILE: README.md ---")
	require.Contains(t, model.lastSummaryContext, "# Hello World")

	// History is seeded with one assistant turn rendering the summary
	require.Len(t, project.ChatHistory, 1)
	seed := project.ChatHistory[0]
	require.Equal(t, store.RoleAssistant, seed.Role)
	require.Equal(t, "ProjectSummaryCard", seed.UIComponent)
	require.Contains(t, seed.Content, "A sample project that greets the world.")
	require.Contains(t, seed.Content, "Go, SQLite")
}

func TestAnalyzeRepository_IdempotentReanalysis(t *testing.T) {
	host := &fakeHost{
		tree:     sampleTree(),
		contents: map[string]string{"README.md": "# Hello"},
	}
	model := &fakeModel{summary: sampleSummary()}
	service, _ := newTestService(t, host, model)

	first, err := service.AnalyzeRepository(context.Background(), "u1", "https://github.com/octocat/hello-world")
	require.NoError(t, err)
	require.Equal(t, 1, model.summaryCalls)

	second, err := service.AnalyzeRepository(context.Background(), "u1", "https://github.com/octocat/hello-world")
	require.NoError(t, err)

	// Existing project returned unchanged, no new fetches or model calls
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, model.summaryCalls)
	require.Equal(t, 1, host.treeCalls)
}

func TestAnalyzeRepository_DifferentUsersGetSeparateProjects(t *testing.T) {
	host := &fakeHost{
		tree:     sampleTree(),
		contents: map[string]string{"README.md": "# Hello"},
	}
	model := &fakeModel{summary: sampleSummary()}
	service, _ := newTestService(t, host, model)

	first, err := service.AnalyzeRepository(context.Background(), "u1", "https://github.com/octocat/hello-world")
	require.NoError(t, err)

	second, err := service.AnalyzeRepository(context.Background(), "u2", "https://github.com/octocat/hello-world")
	require.NoError(t, err)

	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, 2, model.summaryCalls)
}

func TestAnalyzeRepository_InvalidURL(t *testing.T) {
	service, _ := newTestService(t, &fakeHost{}, &fakeModel{})

	_, err := service.AnalyzeRepository(context.Background(), "u1", "not a repository url")
	require.ErrorIs(t, err, github.ErrInvalidRepoURL)
}

func TestAnalyzeRepository_TreeFailurePropagates(t *testing.T) {
	host := &fakeHost{treeErr: github.ErrUnavailable}
	model := &fakeModel{summary: sampleSummary()}
	service, projects := newTestService(t, host, model)

	_, err := service.AnalyzeRepository(context.Background(), "u1", "https://github.com/octocat/hello-world")
	require.ErrorIs(t, err, github.ErrUnavailable)
	require.Equal(t, 0, model.summaryCalls)

	_, err = projects.FindByRepo(context.Background(), "u1", "octocat", "hello-world")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAnalyzeRepository_SummaryFailureFailsAnalysis(t *testing.T) {
	host := &fakeHost{
		tree:     sampleTree(),
		contents: map[string]string{"README.md": "# Hello"},
	}
	model := &fakeModel{summaryErr: context.DeadlineExceeded}
	service, projects := newTestService(t, host, model)

	_, err := service.AnalyzeRepository(context.Background(), "u1", "https://github.com/octocat/hello-world")
	require.ErrorIs(t, err, ErrSummaryFailed)

	// No partial project persisted
	_, err = projects.FindByRepo(context.Background(), "u1", "octocat", "hello-world")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAnalyzeRepository_HeroFetchFailureTolerated(t *testing.T) {
	host := &fakeHost{
		tree:    sampleTree(),
		failing: map[string]bool{"README.md": true},
	}
	model := &fakeModel{summary: sampleSummary()}
	service, _ := newTestService(t, host, model)

	project, err := service.AnalyzeRepository(context.Background(), "u1", "https://github.com/octocat/hello-world")
	require.NoError(t, err)
	require.NotNil(t, project)

	// The failed hero file shows up as a visible placeholder, not a failure
	require.Contains(t, model.lastSummaryContext, "--- FILE: README.md (content unavailable) ---")
}
