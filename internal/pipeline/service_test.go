package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"repo-explainer/cache"
	"repo-explainer/config"
	"repo-explainer/internal/github"
	"repo-explainer/internal/openai"
	"repo-explainer/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Retrieval: config.RetrievalConfig{
			MaxRelevantFiles:  4,
			HistoryWindow:     3,
			ConcurrentFetches: 4,
			HeroFiles:         []string{"readme.md", "package.json", "cargo.toml"},
			DefaultRef:        "main",
		},
		Cache: config.CacheConfig{Enabled: false},
	}
}

func newTestService(t *testing.T, host SourceHost, model ModelClient) (*Service, *store.ProjectStore) {
	t.Helper()

	db, err := store.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	cfg := testConfig()
	projects := store.NewProjectStore(db)
	service := NewService(cfg, zap.NewNop(), host, model, projects, cache.NewCache(cfg))

	return service, projects
}

// fakeHost is an in-memory SourceHost. Paths missing from contents, or
// listed in failing, fail their individual fetch.
type fakeHost struct {
	mu        sync.Mutex
	tree      []github.TreeEntry
	treeErr   error
	contents  map[string]string
	failing   map[string]bool
	fetched   []string
	treeCalls int
}

func (f *fakeHost) FetchTree(ctx context.Context, owner, repo, ref string) ([]github.TreeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.treeCalls++
	if f.treeErr != nil {
		return nil, f.treeErr
	}
	return f.tree, nil
}

func (f *fakeHost) FetchContent(ctx context.Context, owner, repo, path string) (string, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, path)
	f.mu.Unlock()

	if f.failing[path] {
		return "", errors.New("fetch failed")
	}
	content, ok := f.contents[path]
	if !ok {
		return "", github.ErrNotFound
	}
	return content, nil
}

func (f *fakeHost) fetchedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

// fakeModel is an in-memory ModelClient with canned responses
type fakeModel struct {
	selected   []string
	summary    *openai.StructuredSummary
	summaryErr error
	answer     string
	answerErr  error

	selectCalls  int
	summaryCalls int
	chatCalls    int

	lastSummaryContext string
	lastContextBlock   string
	lastHistory        []openai.ChatMessage
}

func (f *fakeModel) SelectRelevantFiles(ctx context.Context, query string, paths []string, maxFiles int) []string {
	f.selectCalls++
	if f.selected == nil {
		return []string{}
	}
	return f.selected
}

func (f *fakeModel) GenerateSummary(ctx context.Context, repoContext string) (*openai.StructuredSummary, error) {
	f.summaryCalls++
	f.lastSummaryContext = repoContext
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return f.summary, nil
}

func (f *fakeModel) GenerateChatResponse(ctx context.Context, contextBlock, query string, history []openai.ChatMessage) (string, error) {
	f.chatCalls++
	f.lastContextBlock = contextBlock
	f.lastHistory = history
	if f.answerErr != nil {
		return "", f.answerErr
	}
	return f.answer, nil
}

func sampleSummary() *openai.StructuredSummary {
	return &openai.StructuredSummary{
		ProjectName: "hello-world",
		Summary:     "A sample project that greets the world.",
		TechStack:   []string{"Go", "SQLite"},
		KeyFeatures: []string{"greeting"},
		Architecture: openai.Architecture{
			Style:       "Monolithic",
			Explanation: "A single binary.",
		},
		Complexity: "Low",
	}
}
