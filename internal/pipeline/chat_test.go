package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"repo-explainer/internal/store"
)

// analyzeFixture runs a full analysis so chat tests start from a persisted project
func analyzeFixture(t *testing.T, host *fakeHost, model *fakeModel) (*Service, *store.ProjectStore, *store.Project) {
	t.Helper()

	if host.tree == nil {
		host.tree = sampleTree()
	}
	if host.contents == nil {
		host.contents = map[string]string{
			"README.md":   "# Hello World",
			"src/main.go": "package main\n\nfunc main() {}",
		}
	}
	if model.summary == nil {
		model.summary = sampleSummary()
	}

	service, projects := newTestService(t, host, model)
	project, err := service.AnalyzeRepository(context.Background(), "u1", "https://github.com/octocat/hello-world")
	require.NoError(t, err)

	return service, projects, project
}

func TestAskQuestion_AppendsBothTurns(t *testing.T) {
	host := &fakeHost{}
	model := &fakeModel{
		selected: []string{"src/main.go"},
		answer:   "main() is the entry point.",
	}
	service, projects, project := analyzeFixture(t, host, model)

	result, err := service.AskQuestion(context.Background(), project.ID, "what does main do?")
	require.NoError(t, err)
	require.Equal(t, "main() is the entry point.", result.Answer)
	require.Equal(t, []string{"src/main.go"}, result.FilesUsed)

	// The responder saw the assembled context for the selected file
	require.Contains(t, model.lastContextBlock, "--- FILE: src/main.go ---")
	require.Contains(t, model.lastContextBlock, "func main()")

	// Seed turn + user turn + assistant turn, in order
	stored, err := projects.Get(context.Background(), project.ID)
	require.NoError(t, err)
	require.Len(t, stored.ChatHistory, 3)
	require.Equal(t, store.RoleUser, stored.ChatHistory[1].Role)
	require.Equal(t, "what does main do?", stored.ChatHistory[1].Content)
	require.Equal(t, store.RoleAssistant, stored.ChatHistory[2].Role)
	require.Equal(t, "main() is the entry point.", stored.ChatHistory[2].Content)
}

func TestAskQuestion_EmptySelectionStillAnswers(t *testing.T) {
	host := &fakeHost{}
	model := &fakeModel{
		selected: nil, // conversational query, no files needed
		answer:   "Hello! Ready to help with your code.",
	}
	service, _, project := analyzeFixture(t, host, model)

	fetchedBefore := len(host.fetchedPaths())

	result, err := service.AskQuestion(context.Background(), project.ID, "hi!")
	require.NoError(t, err)
	require.Equal(t, "Hello! Ready to help with your code.", result.Answer)
	require.NotNil(t, result.FilesUsed)
	require.Empty(t, result.FilesUsed)

	// No content fetches for an empty selection, and an empty context block
	require.Len(t, host.fetchedPaths(), fetchedBefore)
	require.Equal(t, "", model.lastContextBlock)
}

func TestAskQuestion_ResponderFailureLeavesHistoryUnchanged(t *testing.T) {
	host := &fakeHost{}
	model := &fakeModel{
		selected:  []string{"src/main.go"},
		answerErr: errors.New("model overloaded"),
	}
	service, projects, project := analyzeFixture(t, host, model)

	_, err := service.AskQuestion(context.Background(), project.ID, "what does main do?")
	require.ErrorIs(t, err, ErrChatFailed)

	// No orphaned user turn without its paired answer
	stored, err := projects.Get(context.Background(), project.ID)
	require.NoError(t, err)
	require.Len(t, stored.ChatHistory, 1)
}

func TestAskQuestion_HallucinatedSelectionDegradesToPlaceholder(t *testing.T) {
	host := &fakeHost{}
	model := &fakeModel{
		selected: []string{"src/main.go", "does/not/exist.go"},
		answer:   "answered anyway",
	}
	service, _, project := analyzeFixture(t, host, model)

	result, err := service.AskQuestion(context.Background(), project.ID, "explain the ghost file")
	require.NoError(t, err)
	require.Equal(t, "answered anyway", result.Answer)

	require.Contains(t, model.lastContextBlock, "--- FILE: src/main.go ---")
	require.Contains(t, model.lastContextBlock, "--- FILE: does/not/exist.go (content unavailable) ---")
}

func TestAskQuestion_PassesStoredHistoryToResponder(t *testing.T) {
	host := &fakeHost{}
	model := &fakeModel{answer: "first answer"}
	service, _, project := analyzeFixture(t, host, model)

	_, err := service.AskQuestion(context.Background(), project.ID, "first question")
	require.NoError(t, err)
	// Seed assistant turn only
	require.Len(t, model.lastHistory, 1)

	model.answer = "second answer"
	_, err = service.AskQuestion(context.Background(), project.ID, "second question")
	require.NoError(t, err)

	// Seed + first exchange
	require.Len(t, model.lastHistory, 3)
	require.Equal(t, "first question", model.lastHistory[1].Content)
	require.Equal(t, "first answer", model.lastHistory[2].Content)
}

func TestAskQuestion_UnknownProject(t *testing.T) {
	service, _ := newTestService(t, &fakeHost{}, &fakeModel{})

	_, err := service.AskQuestion(context.Background(), "ghost-project", "hello?")
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestDeleteProject(t *testing.T) {
	host := &fakeHost{}
	model := &fakeModel{}
	service, projects, project := analyzeFixture(t, host, model)

	// Wrong owner cannot delete
	require.ErrorIs(t, service.DeleteProject(context.Background(), "u2", project.ID), ErrProjectNotFound)

	require.NoError(t, service.DeleteProject(context.Background(), "u1", project.ID))

	_, err := projects.Get(context.Background(), project.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestListProjects(t *testing.T) {
	host := &fakeHost{}
	model := &fakeModel{}
	service, _, project := analyzeFixture(t, host, model)

	listed, err := service.ListProjects(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, project.ID, listed[0].ID)

	empty, err := service.ListProjects(context.Background(), "u2")
	require.NoError(t, err)
	require.Empty(t, empty)
}
