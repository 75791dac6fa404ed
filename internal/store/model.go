package store

import (
	"encoding/json"
	"time"

	"repo-explainer/internal/github"
	"repo-explainer/internal/openai"
)

// Chat roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is one append-only message of a project's conversation.
// UIComponent and UIData are optional rendering hints for the frontend.
type ChatTurn struct {
	Role        string          `json:"role"`
	Content     string          `json:"content"`
	UIComponent string          `json:"uiComponent,omitempty"`
	UIData      json.RawMessage `json:"uiData,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Project is the persisted record of one analyzed repository.
// Owned by exactly one user; chat history only ever grows.
type Project struct {
	ID          string                   `json:"id"`
	UserID      string                   `json:"userId"`
	Owner       string                   `json:"owner"`
	Repo        string                   `json:"repoName"`
	SourceURL   string                   `json:"githubUrl"`
	Analysis    openai.StructuredSummary `json:"aiAnalysis"`
	FileList    []github.TreeEntry       `json:"fileList"`
	ChatHistory []ChatTurn               `json:"chatHistory"`
	CreatedAt   time.Time                `json:"createdAt"`
}
