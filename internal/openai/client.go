package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"repo-explainer/config"
)

// ChatMessage is one turn of prior conversation handed to the responder
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Architecture describes the inferred architecture of a repository
type Architecture struct {
	Style       string `json:"style"`
	Explanation string `json:"explanation"`
}

// StructuredSummary represents the structured output of the initial repository analysis
type StructuredSummary struct {
	ProjectName  string       `json:"projectName"`
	Summary      string       `json:"summary"`
	TechStack    []string     `json:"techStack"`
	KeyFeatures  []string     `json:"keyFeatures"`
	Architecture Architecture `json:"architecture"`
	Complexity   string       `json:"complexity"` // "Low", "Medium", "High"
}

const summarySystemInstruction = `You are an expert Senior Software Architect and Code Auditor.
Your goal is to analyze a GitHub repository based on its File Tree and Key File Contents (README, Manifests).

You must generate a structured analysis in JSON format.
Focus on:
1. Identifying the core purpose of the project.
2. Extracting the Tech Stack (Languages, Frameworks, Tools).
3. Inferring the Architecture (e.g., "MVC", "Microservices", "ROS Nodes") based on folder structure.
4. Listing key features.

Output strictly valid JSON. Do not include markdown code blocks.`

const selectorSystemInstructionFormat = `You are an intelligent file retrieval agent.

TASK:
Analyze the USER QUERY and the provided FILE LIST.
Select up to %d file paths that are absolutely necessary to answer the query.

RULES:
1. STRICTLY JSON OUTPUT: Return ONLY a valid JSON object. No Markdown. No explanations.
2. EXISTENCE CHECK: You must ONLY select paths that exist in the provided file list.
3. CASUAL TALK: If the query is conversational (e.g., "Hi", "Hello", "Thanks") or general (e.g., "Explain this project"), return "files": [].
4. FALLBACK: If no specific file is relevant, return "files": [].

SCHEMA:
{ "files": ["path/to/file1", "path/to/file2"] }`

const chatSystemInstruction = `You are an expert AI Coding Assistant specialized in explaining codebases.

BEHAVIOR RULES:
1. TECHNICAL QUERIES: If the user asks about code, logic, or errors, provide a detailed, comprehensive answer using the provided context.
2. CASUAL CONVERSATION: If the user says "Hi", "Hello", "How are you", or "Thanks", BE CONCISE. Just say "Hello! Ready to help with your code." or similar. Do NOT explain your capabilities unless asked.
3. UNKNOWN CONTEXT: If the context is empty and the user asks a code question, admit you don't see that specific file and ask them to be specific.
4. TONE: Professional, encouraging, and direct.`

// Client wraps the OpenAI client with rate limiting and defensive output parsing
type Client struct {
	client      *openai.Client
	config      *config.Config
	rateLimiter *RateLimiter
	log         *zap.Logger
}

// NewClient creates a new OpenAI client with configuration
func NewClient(cfg *config.Config, log *zap.Logger) *Client {
	client := openai.NewClient(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientConfig := openai.DefaultConfig(cfg.OpenAI.APIKey)
		clientConfig.BaseURL = cfg.OpenAI.BaseURL
		client = openai.NewClientWithConfig(clientConfig)
	}

	rateLimiter := NewRateLimiter(
		cfg.RateLimiting.RequestsPerMinute,
		cfg.RateLimiting.RequestsPerDay,
	)

	return &Client{
		client:      client,
		config:      cfg,
		rateLimiter: rateLimiter,
		log:         log,
	}
}

type relevantFilesResponse struct {
	Files []string `json:"files"`
}

// SelectRelevantFiles asks the model which candidate paths are worth reading
// for a query. It fails open: any model or parsing failure yields an empty
// selection so the chat turn proceeds without file context.
func (c *Client) SelectRelevantFiles(ctx context.Context, query string, paths []string, maxFiles int) []string {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.log.Warn("file selection skipped: rate limiter", zap.Error(err))
		return []string{}
	}

	prompt := fmt.Sprintf("Project Structure:\n%s\n\nUser Query: %q", strings.Join(paths, "\n"), query)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.config.OpenAI.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(selectorSystemInstructionFormat, maxFiles),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.log.Warn("file selection failed, continuing without file context", zap.Error(err))
		return []string{}
	}

	if len(resp.Choices) == 0 {
		return []string{}
	}

	jsonText, err := ExtractJSONObject(resp.Choices[0].Message.Content)
	if err != nil {
		c.log.Warn("file selection returned no JSON", zap.Error(err))
		return []string{}
	}

	var parsed relevantFilesResponse
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		c.log.Warn("file selection returned malformed JSON", zap.Error(err))
		return []string{}
	}

	if parsed.Files == nil {
		return []string{}
	}
	if len(parsed.Files) > maxFiles {
		parsed.Files = parsed.Files[:maxFiles]
	}

	return parsed.Files
}

// GenerateSummary produces the structured summary for a freshly analyzed
// repository. Unlike the selector, a malformed response is an error: a broken
// summary is not a usable product.
func (c *Client) GenerateSummary(ctx context.Context, repoContext string) (*StructuredSummary, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %v", err)
	}

	prompt := fmt.Sprintf(`Analyze the following repository context:
%s

Return the result in this specific JSON schema:
{
  "projectName": "String",
  "summary": "String (4 sentences max)",
  "techStack": ["String", "String"],
  "keyFeatures": ["String", "String", "String"],
  "architecture": {
    "style": "String (e.g., Monolithic, Event-Driven)",
    "explanation": "String (How the modules interact)"
  },
  "complexity": "String (Low/Medium/High)"
}`, repoContext)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.config.OpenAI.Model,
		MaxTokens: c.config.OpenAI.MaxTokensPerRequest,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: summarySystemInstruction,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %v", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	jsonText, err := ExtractJSONObject(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("summary response contained no JSON: %v", err)
	}

	var summary StructuredSummary
	if err := json.Unmarshal([]byte(jsonText), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse summary JSON: %v", err)
	}

	if summary.Summary == "" {
		return nil, fmt.Errorf("summary response missing summary field")
	}

	return &summary, nil
}

// GenerateChatResponse answers a question against an assembled context block
// and the trimmed recent history. Failures propagate to the caller; the chat
// turn must not be persisted without an answer.
func (c *Client) GenerateChatResponse(ctx context.Context, contextBlock, query string, history []ChatMessage) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit error: %v", err)
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: chatSystemInstruction,
		},
	}

	// Only the most recent turns are shown to the model
	window := history
	if n := c.config.Retrieval.HistoryWindow; len(window) > n {
		window = window[len(window)-n:]
	}
	for _, msg := range window {
		role := openai.ChatMessageRoleUser
		if msg.Role != "user" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	finalPrompt := query
	if strings.TrimSpace(contextBlock) != "" {
		finalPrompt = fmt.Sprintf(`Context from relevant files:
%s

User Question: %s

Answer the user comprehensively based on the code provided.`, contextBlock, query)
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: finalPrompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.config.OpenAI.Model,
		Temperature: c.config.OpenAI.Temperature,
		MaxTokens:   c.config.OpenAI.MaxTokensPerRequest,
		Messages:    messages,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %v", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}
