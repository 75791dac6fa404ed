package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"repo-explainer/config"
)

var (
	// ErrInvalidRepoURL indicates the supplied URL is not a GitHub repository URL
	ErrInvalidRepoURL = errors.New("invalid GitHub repository URL")

	// ErrNotFound indicates the repository or ref does not exist (or is private)
	ErrNotFound = errors.New("repository not found")

	// ErrUnavailable indicates the source-hosting API rejected or failed the request
	ErrUnavailable = errors.New("source-hosting API unavailable")
)

const defaultBaseURL = "https://api.github.com"

// RepoRef identifies a repository at a branch or ref
type RepoRef struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
	Ref   string `json:"ref"`
}

// TreeEntry is one node of a repository's recursive file listing
type TreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"` // "blob" or "tree"
	SHA  string `json:"sha"`
}

var repoURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/?#]+)`)

// ParseRepoURL extracts owner and repository name from a GitHub URL.
// The ref is left empty; callers fill it from configuration.
func ParseRepoURL(rawURL string) (RepoRef, error) {
	match := repoURLPattern.FindStringSubmatch(rawURL)
	if match == nil {
		return RepoRef{}, fmt.Errorf("%w: %q", ErrInvalidRepoURL, rawURL)
	}

	name := strings.TrimSuffix(match[2], ".git")
	if name == "" {
		return RepoRef{}, fmt.Errorf("%w: %q", ErrInvalidRepoURL, rawURL)
	}

	return RepoRef{Owner: match[1], Name: name}, nil
}

// Client talks to the GitHub REST API
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a new GitHub API client with configuration
func NewClient(cfg *config.Config) *Client {
	baseURL := cfg.GitHub.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.GetGitHubTimeout()},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      cfg.GitHub.Token,
	}
}

type treeResponse struct {
	SHA       string      `json:"sha"`
	Tree      []TreeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

// FetchTree retrieves the full recursive file listing of a repository at a ref.
// A single request is made; no retries.
func (c *Client) FetchTree(ctx context.Context, owner, repo, ref string) ([]TreeEntry, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(ref))

	var result treeResponse
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	return result.Tree, nil
}

type contentResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// FetchContent retrieves and decodes the raw content of one file path.
// Empty or binary files yield an empty string rather than an error.
func (c *Client) FetchContent(ctx context.Context, owner, repo, path string) (string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), escapePath(path))

	var result contentResponse
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return "", err
	}

	if result.Content == "" {
		return "", nil
	}

	// GitHub wraps base64 payloads with newlines
	raw := strings.ReplaceAll(result.Content, "\n", "")
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode content of %s: %v", path, err)
	}

	return string(decoded), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}

	return nil
}

// escapePath escapes each path segment while keeping separators intact
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
