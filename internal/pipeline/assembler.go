package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"repo-explainer/cache"
)

// Assembler builds the bounded file-content context handed to the model.
// Fetches run concurrently with bounded fan-out; a failed fetch becomes a
// visible placeholder segment, never an error for the whole request.
type Assembler struct {
	host  SourceHost
	cache *cache.Cache
	limit int
	log   *zap.Logger
}

// NewAssembler creates a new context assembler
func NewAssembler(host SourceHost, fileCache *cache.Cache, limit int, log *zap.Logger) *Assembler {
	if limit <= 0 {
		limit = 1
	}
	return &Assembler{
		host:  host,
		cache: fileCache,
		limit: limit,
		log:   log,
	}
}

// Assemble fetches each path's content and concatenates the results in input
// order, one tagged segment per path. An empty path list yields an empty
// block, which is a valid state for casual queries.
func (a *Assembler) Assemble(ctx context.Context, owner, repo string, paths []string) string {
	if len(paths) == 0 {
		return ""
	}

	segments := make([]string, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			content, err := a.fetchContent(gctx, owner, repo, path)
			if err != nil {
				a.log.Warn("file content unavailable",
					zap.String("path", path),
					zap.Error(err))
				segments[i] = fmt.Sprintf("--- FILE: %s (content unavailable) ---\n", path)
				return nil
			}
			segments[i] = fmt.Sprintf("--- FILE: %s ---\n%s\n", path, content)
			return nil
		})
	}

	// Goroutines never return errors; failures are folded into placeholders
	_ = g.Wait()

	return strings.Join(segments, "\n")
}

func (a *Assembler) fetchContent(ctx context.Context, owner, repo, path string) (string, error) {
	if content, ok := a.cache.GetContent(owner, repo, path); ok {
		return content, nil
	}

	content, err := a.host.FetchContent(ctx, owner, repo, path)
	if err != nil {
		return "", err
	}

	if err := a.cache.SetContent(owner, repo, path, content); err != nil {
		a.log.Warn("failed to cache file content", zap.String("path", path), zap.Error(err))
	}

	return content, nil
}
