package filter

import (
	"strings"

	"repo-explainer/internal/github"
)

// logicalExtensions is the fixed allow-list of source and doc extensions
var logicalExtensions = []string{".ts", ".js", ".py", ".rs", ".go", ".toml", ".json", ".md"}

// excludedFolders is the fixed deny-list of build caches, dependency
// directories and compiled output. Matching is by substring, so a path like
// "sub/node_modules/x.js" is excluded at any depth.
var excludedFolders = []string{"node_modules", "target", "dist", ".git", "build"}

// IsLogicalFile reports whether a path is worth showing to the model.
// It is a pure function of the path string alone.
func IsLogicalFile(path string) bool {
	hasGoodExt := false
	for _, ext := range logicalExtensions {
		if strings.HasSuffix(path, ext) {
			hasGoodExt = true
			break
		}
	}
	if !hasGoodExt {
		return false
	}

	for _, folder := range excludedFolders {
		if strings.Contains(path, folder) {
			return false
		}
	}

	return true
}

// LogicalEntries keeps blob entries whose paths pass IsLogicalFile.
// Applying it twice yields the same result as applying it once.
func LogicalEntries(entries []github.TreeEntry) []github.TreeEntry {
	logical := make([]github.TreeEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Type == "blob" && IsLogicalFile(entry.Path) {
			logical = append(logical, entry)
		}
	}
	return logical
}

// Paths extracts the path list from tree entries, preserving order
func Paths(entries []github.TreeEntry) []string {
	paths := make([]string, len(entries))
	for i, entry := range entries {
		paths[i] = entry.Path
	}
	return paths
}
