// Package manifest lists the content files a language has in a repository tree.
package manifest

import (
	"sort"
	"strings"

	"l10ntrack/pkg/models"
)

// DefaultSuffix is the extension of content files.
const DefaultSuffix = ".md"

// Extract returns the paths of blobs under contentRoot/languageCode/ that end in
// DefaultSuffix, relative to that directory, sorted and without duplicates.
func Extract(tree []models.RepositoryTreeEntry, contentRoot, languageCode string) []string {
	return ExtractWithSuffix(tree, contentRoot, languageCode, DefaultSuffix)
}

// ExtractWithSuffix is Extract with a configurable file suffix.
func ExtractWithSuffix(tree []models.RepositoryTreeEntry, contentRoot, languageCode, suffix string) []string {
	prefix := Prefix(contentRoot, languageCode)

	seen := make(map[string]struct{})
	files := []string{}
	for _, entry := range tree {
		if entry.Type != models.EntryBlob {
			continue
		}
		if !strings.HasPrefix(entry.Path, prefix) || !strings.HasSuffix(entry.Path, suffix) {
			continue
		}
		rel := entry.Path[len(prefix):]
		if _, dup := seen[rel]; dup {
			continue
		}
		seen[rel] = struct{}{}
		files = append(files, rel)
	}

	sort.Strings(files)
	return files
}

// Prefix is the directory content files of languageCode live under, with a trailing slash.
func Prefix(contentRoot, languageCode string) string {
	root := strings.TrimRight(contentRoot, "/")
	if root == "" {
		return languageCode + "/"
	}
	return root + "/" + languageCode + "/"
}
