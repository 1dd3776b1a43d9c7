package models

import (
	"sort"
	"time"
)

// EntryType distinguishes files from directories in a repository listing.
type EntryType string

const (
	EntryBlob EntryType = "blob"
	EntryTree EntryType = "tree"
)

// RepositoryTreeEntry is one node of a recursive repository listing.
type RepositoryTreeEntry struct {
	Path string    `json:"path"`
	Type EntryType `json:"type"`
}

// FlatKeyMap maps dot-separated key paths to stringified leaf values.
type FlatKeyMap map[string]string

// Keys returns the key paths in ascending order.
func (m FlatKeyMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AnalysisResult is the outcome of comparing one target language against the base language.
type AnalysisResult struct {
	ID           string `json:"id"`
	SiteID       string `json:"siteId"`
	LanguageCode string `json:"languageCode"`

	TotalContentFiles      int      `json:"totalContentFiles"`
	TranslatedContentFiles int      `json:"translatedContentFiles"`
	ContentCompletionRate  float64  `json:"contentCompletionRate"`
	MissingContentFiles    []string `json:"missingContentFiles"`

	TotalI18nKeys      int      `json:"totalI18nKeys"`
	TranslatedI18nKeys int      `json:"translatedI18nKeys"`
	I18nCompletionRate float64  `json:"i18nCompletionRate"`
	MissingI18nKeys    []string `json:"missingI18nKeys"`
	ExtraI18nKeys      []string `json:"extraI18nKeys"`

	DurationMs   int64     `json:"durationMs"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	AnalyzedAt   time.Time `json:"analyzedAt"`
}

// Failed reports whether the result records an analysis error.
func (r *AnalysisResult) Failed() bool {
	return r.ErrorMessage != ""
}

// ResultRef is the minimal view of a stored result the retention policy needs.
type ResultRef struct {
	ID         string
	AnalyzedAt time.Time
	Seq        int64 // insertion order, breaks AnalyzedAt ties
}

// AnalysisSummary describes one analysis run.
type AnalysisSummary struct {
	TotalLanguages int       `json:"totalLanguages"`
	AnalyzedAt     time.Time `json:"analyzedAt"`
	DurationMs     int64     `json:"durationMs"`
}

// SiteSummary averages the latest per-language results of a site.
type SiteSummary struct {
	Languages          int        `json:"languages"`
	AverageContentRate float64    `json:"averageContentRate"`
	AverageI18nRate    float64    `json:"averageI18nRate"`
	LastAnalyzedAt     *time.Time `json:"lastAnalyzedAt,omitempty"`
}
