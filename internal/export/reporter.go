// Package export renders analysis results as CSV, JSON or Markdown reports
// and optionally uploads them to an S3-compatible object store.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"l10ntrack/internal/analyzer"
	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// ReportFormat selects how a report is rendered.
type ReportFormat string

const (
	FormatCSV      ReportFormat = "csv"
	FormatJSON     ReportFormat = "json"
	FormatMarkdown ReportFormat = "markdown"
)

// Extension is the file extension for the format, without the dot.
func (f ReportFormat) Extension() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// ContentType is the MIME type used when uploading the format.
func (f ReportFormat) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// ParseFormat accepts csv, json, markdown and md.
func ParseFormat(s string) (ReportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", errors.ValidationError("format", s, "must be csv, json or markdown")
}

// csvHeader lists the exported columns in order.
var csvHeader = []string{
	"Site Name",
	"Repository",
	"Language Code",
	"Language Name",
	"Analyzed At",
	"Total Content Files",
	"Translated Content Files",
	"Content Completion (%)",
	"Missing Content Files",
	"Total i18n Keys",
	"Translated i18n Keys",
	"i18n Completion (%)",
	"Missing i18n Keys",
	"Extra i18n Keys",
}

// listSeparator joins missing and extra items inside one cell.
const listSeparator = "; "

// Reporter renders the results of one site.
type Reporter struct {
	site    *models.Site
	results []models.AnalysisResult
}

// NewReporter creates a reporter for site's results.
func NewReporter(site *models.Site, results []models.AnalysisResult) *Reporter {
	return &Reporter{site: site, results: results}
}

// Generate renders the report in format.
func (r *Reporter) Generate(format ReportFormat) ([]byte, error) {
	switch format {
	case FormatCSV:
		return r.generateCSV()
	case FormatJSON:
		return r.generateJSON()
	case FormatMarkdown:
		return r.generateMarkdown(), nil
	default:
		return nil, errors.ValidationError("format", string(format), "unsupported report format")
	}
}

// Filename is l10n-analysis-<site-slug>-<YYYY-MM-DD>.<ext>.
func (r *Reporter) Filename(format ReportFormat, at time.Time) string {
	return fmt.Sprintf("l10n-analysis-%s-%s.%s", Slug(r.site.Name), at.UTC().Format("2006-01-02"), format.Extension())
}

var whitespace = regexp.MustCompile(`\s+`)

// Slug lower-cases name and replaces whitespace runs with dashes.
func Slug(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

func (r *Reporter) languageName(code string) string {
	if l, ok := r.site.Language(code); ok && l.Name != "" {
		return l.Name
	}
	return code
}

func (r *Reporter) generateCSV() ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeader); err != nil {
		return nil, err
	}

	for _, res := range r.results {
		row := []string{
			r.site.Name,
			r.site.Repository(),
			res.LanguageCode,
			r.languageName(res.LanguageCode),
			res.AnalyzedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(res.TotalContentFiles),
			strconv.Itoa(res.TranslatedContentFiles),
			strconv.FormatFloat(res.ContentCompletionRate, 'f', 2, 64),
			strings.Join(res.MissingContentFiles, listSeparator),
			strconv.Itoa(res.TotalI18nKeys),
			strconv.Itoa(res.TranslatedI18nKeys),
			strconv.FormatFloat(res.I18nCompletionRate, 'f', 2, 64),
			strings.Join(res.MissingI18nKeys, listSeparator),
			strings.Join(res.ExtraI18nKeys, listSeparator),
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type jsonReport struct {
	Site    *models.Site            `json:"site"`
	Summary models.SiteSummary      `json:"summary"`
	Results []models.AnalysisResult `json:"results"`
}

func (r *Reporter) generateJSON() ([]byte, error) {
	return json.MarshalIndent(jsonReport{
		Site:    r.site,
		Summary: analyzer.Summarize(r.results),
		Results: r.results,
	}, "", "  ")
}

func (r *Reporter) generateMarkdown() []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# L10N report: %s\n\n", r.site.Name)
	fmt.Fprintf(&buf, "Repository: `%s` (branch `%s`)\n\n", r.site.Repository(), r.site.Branch)

	buf.WriteString("| Language | Content | i18n keys | Analyzed at |\n")
	buf.WriteString("|---|---|---|---|\n")
	for _, res := range r.results {
		if res.Failed() {
			fmt.Fprintf(&buf, "| %s | failed | failed | %s |\n",
				r.languageName(res.LanguageCode), res.AnalyzedAt.UTC().Format(time.RFC3339))
			continue
		}
		fmt.Fprintf(&buf, "| %s | %d/%d (%.2f%%) | %d/%d (%.2f%%) | %s |\n",
			r.languageName(res.LanguageCode),
			res.TranslatedContentFiles, res.TotalContentFiles, res.ContentCompletionRate,
			res.TranslatedI18nKeys, res.TotalI18nKeys, res.I18nCompletionRate,
			res.AnalyzedAt.UTC().Format(time.RFC3339))
	}

	for _, res := range r.results {
		if res.Failed() {
			fmt.Fprintf(&buf, "\n## %s\n\nAnalysis failed: %s\n", r.languageName(res.LanguageCode), res.ErrorMessage)
			continue
		}
		if len(res.MissingContentFiles)+len(res.MissingI18nKeys)+len(res.ExtraI18nKeys) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "\n## %s\n", r.languageName(res.LanguageCode))
		writeList(&buf, "Missing content files", res.MissingContentFiles)
		writeList(&buf, "Missing i18n keys", res.MissingI18nKeys)
		writeList(&buf, "Extra i18n keys", res.ExtraI18nKeys)
	}
	return buf.Bytes()
}

func writeList(buf *bytes.Buffer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(buf, "\n### %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(buf, "- `%s`\n", item)
	}
}
