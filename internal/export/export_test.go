package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

func testReporter() *Reporter {
	site := &models.Site{
		Name:      "My Docs Site",
		RepoOwner: "acme",
		RepoName:  "docs",
		Branch:    "main",
		Languages: []models.Language{
			{Code: "en", Name: "English"},
			{Code: "fr", Name: "French"},
		},
	}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return NewReporter(site, []models.AnalysisResult{
		{
			LanguageCode:           "fr",
			TotalContentFiles:      3,
			TranslatedContentFiles: 1,
			ContentCompletionRate:  33.33,
			MissingContentFiles:    []string{"b.md", "c.md"},
			TotalI18nKeys:          2,
			TranslatedI18nKeys:     2,
			I18nCompletionRate:     100,
			MissingI18nKeys:        []string{},
			ExtraI18nKeys:          []string{"legacy"},
			AnalyzedAt:             at,
		},
		{LanguageCode: "de", ErrorMessage: "not found: i18n/en.toml", AnalyzedAt: at},
	})
}

func TestCSVReport(t *testing.T) {
	out, err := testReporter().Generate(FormatCSV)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])

	fr := records[1]
	assert.Equal(t, []string{
		"My Docs Site", "acme/docs", "fr", "French", "2024-05-01T12:00:00Z",
		"3", "1", "33.33", "b.md; c.md",
		"2", "2", "100.00", "", "legacy",
	}, fr)

	// unknown languages fall back to their code
	assert.Equal(t, "de", records[2][3])
}

func TestJSONReport(t *testing.T) {
	out, err := testReporter().Generate(FormatJSON)
	require.NoError(t, err)

	var decoded struct {
		Summary models.SiteSummary      `json:"summary"`
		Results []models.AnalysisResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Len(t, decoded.Results, 2)
	assert.Equal(t, 2, decoded.Summary.Languages)
	assert.Equal(t, 33.33, decoded.Summary.AverageContentRate)
}

func TestMarkdownReport(t *testing.T) {
	out, err := testReporter().Generate(FormatMarkdown)
	require.NoError(t, err)

	md := string(out)
	assert.Contains(t, md, "# L10N report: My Docs Site")
	assert.Contains(t, md, "| French | 1/3 (33.33%) | 2/2 (100.00%) |")
	assert.Contains(t, md, "- `b.md`")
	assert.Contains(t, md, "Analysis failed: not found: i18n/en.toml")
}

func TestFilenameAndKey(t *testing.T) {
	r := testReporter()
	at := time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, "l10n-analysis-my-docs-site-2024-05-01.csv", r.Filename(FormatCSV, at))
	assert.Equal(t, "l10n-analysis-my-docs-site-2024-05-01.md", r.Filename(FormatMarkdown, at))
	assert.Equal(t, "exports/my-docs-site/report.csv", ObjectKey("My Docs  Site", "report.csv"))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]ReportFormat{"": FormatCSV, "CSV": FormatCSV, "json": FormatJSON, "md": FormatMarkdown} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xlsx")
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.GetErrorCode(err))
}

func TestNewS3UploaderValidation(t *testing.T) {
	_, err := NewS3Uploader(models.S3{})
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetErrorCode(err))

	_, err = NewS3Uploader(models.S3{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetErrorCode(err))

	u, err := NewS3Uploader(models.S3{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "reports"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", u.region)
}
