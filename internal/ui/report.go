package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"l10ntrack/pkg/models"
)

// ReportRenderer draws sites and analysis results as terminal tables.
type ReportRenderer struct {
	w        io.Writer
	useColor bool
	// MaxListed caps how many missing or extra entries a detail view prints.
	MaxListed int
}

// NewReportRenderer creates a renderer writing to w.
func NewReportRenderer(w io.Writer, useColor bool) *ReportRenderer {
	return &ReportRenderer{w: w, useColor: useColor, MaxListed: 20}
}

// Sites renders the site listing.
func (r *ReportRenderer) Sites(sites []*models.Site) {
	table := r.newTable([]string{"Name", "Repository", "Branch", "Base", "Languages", "Updated"})
	for _, s := range sites {
		codes := make([]string, 0, len(s.Languages))
		for _, l := range s.Languages {
			codes = append(codes, l.Code)
		}
		table.Append([]string{
			s.Name,
			s.Repository(),
			s.Branch,
			s.BaseLanguage,
			strings.Join(codes, ","),
			s.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}
	table.Render()
}

// Site renders one site's settings.
func (r *ReportRenderer) Site(s *models.Site) {
	table := r.newTable([]string{"Field", "Value"})
	table.AppendBulk([][]string{
		{"ID", s.ID},
		{"Name", s.Name},
		{"Repository", s.Repository()},
		{"Branch", s.Branch},
		{"Content path", s.ContentPath},
		{"I18n path", s.I18nPath},
		{"Base language", s.BaseLanguage},
	})
	for _, l := range s.Languages {
		name := l.Name
		if l.NativeName != "" && l.NativeName != l.Name {
			name += " (" + l.NativeName + ")"
		}
		table.Append([]string{"Language " + l.Code, name + " weight " + strconv.Itoa(l.Weight)})
	}
	table.Render()
}

// Results renders one row per language with the site summary as footer.
func (r *ReportRenderer) Results(site *models.Site, results []models.AnalysisResult, summary models.SiteSummary) {
	fmt.Fprintf(r.w, "%s %s (%s@%s)\n\n", r.bold("Site:"), site.Name, site.Repository(), site.Branch)

	table := r.newTable([]string{"Language", "Content", "Content %", "Keys", "Keys %", "Missing", "Extra", "Analyzed"})
	for i := range results {
		res := &results[i]
		if res.Failed() {
			table.Append([]string{
				res.LanguageCode,
				"-", r.status(false, "FAILED"), "-", "-", "-", "-",
				res.AnalyzedAt.Format(time.RFC3339),
			})
			continue
		}
		table.Append([]string{
			res.LanguageCode,
			fmt.Sprintf("%d/%d", res.TranslatedContentFiles, res.TotalContentFiles),
			r.rate(res.ContentCompletionRate),
			fmt.Sprintf("%d/%d", res.TranslatedI18nKeys, res.TotalI18nKeys),
			r.rate(res.I18nCompletionRate),
			strconv.Itoa(len(res.MissingContentFiles) + len(res.MissingI18nKeys)),
			strconv.Itoa(len(res.ExtraI18nKeys)),
			res.AnalyzedAt.Format(time.RFC3339),
		})
	}
	table.SetFooter([]string{
		"Average", "", fmt.Sprintf("%.2f%%", summary.AverageContentRate),
		"", fmt.Sprintf("%.2f%%", summary.AverageI18nRate), "", "",
		strconv.Itoa(summary.Languages) + " languages",
	})
	table.Render()

	for i := range results {
		if results[i].Failed() {
			fmt.Fprintf(r.w, "%s %s: %s\n", r.status(false, "✗"), results[i].LanguageCode, results[i].ErrorMessage)
		}
	}
}

// Detail lists the missing content files and keys of a single result.
func (r *ReportRenderer) Detail(result *models.AnalysisResult) {
	fmt.Fprintf(r.w, "\n%s %s\n", r.bold("Language:"), result.LanguageCode)
	if result.Failed() {
		fmt.Fprintf(r.w, "  %s %s\n", r.status(false, "error:"), result.ErrorMessage)
		return
	}
	r.list("Missing content files", result.MissingContentFiles)
	r.list("Missing i18n keys", result.MissingI18nKeys)
	r.list("Extra i18n keys", result.ExtraI18nKeys)
}

func (r *ReportRenderer) list(title string, items []string) {
	fmt.Fprintf(r.w, "  %s (%d)\n", title, len(items))
	limit := len(items)
	if r.MaxListed > 0 && limit > r.MaxListed {
		limit = r.MaxListed
	}
	for _, item := range items[:limit] {
		fmt.Fprintf(r.w, "    - %s\n", item)
	}
	if limit < len(items) {
		fmt.Fprintf(r.w, "    ... %d more\n", len(items)-limit)
	}
}

func (r *ReportRenderer) newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(r.w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func (r *ReportRenderer) rate(rate float64) string {
	text := fmt.Sprintf("%.2f%%", rate)
	if !r.useColor {
		return text
	}
	switch {
	case rate >= 100:
		return color.GreenString(text)
	case rate >= 50:
		return color.YellowString(text)
	default:
		return color.RedString(text)
	}
}

func (r *ReportRenderer) status(ok bool, text string) string {
	if !r.useColor {
		return text
	}
	if ok {
		return color.GreenString(text)
	}
	return color.RedString(text)
}

func (r *ReportRenderer) bold(text string) string {
	if !r.useColor {
		return text
	}
	return color.New(color.Bold).Sprint(text)
}
