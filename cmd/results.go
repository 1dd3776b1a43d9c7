package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"l10ntrack/internal/analyzer"
	"l10ntrack/internal/storage"
	"l10ntrack/internal/ui"
	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

var resultsCmd = &cobra.Command{
	Use:   "results <site>",
	Short: "Show stored analysis results of a site",
	Long: `Show the latest result of every language of a site without running a new analysis.

Use --language for a single language or --history for past runs, newest first.`,
	Example: `  l10ntrack results docs
  l10ntrack results docs --language fr --details
  l10ntrack results docs --history --limit 20`,
	Args: cobra.ExactArgs(1),
	RunE: runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	f := resultsCmd.Flags()
	f.StringP("language", "l", "", "show the latest result of one language")
	f.Bool("history", false, "show past results, newest first")
	f.Int("limit", storage.DefaultHistoryLimit, "number of past results with --history")
	f.Bool("json", false, "print JSON")
	f.Bool("details", false, "list missing files and keys")
}

func runResults(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	code, _ := f.GetString("language")
	history, _ := f.GetBool("history")
	limit, _ := f.GetInt("limit")
	asJSON, _ := f.GetBool("json")
	details, _ := f.GetBool("details")

	if history && limit < 1 {
		return errors.ValidationError("limit", limit, "must be a positive integer")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	site, err := a.Sites.Resolve(ctx, args[0])
	if err != nil {
		return err
	}

	var results []models.AnalysisResult
	switch {
	case history:
		results, err = a.Store.ResultHistory(ctx, site.ID, limit)
	case code != "":
		var latest *models.AnalysisResult
		latest, err = a.Store.LatestResult(ctx, site.ID, code)
		if err == nil && latest == nil {
			err = errors.New(errors.ErrCodeResultNotFound, "no analysis found for language: "+code).
				WithSuggestions("Run 'l10ntrack analyze " + site.Name + "' first")
		}
		if latest != nil {
			results = []models.AnalysisResult{*latest}
		}
	default:
		results, err = a.Store.LatestResults(ctx, site.ID)
	}
	if err != nil {
		return err
	}

	if asJSON {
		if code != "" && !history {
			return printJSON(cmd, results[0])
		}
		return printJSON(cmd, results)
	}

	if len(results) == 0 {
		ui.ShowInfo(fmt.Sprintf("No results for '%s'. Run 'l10ntrack analyze %s'", site.Name, site.Name))
		return nil
	}

	r := renderer(cmd)
	r.Results(site, results, analyzer.Summarize(results))
	if details || code != "" {
		for i := range results {
			r.Detail(&results[i])
		}
	}
	return nil
}
