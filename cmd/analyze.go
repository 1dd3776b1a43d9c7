package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"l10ntrack/internal/analyzer"
	"l10ntrack/internal/app"
	"l10ntrack/internal/ui"
	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [site]",
	Short: "Analyze the translation completeness of a site",
	Long: `Analyze compares every target language of a site against its base language,
stores the results and prints a table with one row per language.

The site can be given by name or id. Use --all to analyze every site.`,
	Example: `  l10ntrack analyze docs
  l10ntrack analyze --all --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().Bool("all", false, "analyze every site")
	analyzeCmd.Flags().Bool("json", false, "print the reports as JSON")
	analyzeCmd.Flags().Bool("details", false, "list missing files and keys per language")
}

type siteReport struct {
	Site   *models.Site     `json:"site"`
	Report *analyzer.Report `json:"report,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	asJSON, _ := cmd.Flags().GetBool("json")
	details, _ := cmd.Flags().GetBool("details")

	if all == (len(args) == 1) {
		return errors.New(errors.ErrCodeRequiredField, "give either a site or --all")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	sites, err := targetSites(cmd, a, args, all)
	if err != nil {
		return err
	}

	var (
		reports []siteReport
		failed  int
	)
	for _, site := range sites {
		report, err := analyzeOne(cmd, a, site, !asJSON)
		if err != nil {
			// --all keeps going; a single site reports its error directly
			if !all || cmd.Context().Err() != nil {
				return err
			}
			failed++
			if asJSON {
				reports = append(reports, siteReport{Site: site, Error: err.Error()})
			} else {
				ui.ShowWarning(fmt.Sprintf("Analysis of '%s' failed", site.Name))
				ui.ShowError(err)
			}
			continue
		}
		if asJSON {
			reports = append(reports, siteReport{Site: site, Report: report})
			continue
		}

		fmt.Fprintln(cmd.OutOrStdout())
		r := renderer(cmd)
		r.Results(site, report.Results, analyzer.Summarize(report.Results))
		if details {
			for i := range report.Results {
				r.Detail(&report.Results[i])
			}
		}
		if report.Pruned > 0 {
			ui.ShowInfo(fmt.Sprintf("Pruned %d old results", report.Pruned))
		}
	}

	if asJSON {
		if !all {
			return printJSON(cmd, reports[0])
		}
		if err := printJSON(cmd, reports); err != nil {
			return err
		}
	}
	if failed > 0 {
		return errors.New(errors.ErrCodeAnalysisFailed, fmt.Sprintf("%d of %d sites failed to analyze", failed, len(sites)))
	}
	return nil
}

func targetSites(cmd *cobra.Command, a *app.App, args []string, all bool) ([]*models.Site, error) {
	if !all {
		site, err := a.Sites.Resolve(cmd.Context(), args[0])
		if err != nil {
			return nil, err
		}
		return []*models.Site{site}, nil
	}

	list, err := a.Sites.List(cmd.Context())
	if err != nil {
		return nil, err
	}
	sites := make([]*models.Site, len(list))
	for i := range list {
		sites[i] = &list[i]
	}
	return sites, nil
}

func analyzeOne(cmd *cobra.Command, a *app.App, site *models.Site, showProgress bool) (*analyzer.Report, error) {
	if !showProgress {
		return a.Analyzer.AnalyzeSite(cmd.Context(), site)
	}

	ui.ShowHeader(fmt.Sprintf("Analyzing %s (%s@%s)", site.Name, site.Repository(), site.Branch))
	bar := ui.NewProgressBar(len(site.TargetLanguages()))
	report, err := a.Analyzer.AnalyzeSite(cmd.Context(), site, analyzer.WithProgress(func(p analyzer.Progress) {
		bar.Update(p.Completed, p.Language, p.Result != nil && !p.Result.Failed())
	}))
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout())
		return nil, err
	}
	bar.Finish()
	return report, nil
}
