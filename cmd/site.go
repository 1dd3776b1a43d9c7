package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"l10ntrack/internal/analyzer"
	"l10ntrack/internal/ui"
	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// prompter answers interactive questions; tests replace it.
var prompter ui.Asker = ui.TerminalAsker()

var siteCmd = &cobra.Command{
	Use:   "site",
	Short: "Manage tracked sites",
}

var siteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked sites",
	Args:  cobra.NoArgs,
	RunE:  runSiteList,
}

var siteAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a site",
	Long: `Add a site to track. Missing fields are prompted for when running in a terminal.

The repository and branch are checked against the provider before the site is saved.`,
	Example: `  l10ntrack site add --name docs --repo acme/docs --languages "en:English, fr:French"`,
	Args:    cobra.NoArgs,
	RunE:    runSiteAdd,
}

var siteShowCmd = &cobra.Command{
	Use:   "show <site>",
	Short: "Show a site and the summary of its latest analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runSiteShow,
}

var siteUpdateCmd = &cobra.Command{
	Use:   "update <site>",
	Short: "Change the name, branch or paths of a site",
	Args:  cobra.ExactArgs(1),
	RunE:  runSiteUpdate,
}

var siteRemoveCmd = &cobra.Command{
	Use:   "remove <site>",
	Short: "Remove a site and its analysis history",
	Args:  cobra.ExactArgs(1),
	RunE:  runSiteRemove,
}

func init() {
	rootCmd.AddCommand(siteCmd)
	siteCmd.AddCommand(siteListCmd, siteAddCmd, siteShowCmd, siteUpdateCmd, siteRemoveCmd)

	siteListCmd.Flags().Bool("json", false, "print JSON")

	f := siteAddCmd.Flags()
	f.String("name", "", "site name")
	f.String("repo", "", "GitHub repository, owner/name")
	f.String("branch", "main", "branch to analyze")
	f.String("content-path", "content", "directory holding one sub-directory per language")
	f.String("i18n-path", "i18n", "directory holding the translation files")
	f.String("base-language", "en", "code of the language others are compared against")
	f.String("languages", "", `languages as "code[:name[:native]]", comma separated, base included`)

	f = siteUpdateCmd.Flags()
	f.String("name", "", "new site name")
	f.String("branch", "", "new branch")
	f.String("content-path", "", "new content directory")
	f.String("i18n-path", "", "new translation file directory")
	f.String("config-path", "", "new site configuration file")

	siteRemoveCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	siteShowCmd.Flags().Bool("json", false, "print JSON")
}

func runSiteList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	sites, err := a.Sites.List(cmd.Context())
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cmd, sites)
	}
	if len(sites) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sites configured.")
		fmt.Fprintln(cmd.OutOrStdout(), "Use 'l10ntrack site add' to add one")
		return nil
	}

	ptrs := make([]*models.Site, len(sites))
	for i := range sites {
		ptrs[i] = &sites[i]
	}
	renderer(cmd).Sites(ptrs)
	return nil
}

func runSiteAdd(cmd *cobra.Command, args []string) error {
	site, err := siteFromFlags(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	created, err := a.Sites.Create(cmd.Context(), site)
	if err != nil {
		return err
	}
	ui.ShowSuccess(fmt.Sprintf("Site '%s' added (%s)", created.Name, created.ID))
	return nil
}

// siteFromFlags builds the new site from flags, prompting for the rest when interactive.
func siteFromFlags(cmd *cobra.Command) (*models.Site, error) {
	f := cmd.Flags()
	name, _ := f.GetString("name")
	repo, _ := f.GetString("repo")
	branch, _ := f.GetString("branch")
	contentPath, _ := f.GetString("content-path")
	i18nPath, _ := f.GetString("i18n-path")
	base, _ := f.GetString("base-language")
	langs, _ := f.GetString("languages")

	site := &models.Site{
		Name:         name,
		Branch:       branch,
		ContentPath:  contentPath,
		I18nPath:     i18nPath,
		BaseLanguage: base,
	}
	var err error
	if repo != "" {
		if site.RepoOwner, site.RepoName, err = ui.ParseRepository(repo); err != nil {
			return nil, err
		}
	}
	if langs != "" {
		if site.Languages, err = ui.ParseLanguages(langs); err != nil {
			return nil, err
		}
	}

	if name != "" && repo != "" && langs != "" {
		return site, nil
	}
	if !interactive() {
		return nil, errors.New(errors.ErrCodeRequiredField, "--name, --repo and --languages are required when not running in a terminal")
	}
	return ui.NewSiteWizard(prompter).Run(site)
}

func runSiteShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	site, err := a.Sites.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	latest, err := a.Store.LatestResults(cmd.Context(), site.ID)
	if err != nil {
		return err
	}
	summary := analyzer.Summarize(latest)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cmd, struct {
			*models.Site
			Summary models.SiteSummary `json:"summary"`
		}{site, summary})
	}

	renderer(cmd).Site(site)
	fmt.Fprintln(cmd.OutOrStdout())
	if summary.LastAnalyzedAt == nil {
		ui.ShowInfo("Not analyzed yet. Run 'l10ntrack analyze " + site.Name + "'")
		return nil
	}
	ui.PrintKeyValue("Languages", fmt.Sprintf("%d", summary.Languages))
	ui.PrintKeyValue("Content", ui.FormatRate(summary.AverageContentRate))
	ui.PrintKeyValue("Translation keys", ui.FormatRate(summary.AverageI18nRate))
	ui.PrintKeyValue("Last analyzed", summary.LastAnalyzedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runSiteUpdate(cmd *cobra.Command, args []string) error {
	var u models.SiteUpdate
	for flag, field := range map[string]**string{
		"name":         &u.Name,
		"branch":       &u.Branch,
		"content-path": &u.ContentPath,
		"i18n-path":    &u.I18nPath,
		"config-path":  &u.ConfigPath,
	} {
		if cmd.Flags().Changed(flag) {
			v, _ := cmd.Flags().GetString(flag)
			*field = &v
		}
	}
	if u == (models.SiteUpdate{}) {
		return errors.New(errors.ErrCodeRequiredField, "nothing to update").
			WithSuggestions("Pass at least one of --name, --branch, --content-path, --i18n-path or --config-path")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	site, err := a.Sites.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	updated, err := a.Sites.Update(cmd.Context(), site.ID, u)
	if err != nil {
		return err
	}
	ui.ShowSuccess(fmt.Sprintf("Site '%s' updated", updated.Name))
	return nil
}

func runSiteRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	site, err := a.Sites.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		if !interactive() {
			return errors.New(errors.ErrCodeRequiredField, "pass --yes to remove a site when not running in a terminal")
		}
		ok, err := ui.Confirm(prompter, fmt.Sprintf("Remove site '%s' and its analysis history?", site.Name), false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Removal cancelled")
			return nil
		}
	}

	if err := a.Sites.Delete(cmd.Context(), site.ID); err != nil {
		return err
	}
	ui.ShowSuccess(fmt.Sprintf("Site '%s' removed", site.Name))
	return nil
}

// interactive reports whether prompts can be shown; tests override it.
var interactive = func() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
