package ui

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// Asker is the subset of survey the prompts use.
type Asker interface {
	Ask(qs []*survey.Question, response interface{}, opts ...survey.AskOpt) error
	AskOne(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error
}

type surveyAsker struct{}

func (surveyAsker) Ask(qs []*survey.Question, response interface{}, opts ...survey.AskOpt) error {
	return survey.Ask(qs, response, opts...)
}

func (surveyAsker) AskOne(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error {
	return survey.AskOne(p, response, opts...)
}

// TerminalAsker prompts on the controlling terminal.
func TerminalAsker() Asker {
	return surveyAsker{}
}

// ErrCancelled is returned when the user interrupts a prompt.
var ErrCancelled = stderrors.New("cancelled by user")

func interrupted(err error) error {
	if stderrors.Is(err, terminal.InterruptErr) {
		return ErrCancelled
	}
	return err
}

// Confirm asks a yes/no question.
func Confirm(asker Asker, message string, defaultValue bool) (bool, error) {
	ok := defaultValue
	err := asker.AskOne(&survey.Confirm{Message: message, Default: defaultValue}, &ok)
	if err != nil {
		return false, interrupted(err)
	}
	return ok, nil
}

// SiteWizard collects a new site interactively.
type SiteWizard struct {
	asker Asker
}

// NewSiteWizard creates a wizard that prompts through asker.
func NewSiteWizard(asker Asker) *SiteWizard {
	if asker == nil {
		asker = TerminalAsker()
	}
	return &SiteWizard{asker: asker}
}

type siteAnswers struct {
	Name         string `survey:"name"`
	Repository   string `survey:"repository"`
	Branch       string `survey:"branch"`
	ContentPath  string `survey:"content_path"`
	I18nPath     string `survey:"i18n_path"`
	BaseLanguage string `survey:"base_language"`
	Languages    string `survey:"languages"`
}

// Run asks for every site field, prefilled from defaults, and returns the
// unsaved site. Validation against the store happens when it is created.
func (w *SiteWizard) Run(defaults *models.Site) (*models.Site, error) {
	if defaults == nil {
		defaults = &models.Site{}
	}
	repoDefault := ""
	if defaults.RepoOwner != "" {
		repoDefault = defaults.Repository()
	}
	langDefault := FormatLanguages(defaults.Languages)

	questions := []*survey.Question{
		{
			Name:     "name",
			Prompt:   &survey.Input{Message: "Site name:", Default: defaults.Name},
			Validate: survey.Required,
		},
		{
			Name: "repository",
			Prompt: &survey.Input{
				Message: "GitHub repository (owner/name):",
				Default: repoDefault,
				Help:    "Either owner/name or https://github.com/owner/name",
			},
			Validate: func(ans interface{}) error {
				s, _ := ans.(string)
				_, _, err := ParseRepository(s)
				return err
			},
		},
		{
			Name:   "branch",
			Prompt: &survey.Input{Message: "Branch:", Default: orDefault(defaults.Branch, "main")},
		},
		{
			Name:     "content_path",
			Prompt:   &survey.Input{Message: "Content directory:", Default: orDefault(defaults.ContentPath, "content")},
			Validate: survey.Required,
		},
		{
			Name:     "i18n_path",
			Prompt:   &survey.Input{Message: "Translation file directory:", Default: orDefault(defaults.I18nPath, "i18n")},
			Validate: survey.Required,
		},
		{
			Name:   "base_language",
			Prompt: &survey.Input{Message: "Base language code:", Default: orDefault(defaults.BaseLanguage, "en")},
		},
		{
			Name: "languages",
			Prompt: &survey.Input{
				Message: "Languages:",
				Default: langDefault,
				Help:    "Comma separated code[:name[:native name]] entries, base language included, e.g. en:English, fr:French:Français",
			},
			Validate: func(ans interface{}) error {
				s, _ := ans.(string)
				_, err := ParseLanguages(s)
				return err
			},
		},
	}

	var answers siteAnswers
	if err := w.asker.Ask(questions, &answers); err != nil {
		return nil, interrupted(err)
	}

	owner, repo, err := ParseRepository(answers.Repository)
	if err != nil {
		return nil, err
	}
	languages, err := ParseLanguages(answers.Languages)
	if err != nil {
		return nil, err
	}

	return &models.Site{
		Name:         strings.TrimSpace(answers.Name),
		RepoOwner:    owner,
		RepoName:     repo,
		Branch:       strings.TrimSpace(answers.Branch),
		ContentPath:  strings.TrimSpace(answers.ContentPath),
		I18nPath:     strings.TrimSpace(answers.I18nPath),
		BaseLanguage: strings.TrimSpace(answers.BaseLanguage),
		Languages:    languages,
	}, nil
}

// ParseRepository accepts owner/name or a github.com URL.
func ParseRepository(s string) (owner, repo string, err error) {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"https://github.com/", "http://github.com/", "git@github.com:", "github.com/"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimSuffix(strings.TrimSuffix(s, "/"), ".git")

	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.ValidationError("repository", s, "expected owner/name")
	}
	return parts[0], parts[1], nil
}

// ParseLanguages parses "code[:name[:native]]" entries separated by commas.
// Weights follow the order given, starting at 1.
func ParseLanguages(s string) ([]models.Language, error) {
	var languages []models.Language
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		lang := models.Language{
			Code:   strings.TrimSpace(parts[0]),
			Weight: len(languages) + 1,
		}
		if lang.Code == "" {
			return nil, errors.ValidationError("languages", entry, "language code is empty")
		}
		lang.Name = lang.Code
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			lang.Name = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			lang.NativeName = strings.TrimSpace(parts[2])
		}
		languages = append(languages, lang)
	}
	if len(languages) == 0 {
		return nil, errors.ValidationError("languages", s, "at least one language is required")
	}
	return languages, nil
}

// FormatLanguages is the inverse of ParseLanguages.
func FormatLanguages(languages []models.Language) string {
	entries := make([]string, 0, len(languages))
	for _, l := range languages {
		entry := l.Code
		if l.Name != "" && l.Name != l.Code {
			entry += ":" + l.Name
		}
		if l.NativeName != "" {
			if l.Name == "" || l.Name == l.Code {
				entry += ":" + l.Code
			}
			entry += ":" + l.NativeName
		}
		entries = append(entries, entry)
	}
	return strings.Join(entries, ", ")
}

// SelectSite lets the user pick one of names.
func SelectSite(asker Asker, names []string) (string, error) {
	if len(names) == 0 {
		return "", fmt.Errorf("no sites configured")
	}
	var choice string
	err := asker.AskOne(&survey.Select{Message: "Site:", Options: names, PageSize: 10}, &choice)
	if err != nil {
		return "", interrupted(err)
	}
	return choice, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
