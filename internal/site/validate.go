// Package site manages tracked sites: input validation, repository checks
// against the provider and persistence through the site store.
package site

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// Defaults applied to new sites.
const (
	DefaultBranch       = "main"
	DefaultBaseLanguage = "en"

	maxFieldLength = 100
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Violations collects field errors found while validating one input.
type Violations []FieldError

func (v *Violations) add(field, format string, args ...interface{}) {
	*v = append(*v, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Err returns nil when there are no violations, otherwise a validation error
// listing every field.
func (v Violations) Err() error {
	if len(v) == 0 {
		return nil
	}
	msgs := make([]string, len(v))
	for i, f := range v {
		msgs[i] = f.Field + ": " + f.Message
	}
	return errors.New(errors.ErrCodeValidationFailed, "invalid site: "+strings.Join(msgs, "; ")).
		WithSeverity(errors.SeverityWarning).
		WithContext("fields", []FieldError(v))
}

// ApplyDefaults fills in branch, base language and language order.
func ApplyDefaults(s *models.Site) {
	s.Name = strings.TrimSpace(s.Name)
	if strings.TrimSpace(s.Branch) == "" {
		s.Branch = DefaultBranch
	}
	if strings.TrimSpace(s.BaseLanguage) == "" {
		s.BaseLanguage = DefaultBaseLanguage
	}
	s.SortLanguages()
}

// Validate checks a site about to be created.
func Validate(s *models.Site) error {
	var v Violations

	checkLength(&v, "name", s.Name, true)
	checkLength(&v, "repoOwner", s.RepoOwner, true)
	checkLength(&v, "repoName", s.RepoName, true)
	checkLength(&v, "branch", s.Branch, true)
	if s.ContentPath == "" {
		v.add("contentPath", "content path is required")
	}
	if s.I18nPath == "" {
		v.add("i18nPath", "i18n path is required")
	}
	if utf8.RuneCountInString(s.BaseLanguage) != 2 {
		v.add("baseLanguage", "base language code must be 2 characters")
	}

	if len(s.Languages) == 0 {
		v.add("languages", "at least one language is required")
	}
	seen := make(map[string]bool, len(s.Languages))
	for i, l := range s.Languages {
		field := fmt.Sprintf("languages[%d]", i)
		if utf8.RuneCountInString(l.Code) != 2 {
			v.add(field+".code", "language code must be 2 characters")
		}
		if strings.TrimSpace(l.Name) == "" {
			v.add(field+".name", "language name is required")
		}
		if l.Weight < 0 {
			v.add(field+".weight", "weight must not be negative")
		}
		if seen[l.Code] {
			v.add("languages", "language codes must be unique (%s repeated)", l.Code)
		}
		seen[l.Code] = true
	}
	if len(s.Languages) > 0 && !seen[s.BaseLanguage] {
		v.add("baseLanguage", "base language %q is not among the site's languages", s.BaseLanguage)
	}

	return v.Err()
}

// ValidateUpdate checks the fields present in u.
func ValidateUpdate(u models.SiteUpdate) error {
	var v Violations
	if u.Name != nil {
		checkLength(&v, "name", strings.TrimSpace(*u.Name), true)
	}
	if u.Branch != nil {
		checkLength(&v, "branch", *u.Branch, true)
	}
	if u.ContentPath != nil && *u.ContentPath == "" {
		v.add("contentPath", "content path must not be empty")
	}
	if u.I18nPath != nil && *u.I18nPath == "" {
		v.add("i18nPath", "i18n path must not be empty")
	}
	return v.Err()
}

func checkLength(v *Violations, field, value string, required bool) {
	n := utf8.RuneCountInString(value)
	switch {
	case n == 0 && required:
		v.add(field, "%s is required", field)
	case n > maxFieldLength:
		v.add(field, "must be at most %d characters", maxFieldLength)
	}
}
