package models

import (
	"sort"
	"time"
)

// Site is a content repository tracked for localization completeness.
type Site struct {
	ID           string     `json:"id" yaml:"id"`
	Name         string     `json:"name" yaml:"name"`
	RepoOwner    string     `json:"repoOwner" yaml:"repo_owner"`
	RepoName     string     `json:"repoName" yaml:"repo_name"`
	Branch       string     `json:"branch" yaml:"branch"`
	ContentPath  string     `json:"contentPath" yaml:"content_path"` // e.g. "content"
	I18nPath     string     `json:"i18nPath" yaml:"i18n_path"`       // e.g. "i18n"
	ConfigPath   string     `json:"configPath,omitempty" yaml:"config_path,omitempty"`
	BaseLanguage string     `json:"baseLanguage" yaml:"base_language"`
	Languages    []Language `json:"languages" yaml:"languages"`
	CreatedAt    time.Time  `json:"createdAt" yaml:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" yaml:"updated_at"`
}

// Language is one locale of a site. The base language appears here too.
type Language struct {
	Code       string `json:"code" yaml:"code"`
	Name       string `json:"name" yaml:"name"`
	NativeName string `json:"nativeName,omitempty" yaml:"native_name,omitempty"`
	Weight     int    `json:"weight" yaml:"weight"` // display order, ascending
}

// Repository returns "owner/name".
func (s *Site) Repository() string {
	return s.RepoOwner + "/" + s.RepoName
}

// Language looks up a language by code.
func (s *Site) Language(code string) (Language, bool) {
	for _, l := range s.Languages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// TargetLanguages returns every language except the base one, in site order.
func (s *Site) TargetLanguages() []Language {
	targets := make([]Language, 0, len(s.Languages))
	for _, l := range s.Languages {
		if l.Code != s.BaseLanguage {
			targets = append(targets, l)
		}
	}
	return targets
}

// SortLanguages orders languages by weight, keeping declaration order for equal weights.
func (s *Site) SortLanguages() {
	sort.SliceStable(s.Languages, func(i, j int) bool {
		return s.Languages[i].Weight < s.Languages[j].Weight
	})
}

// SiteUpdate carries the mutable site fields. Nil fields are left unchanged.
type SiteUpdate struct {
	Name        *string `json:"name,omitempty"`
	Branch      *string `json:"branch,omitempty"`
	ContentPath *string `json:"contentPath,omitempty"`
	I18nPath    *string `json:"i18nPath,omitempty"`
	ConfigPath  *string `json:"configPath,omitempty"`
}

// Apply copies the set fields of u onto s.
func (u SiteUpdate) Apply(s *Site) {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Branch != nil {
		s.Branch = *u.Branch
	}
	if u.ContentPath != nil {
		s.ContentPath = *u.ContentPath
	}
	if u.I18nPath != nil {
		s.I18nPath = *u.I18nPath
	}
	if u.ConfigPath != nil {
		s.ConfigPath = *u.ConfigPath
	}
}
