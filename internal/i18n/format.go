// Package i18n decodes translation files and flattens them into dot-path keys.
package i18n

import (
	"path"
	"strings"

	"l10ntrack/pkg/errors"
)

// Format identifies the syntax of a translation file.
type Format int

const (
	FormatUnknown Format = iota
	FormatTOML
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "TOML"
	case FormatYAML:
		return "YAML"
	default:
		return "unknown"
	}
}

// Extension is the canonical file extension for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	default:
		return ""
	}
}

func extension(filename string) string {
	ext := path.Ext(filename)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// FormatFromExtension maps "toml", "yaml" and "yml" (any case) to a Format.
func FormatFromExtension(ext string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "toml":
		return FormatTOML, true
	case "yaml", "yml":
		return FormatYAML, true
	default:
		return FormatUnknown, false
	}
}

// FormatFromFilename resolves the format from the text after the last dot of filename.
func FormatFromFilename(filename string) (Format, error) {
	f, ok := FormatFromExtension(extension(filename))
	if !ok {
		return FormatUnknown, errors.UnsupportedFormatError(filename)
	}
	return f, nil
}

// IsSupportedFormat reports whether filename has a toml, yaml or yml extension.
func IsSupportedFormat(filename string) bool {
	_, ok := FormatFromExtension(extension(filename))
	return ok
}
