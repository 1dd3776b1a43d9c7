package i18n

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// Document is a decoded translation file. Nested tables and mappings are Documents too.
type Document map[string]any

// Parse decodes content in the given format.
func Parse(content string, format Format) (Document, error) {
	switch format {
	case FormatTOML:
		return parseTOML(content)
	case FormatYAML:
		return parseYAML(content)
	default:
		return nil, errors.New(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported i18n file format: %s", format))
	}
}

// ParseFile resolves the format from filename, then parses and flattens content.
func ParseFile(content, filename string) (models.FlatKeyMap, error) {
	format, err := FormatFromFilename(filename)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(content, format)
	if err != nil {
		return nil, err
	}
	return Flatten(doc), nil
}

func parseTOML(content string) (Document, error) {
	doc := Document{}
	if err := toml.Unmarshal([]byte(content), &doc); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, errors.ParseError("TOML", err).
				WithContext("line", row).
				WithContext("column", col)
		}
		return nil, errors.ParseError("TOML", err)
	}
	return normalize(doc), nil
}

func parseYAML(content string) (Document, error) {
	if strings.TrimSpace(content) == "" {
		return Document{}, nil
	}

	var root any
	if err := yaml.Unmarshal([]byte(content), &root); err != nil {
		return nil, errors.ParseError("YAML", err)
	}

	switch v := root.(type) {
	case nil:
		return Document{}, nil
	case map[string]any:
		return normalize(v), nil
	case map[any]any:
		return normalize(stringKeys(v)), nil
	default:
		return nil, errors.ParseError("YAML",
			fmt.Errorf("invalid structure: expected a mapping at the document root, got %T", root))
	}
}

// normalize converts every nested mapping to a Document so Flatten has a single case to recurse on.
func normalize(m map[string]any) Document {
	doc := make(Document, len(m))
	for k, v := range m {
		doc[k] = normalizeValue(v)
	}
	return doc
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case Document:
		return normalize(t)
	case map[string]any:
		return normalize(t)
	case map[any]any:
		return normalize(stringKeys(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}

func stringKeys(m map[any]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[fmt.Sprint(k)] = v
	}
	return out
}
