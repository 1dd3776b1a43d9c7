package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

func TestFormatFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
		wantErr  bool
	}{
		{"i18n/en.toml", FormatTOML, false},
		{"i18n/en.TOML", FormatTOML, false},
		{"i18n/en.yaml", FormatYAML, false},
		{"i18n/en.yml", FormatYAML, false},
		{"i18n/en.json", FormatUnknown, true},
		{"i18n/en", FormatUnknown, true},
		{"archive.tar.toml", FormatTOML, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, err := FormatFromFilename(tt.filename)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeUnsupportedFormat, errors.GetErrorCode(err))
				assert.False(t, IsSupportedFormat(tt.filename))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, IsSupportedFormat(tt.filename))
		})
	}
}

func TestFlattenNested(t *testing.T) {
	doc := Document{
		"home":   Document{"title": "Hi"},
		"footer": "Bye",
	}

	assert.Equal(t, models.FlatKeyMap{
		"home.title": "Hi",
		"footer":     "Bye",
	}, Flatten(doc))
}

func TestFlattenIsIdempotentOnFlatInput(t *testing.T) {
	doc := Document{"a": "1", "b": "two", "c": "3.5"}

	once := Flatten(doc)
	again := Flatten(Document{"a": once["a"], "b": once["b"], "c": once["c"]})

	assert.Equal(t, once, again)
}

func TestFlattenLeafValues(t *testing.T) {
	doc := Document{
		"nothing": nil,
		"yes":     true,
		"count":   int64(42),
		"ratio":   0.5,
		"whole":   float64(100),
		"list":    []any{"a", int64(2), true},
		"empty":   Document{},
	}

	flat := Flatten(doc)

	assert.Equal(t, "null", flat["nothing"])
	assert.Equal(t, "true", flat["yes"])
	assert.Equal(t, "42", flat["count"])
	assert.Equal(t, "0.5", flat["ratio"])
	assert.Equal(t, "100", flat["whole"])
	assert.Equal(t, "a,2,true", flat["list"])
	_, ok := flat["empty"]
	assert.False(t, ok, "empty tables contribute no keys")
	assert.Len(t, flat, 6)
}

func TestParseTOML(t *testing.T) {
	content := `
footer = "Bye"
count = 3

[home]
title = "Hi"

[home.hero]
cta = "Start"
tags = ["a", "b"]
`
	doc, err := Parse(content, FormatTOML)
	require.NoError(t, err)

	flat := Flatten(doc)
	assert.Equal(t, []string{"count", "footer", "home.hero.cta", "home.hero.tags", "home.title"}, flat.Keys())
	assert.Equal(t, "a,b", flat["home.hero.tags"])
	assert.Equal(t, "3", flat["count"])
}

func TestParseTOMLDates(t *testing.T) {
	doc, err := Parse("released = 2024-03-01T10:00:00Z\nday = 2024-03-01\n", FormatTOML)
	require.NoError(t, err)

	flat := Flatten(doc)
	assert.Equal(t, "2024-03-01T10:00:00Z", flat["released"])
	assert.Equal(t, "2024-03-01", flat["day"])
}

func TestParseTOMLError(t *testing.T) {
	_, err := Parse("title = ", FormatTOML)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeParseError, errors.GetErrorCode(err))
	assert.Contains(t, errors.Summary(err), "failed to parse TOML")
}

func TestParseYAML(t *testing.T) {
	content := `
home:
  title: Hi
  items:
    - one
    - two
footer: Bye
1: numeric key
`
	doc, err := Parse(content, FormatYAML)
	require.NoError(t, err)

	flat := Flatten(doc)
	assert.Equal(t, "Hi", flat["home.title"])
	assert.Equal(t, "one,two", flat["home.items"])
	assert.Equal(t, "Bye", flat["footer"])
	assert.Equal(t, "numeric key", flat["1"])
}

func TestParseYAMLRootMustBeMapping(t *testing.T) {
	for _, content := range []string{"- a\n- b\n", "just a string"} {
		_, err := Parse(content, FormatYAML)
		require.Error(t, err, content)
		assert.Equal(t, errors.ErrCodeParseError, errors.GetErrorCode(err))
	}
}

func TestParseYAMLEmptyDocument(t *testing.T) {
	for _, content := range []string{"", "   \n", "# only a comment\n", "~"} {
		doc, err := Parse(content, FormatYAML)
		require.NoError(t, err, content)
		assert.Empty(t, Flatten(doc))
	}
}

func TestParseYAMLSyntaxError(t *testing.T) {
	_, err := Parse("home: [unclosed", FormatYAML)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeParseError, errors.GetErrorCode(err))
}

func TestParseFile(t *testing.T) {
	flat, err := ParseFile("[nav]\nhome = \"Home\"\n", "i18n/en.toml")
	require.NoError(t, err)
	assert.Equal(t, models.FlatKeyMap{"nav.home": "Home"}, flat)

	_, err = ParseFile("{}", "i18n/en.json")
	assert.Equal(t, errors.ErrCodeUnsupportedFormat, errors.GetErrorCode(err))
}
