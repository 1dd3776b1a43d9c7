package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"

	"l10ntrack/pkg/errors"
)

var (
	// Output is where every helper in this package writes.
	Output io.Writer = os.Stdout

	// Check if output supports colors
	supportsColor = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	// Color functions
	ColorSuccess  = colorFunc(ansi.Green)
	ColorError    = colorFunc(ansi.Red)
	ColorWarning  = colorFunc(ansi.Yellow)
	ColorInfo     = colorFunc(ansi.Cyan)
	ColorProgress = colorFunc(ansi.Blue)
	ColorBold     = colorFunc("default+b")
	ColorDim      = colorFunc("default+h")
)

// SupportsColor reports whether stdout is a color-capable terminal.
func SupportsColor() bool {
	return supportsColor
}

// DisableColor turns colored output off, e.g. for --no-color.
func DisableColor() {
	supportsColor = false
}

// colorFunc returns a function that colors text if supported
func colorFunc(color string) func(string) string {
	return func(text string) string {
		if supportsColor {
			return ansi.Color(text, color)
		}
		return text
	}
}

// ShowHeader displays a formatted header
func ShowHeader(title string) {
	width := 50
	padding := (width - len(title) - 2) / 2
	if padding < 0 {
		padding = 0
	}
	right := width - 2 - padding - len(title)
	if right < 0 {
		right = 0
	}

	fmt.Fprintln(Output, "\n+"+strings.Repeat("-", width-2)+"+")
	fmt.Fprintf(Output, "|%s%s%s|\n",
		strings.Repeat(" ", padding),
		ColorBold(title),
		strings.Repeat(" ", right),
	)
	fmt.Fprintln(Output, "+"+strings.Repeat("-", width-2)+"+")
}

// ShowError displays an error with its code and any suggestions
func ShowError(err error) {
	fmt.Fprintf(Output, "\n%s ", ColorError("ERROR:"))

	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		fmt.Fprintln(Output, err.Error())
		return
	}

	fmt.Fprintf(Output, "%s %s\n", appErr.Summary(), ColorDim("("+string(appErr.Code)+")"))

	suggestions := appErr.Suggestions
	if len(suggestions) == 0 {
		if tip := getSuggestion(appErr.Code); tip != "" {
			suggestions = []string{tip}
		}
	}
	for _, s := range suggestions {
		fmt.Fprintf(Output, "  %s %s\n", ColorInfo("TIP:"), s)
	}
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	fmt.Fprintf(Output, "%s %s\n", ColorSuccess("SUCCESS:"), message)
}

// ShowWarning displays a warning message
func ShowWarning(message string) {
	fmt.Fprintf(Output, "%s %s\n", ColorWarning("WARNING:"), ColorWarning(message))
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	fmt.Fprintf(Output, "%s %s\n", ColorInfo("INFO:"), message)
}

// PrintKeyValue prints an aligned key-value pair
func PrintKeyValue(key, value string) {
	fmt.Fprintf(Output, "  %-20s %s\n", ColorDim(key+":"), value)
}

// Table is a lightweight aligned table for key listings.
type Table struct {
	writer *tabwriter.Writer
}

// NewTable creates a new table
func NewTable() *Table {
	w := tabwriter.NewWriter(Output, 0, 0, 2, ' ', 0)
	return &Table{writer: w}
}

// AddHeader adds a header row to the table
func (t *Table) AddHeader(columns ...string) {
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = ColorBold(col)
	}
	fmt.Fprintln(t.writer, strings.Join(headers, "\t"))

	separators := make([]string, len(columns))
	for i := range columns {
		separators[i] = strings.Repeat("-", len(columns[i]))
	}
	fmt.Fprintln(t.writer, strings.Join(separators, "\t"))
}

// AddRow adds a data row to the table
func (t *Table) AddRow(values ...string) {
	fmt.Fprintln(t.writer, strings.Join(values, "\t"))
}

// Render displays the table
func (t *Table) Render() {
	t.writer.Flush()
}

// FormatRate renders a completion percentage, green when complete and red when empty.
func FormatRate(rate float64) string {
	text := fmt.Sprintf("%.2f%%", rate)
	switch {
	case rate >= 100:
		return ColorSuccess(text)
	case rate >= 50:
		return ColorWarning(text)
	default:
		return ColorError(text)
	}
}

// FormatKeyDelta formats missing and extra counts as -n/+n.
func FormatKeyDelta(missing, extra int) string {
	result := ""

	if missing > 0 {
		result += ColorError(fmt.Sprintf("-%d", missing))
	}
	if missing > 0 && extra > 0 {
		result += " "
	}
	if extra > 0 {
		result += ColorWarning(fmt.Sprintf("+%d", extra))
	}

	if result == "" {
		result = ColorDim("0")
	}
	return result
}

// Box draws a box around content
func Box(title, content string) {
	lines := strings.Split(content, "\n")
	maxLen := len(title)

	for _, line := range lines {
		if len(line) > maxLen {
			maxLen = len(line)
		}
	}

	borderLen := maxLen - len(title) - 1
	if borderLen < 0 {
		borderLen = 0
	}
	fmt.Fprintf(Output, "+- %s %s+\n",
		ColorBold(title),
		strings.Repeat("-", borderLen),
	)

	for _, line := range lines {
		fmt.Fprintf(Output, "| %s%s |\n",
			line,
			strings.Repeat(" ", maxLen-len(line)),
		)
	}

	fmt.Fprintf(Output, "+%s+\n", strings.Repeat("-", maxLen+3))
}

// getSuggestion returns a hint for error codes that usually have a user-side fix
func getSuggestion(code errors.ErrorCode) string {
	switch code {
	case errors.ErrCodeUpstreamAuth:
		return "Store a valid token with 'l10ntrack token set' or export GITHUB_TOKEN"
	case errors.ErrCodeUpstreamRateLimited:
		return "Wait for the rate limit window to reset or authenticate to raise the limit"
	case errors.ErrCodeUpstreamNotFound:
		return "Check the repository owner, name and branch of the site"
	case errors.ErrCodeConfigNotFound:
		return "Pass --config or create ~/.l10ntrack/config.yaml"
	case errors.ErrCodeParseError:
		return "Fix the syntax of the translation file before re-running the analysis"
	case errors.ErrCodeSiteNotFound:
		return "List the known sites with 'l10ntrack site list'"
	default:
		return ""
	}
}
