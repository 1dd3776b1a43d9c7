package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"l10ntrack/internal/common"
	"l10ntrack/internal/export"
	"l10ntrack/internal/ui"
	"l10ntrack/pkg/errors"
)

var exportCmd = &cobra.Command{
	Use:   "export <site>",
	Short: "Export the latest results of a site as a report",
	Long: `Export writes the latest result of every language of a site as CSV, JSON or Markdown.

The report is written to --out, a directory or a file path, and optionally uploaded
to the S3 bucket configured under export.s3.`,
	Example: `  l10ntrack export docs
  l10ntrack export docs --format markdown --out reports/
  l10ntrack export docs --s3`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	f := exportCmd.Flags()
	f.StringP("format", "f", "csv", "report format: csv, json or markdown")
	f.StringP("out", "o", ".", "output directory or file")
	f.Bool("s3", false, "upload the report to the configured S3 bucket")
}

func runExport(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	rawFormat, _ := f.GetString("format")
	out, _ := f.GetString("out")
	upload, _ := f.GetBool("s3")

	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return err
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
	results, err := a.Store.LatestResults(ctx, site.ID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		ui.ShowWarning(fmt.Sprintf("Site '%s' has no results yet, the report is empty", site.Name))
	}

	reporter := export.NewReporter(site, results)
	content, err := reporter.Generate(format)
	if err != nil {
		return err
	}
	filename := reporter.Filename(format, time.Now())

	path, err := outputPath(out, filename)
	if err != nil {
		return err
	}
	if err := common.WriteFileAtomic(path, content, common.FilePermissionNormal, common.DirPermissionNormal); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorage, "failed to write report").WithContext("path", path)
	}
	ui.ShowSuccess("Report written to " + path)

	if !upload {
		return nil
	}
	uploader, err := a.Uploader()
	if err != nil {
		return err
	}
	location, err := uploader.Upload(ctx, export.ObjectKey(site.Name, filename), content, format.ContentType())
	if err != nil {
		return err
	}
	ui.ShowSuccess("Report uploaded to " + location)
	return nil
}

// outputPath resolves --out: an existing directory or a trailing separator
// receives the default filename, anything else is used as the file path.
func outputPath(out, filename string) (string, error) {
	clean, err := common.CleanPath(out)
	if err != nil {
		return "", errors.ValidationError("out", out, err.Error())
	}
	if strings.HasSuffix(out, "/") || strings.HasSuffix(out, string(filepath.Separator)) {
		return filepath.Join(clean, filename), nil
	}
	if info, err := os.Stat(clean); err == nil && info.IsDir() {
		return filepath.Join(clean, filename), nil
	}
	return clean, nil
}
