package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"l10ntrack/internal/app"
	"l10ntrack/internal/config"
	"l10ntrack/internal/ui"
	"l10ntrack/pkg/models"
)

var (
	cfgFile string
	noColor bool

	// appOptions replaces dependencies of the application built for each command.
	appOptions []app.Option

	rootCmd = &cobra.Command{
		Use:   "l10ntrack",
		Short: "Track translation completeness of multilingual content repositories",
		Long: `l10ntrack compares the content files and translation keys of every language
of a site repository against its base language and keeps a history of the results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.Output = cmd.OutOrStdout()
			if noColor {
				ui.DisableColor()
				color.NoColor = true
			}
		},
	}
)

// flagBindings maps config keys to the persistent flags that override them.
var flagBindings = map[string]string{
	"logging.level":   "log-level",
	"logging.format":  "log-format",
	"database.driver": "database-driver",
	"database.dsn":    "database-dsn",
	"provider.type":   "provider",
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.Output = os.Stderr
		ui.ShowError(err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./config.yaml or ~/.l10ntrack/config.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("database-driver", "", "store backend: file, memory, postgres or snowflake")
	flags.String("database-dsn", "", "connection string for postgres or snowflake")
	flags.String("provider", "", "repository provider: github or git")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
}

// loadConfig reads the configuration with persistent flags applied on top.
// Commands other than serve log warnings only unless configured otherwise.
func loadConfig(cmd *cobra.Command) (*models.Config, error) {
	loader := config.NewLoader()
	if cmd.Name() != "serve" {
		loader.SetDefault("logging.level", "warn")
	}
	for key, name := range flagBindings {
		if err := loader.BindFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return nil, err
		}
	}
	return loader.Load(cfgFile)
}

// newApp builds the application for a command. The caller must Close it.
func newApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg, Version, appOptions...)
}

func renderer(cmd *cobra.Command) *ui.ReportRenderer {
	return ui.NewReportRenderer(cmd.OutOrStdout(), ui.SupportsColor() && !noColor)
}
