package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"l10ntrack/internal/common"
	"l10ntrack/internal/config"
	"l10ntrack/internal/ui"
	"l10ntrack/pkg/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create, inspect and encrypt the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configEncryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt plaintext secrets in the configuration file",
	Long: `Encrypt the database DSN, the Snowflake password and the S3 secret key with AES-256-GCM.

The key is derived from $L10NTRACK_ENCRYPTION_KEY when set, otherwise from the
host name and home directory. Encrypted values are decrypted transparently on load.`,
	Args: cobra.NoArgs,
	RunE: runConfigEncrypt,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configEncryptCmd)

	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configEncryptCmd.Flags().Bool("backup", true, "keep a copy of the original file next to it")
}

func configTarget() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.GetConfigFile()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configTarget()
	if force, _ := cmd.Flags().GetBool("force"); !force {
		if _, err := os.Stat(path); err == nil {
			return errors.New(errors.ErrCodeValidationFailed, "config file already exists: "+path).
				WithSuggestions("Pass --force to overwrite it")
		}
	}
	if err := config.Save(config.Defaults(), path); err != nil {
		return err
	}
	ui.ShowSuccess("Configuration written to " + path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	masked := *cfg
	for _, secret := range []*string{
		&masked.Database.DSN,
		&masked.Database.Snowflake.Password,
		&masked.Export.S3.SecretKey,
	} {
		if *secret != "" {
			*secret = "********"
		}
	}

	data, err := yaml.Marshal(&masked)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal config")
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigEncrypt(cmd *cobra.Command, args []string) error {
	path := configTarget()
	original, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigNotFound, "failed to read config file").
			WithContext("path", path).
			WithSuggestions("Create one with 'l10ntrack config init'")
	}

	cfg, err := config.NewLoader().Load(path)
	if err != nil {
		return err
	}

	if backup, _ := cmd.Flags().GetBool("backup"); backup {
		backupFile := path + ".backup"
		if err := os.WriteFile(backupFile, original, common.FilePermissionSecure); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorage, "failed to create backup")
		}
		ui.ShowInfo("Created backup: " + backupFile)
	}

	if err := config.Save(cfg, path); err != nil {
		return err
	}
	ui.ShowSuccess("Secrets in " + path + " are encrypted")
	return nil
}
