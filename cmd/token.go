package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"l10ntrack/internal/ui"
	"l10ntrack/internal/vcs"
	"l10ntrack/pkg/errors"
)

var tokenStore = vcs.NewTokenStore()

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the GitHub access token",
	Long: `Store the GitHub access token used by the github provider in the system keyring,
or in ~/.l10ntrack/tokens.json when no keyring is available. $GITHUB_TOKEN takes precedence.`,
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store a token, prompting for it when not given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTokenSet,
}

var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show where the token comes from",
	Args:  cobra.NoArgs,
	RunE:  runTokenShow,
}

var tokenDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the stored token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := tokenStore.Delete(vcs.DefaultTokenHost); err != nil {
			return err
		}
		ui.ShowSuccess("Token deleted")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenSetCmd, tokenShowCmd, tokenDeleteCmd)
}

func runTokenSet(cmd *cobra.Command, args []string) error {
	var token string
	if len(args) == 1 {
		token = args[0]
	} else {
		if !interactive() {
			return errors.New(errors.ErrCodeRequiredField, "pass the token as an argument when not running in a terminal")
		}
		err := prompter.AskOne(&survey.Password{Message: "GitHub token:"}, &token, survey.WithValidator(survey.Required))
		if err != nil {
			return err
		}
	}

	if err := tokenStore.Set(vcs.DefaultTokenHost, strings.TrimSpace(token)); err != nil {
		return err
	}
	ui.ShowSuccess("Token stored for " + vcs.DefaultTokenHost)
	if os.Getenv(vcs.TokenEnv) != "" {
		ui.ShowWarning(vcs.TokenEnv + " is set and takes precedence over the stored token")
	}
	return nil
}

func runTokenShow(cmd *cobra.Command, args []string) error {
	token, source := os.Getenv(vcs.TokenEnv), "$"+vcs.TokenEnv
	if token == "" {
		token, source = tokenStore.Get(vcs.DefaultTokenHost), "token store"
	}
	if token == "" {
		ui.ShowInfo("No token configured, GitHub requests are unauthenticated")
		return nil
	}
	ui.PrintKeyValue("Token", maskToken(token))
	ui.PrintKeyValue("Source", source)
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

// maskToken keeps the first and last four characters of long tokens.
func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
