package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/calreminder/internal/google"
)

func newAuthCmd() *cobra.Command {
	var (
		account  string
		code     string
		tokenDir string
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Google Calendar and Gmail",
		Long: `Authorize calreminder to use your Google account.

Without --code the authorization URL is printed. Visit it, grant access and
run the command again with the code shown by Google:

  calreminder auth --account default
  calreminder auth --account default --code 4/0Ab...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("account") {
				account = cfg.Google.Account
			}

			auth, err := google.NewAuthenticator(cfg.Google.ClientID, cfg.Google.ClientSecret, tokenDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			code = strings.TrimSpace(code)
			if code == "" {
				if auth.HasToken(account) {
					fmt.Fprintf(out, "Account %q is already authorized. Pass --code to replace the token.\n\n", account)
				}
				fmt.Fprintf(out, "Visit this URL in your browser to authorize account %q:\n\n  %s\n\n", account, auth.AuthURL(account))
				fmt.Fprintf(out, "Then run: calreminder auth --account %s --code <code>\n", account)
				return nil
			}

			if err := auth.Exchange(cmd.Context(), account, code); err != nil {
				return err
			}
			fmt.Fprintf(out, "Account %q authorized.\n", account)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "Account name used to store the token (letters, digits, '-' and '_')")
	cmd.Flags().StringVar(&code, "code", "", "Authorization code returned by Google")
	cmd.Flags().StringVar(&tokenDir, "token-dir", "", "Directory for OAuth tokens (default: user cache directory)")
	return cmd
}
