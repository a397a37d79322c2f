package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diogo/shopchat/internal/config"
)

var (
	loginUserFlag  string
	loginTokenFlag string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save storefront credentials",
	Long: `Save the user id and API token used to talk to the storefront backend.

Credentials are written to ~/.shopchat/credentials.json. The
SHOPCHAT_USER_ID and SHOPCHAT_API_TOKEN environment variables override
the saved values when set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLogin()
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginUserFlag, "user", "", "User id known to the storefront")
	loginCmd.Flags().StringVar(&loginTokenFlag, "token", "", "API bearer token")
	_ = loginCmd.MarkFlagRequired("user")
	_ = loginCmd.MarkFlagRequired("token")
}

func runLogin() error {
	creds := &config.Credentials{
		UserID:   loginUserFlag,
		APIToken: loginTokenFlag,
	}

	if err := config.ValidateCredentials(creds); err != nil {
		return err
	}

	if err := config.SaveCredentials(creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Printf("Credentials saved for user %s\n", creds.UserID)
	return nil
}
