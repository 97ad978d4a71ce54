package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/areactl/internal/reset"
)

var (
	resetUID      string
	resetToken    string
	resetPassword string
	resetConfirm  string
)

func init() {
	rootCmd.AddCommand(passwordCmd)
	passwordCmd.AddCommand(passwordResetRequestCmd, passwordResetConfirmCmd)

	passwordResetConfirmCmd.Flags().StringVar(&resetUID, "uid", "", "reset uid (when not using a combined identifier)")
	passwordResetConfirmCmd.Flags().StringVar(&resetToken, "token", "", "reset token (when not using a combined identifier)")
	passwordResetConfirmCmd.Flags().StringVar(&resetPassword, "password", "", "new password")
	passwordResetConfirmCmd.Flags().StringVar(&resetConfirm, "confirm", "", "new password, again")
}

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Password reset flows",
}

var passwordResetRequestCmd = &cobra.Command{
	Use:   "reset-request <email>",
	Short: "Request a password reset email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		client, _ := newSession(cfg)

		flow := reset.NewFlow(client, webBase(cfg))
		if err := flow.Request(cmd.Context(), args[0]); err != nil {
			return err
		}
		// Same message whether or not the address exists.
		fmt.Println("If an account exists for that address, a reset email is on its way.")
		return nil
	},
}

var passwordResetConfirmCmd = &cobra.Command{
	Use:   "reset-confirm [identifier]",
	Short: "Set a new password using a reset identifier",
	Long: `Set a new password. The identifier is the last segment of the reset
link ("uid-token", split at the first dash, or a bare token); pass --uid
and --token instead when you have them separately.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		client, _ := newSession(cfg)

		var ident reset.Identifier
		switch {
		case len(args) == 1:
			ident = reset.ParseIdentifier(args[0])
		case resetToken != "":
			ident = reset.Identifier{UID: resetUID, Token: resetToken}
		default:
			return fmt.Errorf("an identifier argument or --token is required")
		}

		flow := reset.NewFlow(client, webBase(cfg))
		out, err := flow.Confirm(cmd.Context(), ident, resetPassword, resetConfirm)
		if err != nil {
			return err
		}

		if out.FallbackURL != "" {
			fmt.Println("This deployment has no reset-confirm API; finish the reset in your browser:")
			fmt.Println()
			fmt.Println("  " + out.FallbackURL)
			return nil
		}

		fmt.Println("Password updated. You can now run `areactl login`.")
		return nil
	},
}
