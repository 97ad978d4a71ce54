package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/user/areactl/internal/oauth"
)

var (
	loginEmail    string
	loginPassword string
	loginGoogle   bool
)

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password (or AREA_PASSWORD)")
	loginCmd.Flags().BoolVar(&loginGoogle, "google", false, "sign in with Google")
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		client, mgr := newSession(cfg)

		if loginGoogle {
			if cfg.Google.ClientID == "" {
				return fmt.Errorf("google.client_id is not configured")
			}

			state := uuid.NewString()
			cb := oauth.NewCallbackServer(state)
			redirectURI, err := cb.Start(cfg.Google.CallbackPort)
			if err != nil {
				return err
			}
			defer cb.Close()

			fmt.Println("Open this URL in your browser to sign in:")
			fmt.Println()
			fmt.Println("  " + oauth.AuthCodeURL(cfg.Google.ClientID, redirectURI, state))
			fmt.Println()

			code, err := cb.Wait(cmd.Context())
			if err != nil {
				return err
			}

			flow := oauth.NewFlow(client, mgr, redirectURI)
			if err := flow.Exchange(cmd.Context(), code); err != nil {
				return err
			}
		} else {
			password := loginPassword
			if password == "" {
				password = os.Getenv("AREA_PASSWORD")
			}
			if loginEmail == "" || password == "" {
				return fmt.Errorf("--email and --password (or AREA_PASSWORD) are required")
			}
			if err := mgr.Login(cmd.Context(), loginEmail, password); err != nil {
				return err
			}
		}

		if user := mgr.CurrentUser(); user != nil {
			fmt.Printf("Logged in as %s.\n", user.Email)
		} else {
			fmt.Println("Logged in.")
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		_, mgr := newSession(cfg)

		if !mgr.Authenticated() {
			fmt.Println("Not logged in.")
			return nil
		}
		if err := mgr.Logout(); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		_, mgr := newSession(cfg)

		if !mgr.Authenticated() {
			fmt.Println("Not logged in.")
			return nil
		}
		if user := mgr.CurrentUser(); user != nil {
			fmt.Printf("%s (%s)\n", user.Email, user.ID)
		} else {
			// Token present but no cached profile; tolerated.
			fmt.Println("Logged in (profile unavailable).")
		}
		if claims := mgr.Claims(); claims != nil && !claims.ExpiresAt.IsZero() {
			fmt.Printf("Token expires %s.\n", claims.ExpiresAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}
