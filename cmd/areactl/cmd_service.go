package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/areactl/internal/resources"
	"github.com/user/areactl/pkg/api"
)

var (
	subAccessToken  string
	subRefreshToken string
	subExpiresAt    string
)

func init() {
	rootCmd.AddCommand(serviceCmd)
	serviceCmd.AddCommand(serviceListCmd, serviceShowCmd, serviceActionsCmd,
		serviceReactionsCmd, serviceSubscribeCmd, serviceUnsubscribeCmd, serviceSubscriptionsCmd)

	serviceSubscribeCmd.Flags().StringVar(&subAccessToken, "access-token", "", "third-party access token")
	serviceSubscribeCmd.Flags().StringVar(&subRefreshToken, "refresh-token", "", "third-party refresh token")
	serviceSubscribeCmd.Flags().StringVar(&subExpiresAt, "expires-at", "", "token expiry (RFC 3339)")
	serviceSubscribeCmd.MarkFlagRequired("access-token")
}

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Browse services and manage subscriptions",
}

var serviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available services",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		client, _ := newSession(cfg)
		store := resources.NewServiceStore(client)

		if err := store.Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("list services: %w", err)
		}

		services := store.Services()
		if len(services) == 0 {
			fmt.Println("No services found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tACTIONS\tREACTIONS")
		for _, s := range services {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", s.ID, s.DisplayName, s.ActionsCount, s.ReactionsCount)
		}
		return w.Flush()
	},
}

var serviceShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one service with its full catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		client, _ := newSession(cfg)
		store := resources.NewServiceStore(client)

		detail, err := store.Detail(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("service detail: %w", err)
		}

		fmt.Printf("%s (%s)\n", detail.DisplayName, detail.ID)
		if len(detail.Actions) > 0 {
			fmt.Println("\nActions:")
			printCapabilities(actionRows(detail.Actions))
		}
		if len(detail.Reactions) > 0 {
			fmt.Println("\nReactions:")
			printCapabilities(reactionRows(detail.Reactions))
		}
		return nil
	},
}

var serviceActionsCmd = &cobra.Command{
	Use:   "actions <id>",
	Short: "List a service's actions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		client, _ := newSession(cfg)
		store := resources.NewServiceStore(client)

		if err := store.Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("refresh services: %w", err)
		}
		acts := store.Actions(args[0])
		if len(acts) == 0 {
			fmt.Println("No actions found.")
			return nil
		}
		printCapabilities(actionRows(acts))
		return nil
	},
}

var serviceReactionsCmd = &cobra.Command{
	Use:   "reactions <id>",
	Short: "List a service's reactions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		client, _ := newSession(cfg)
		store := resources.NewServiceStore(client)

		if err := store.Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("refresh services: %w", err)
		}
		reacts := store.Reactions(args[0])
		if len(reacts) == 0 {
			fmt.Println("No reactions found.")
			return nil
		}
		printCapabilities(reactionRows(reacts))
		return nil
	},
}

var serviceSubscribeCmd = &cobra.Command{
	Use:   "subscribe <id>",
	Short: "Attach a third-party credential to a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		client, _ := newSession(cfg)
		store := resources.NewServiceStore(client)

		err := store.Subscribe(cmd.Context(), args[0], api.Credential{
			AccessToken:  subAccessToken,
			RefreshToken: subRefreshToken,
			ExpiresAt:    subExpiresAt,
		})
		if err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		fmt.Printf("Subscribed to %s.\n", args[0])
		return nil
	},
}

var serviceUnsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe <id>",
	Short: "Detach the stored credential from a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		client, _ := newSession(cfg)
		store := resources.NewServiceStore(client)

		if err := store.Unsubscribe(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("unsubscribe: %w", err)
		}
		fmt.Printf("Unsubscribed from %s.\n", args[0])
		return nil
	},
}

var serviceSubscriptionsCmd = &cobra.Command{
	Use:   "subscriptions",
	Short: "List your service subscriptions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		client, _ := newSession(cfg)
		store := resources.NewServiceStore(client)

		subs, err := store.Subscriptions(cmd.Context())
		if err != nil {
			return fmt.Errorf("list subscriptions: %w", err)
		}
		if len(subs) == 0 {
			fmt.Println("No subscriptions found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SERVICE\tSINCE")
		for _, s := range subs {
			fmt.Fprintf(w, "%s\t%s\n", s.Service, s.CreatedAt.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

type capabilityRow struct {
	id, name, description string
}

func actionRows(acts []api.Action) []capabilityRow {
	rows := make([]capabilityRow, len(acts))
	for i, a := range acts {
		rows[i] = capabilityRow{a.ID, a.Name, a.Description}
	}
	return rows
}

func reactionRows(reacts []api.Reaction) []capabilityRow {
	rows := make([]capabilityRow, len(reacts))
	for i, r := range reacts {
		rows[i] = capabilityRow{r.ID, r.Name, r.Description}
	}
	return rows
}

func printCapabilities(rows []capabilityRow) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.id, r.name, r.description)
	}
	w.Flush()
}
