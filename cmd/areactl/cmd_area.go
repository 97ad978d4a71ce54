package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/areactl/internal/resources"
	"github.com/user/areactl/internal/watch"
	"github.com/user/areactl/pkg/api"
)

var (
	areaAction         string
	areaReaction       string
	areaConfigAction   string
	areaConfigReaction string
	areaDisabled       bool
	logsFollow         bool
	logsInterval       time.Duration
)

func init() {
	rootCmd.AddCommand(areaCmd)
	areaCmd.AddCommand(areaListCmd, areaCreateCmd, areaDeleteCmd, areaLogsCmd)

	areaCreateCmd.Flags().StringVar(&areaAction, "action", "", "action id (trigger)")
	areaCreateCmd.Flags().StringVar(&areaReaction, "reaction", "", "reaction id (effect)")
	areaCreateCmd.Flags().StringVar(&areaConfigAction, "config-action", "{}", "action config as JSON")
	areaCreateCmd.Flags().StringVar(&areaConfigReaction, "config-reaction", "{}", "reaction config as JSON")
	areaCreateCmd.Flags().BoolVar(&areaDisabled, "disabled", false, "create the area disabled")
	areaCreateCmd.MarkFlagRequired("action")
	areaCreateCmd.MarkFlagRequired("reaction")

	areaLogsCmd.Flags().BoolVar(&logsFollow, "follow", false, "poll for new logs")
	areaLogsCmd.Flags().DurationVar(&logsInterval, "interval", 5*time.Second, "poll interval with --follow")
}

var areaCmd = &cobra.Command{
	Use:   "area",
	Short: "Manage automation areas",
}

var areaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your areas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		client, _ := newSession(cfg)
		store := resources.NewAreaStore(client)

		if err := store.Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("list areas: %w", err)
		}

		areas := store.Areas()
		if len(areas) == 0 {
			fmt.Println("No areas found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tACTION\tREACTION\tENABLED\tCREATED")
		for _, a := range areas {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
				a.ID,
				a.Action,
				a.Reaction,
				a.Enabled,
				a.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		return w.Flush()
	},
}

var areaCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Bind an action to a reaction",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		client, _ := newSession(cfg)
		store := resources.NewAreaStore(client)

		var configAction, configReaction map[string]any
		if err := json.Unmarshal([]byte(areaConfigAction), &configAction); err != nil {
			return fmt.Errorf("parse --config-action: %w", err)
		}
		if err := json.Unmarshal([]byte(areaConfigReaction), &configReaction); err != nil {
			return fmt.Errorf("parse --config-reaction: %w", err)
		}

		created, err := store.Create(cmd.Context(), api.AreaDraft{
			Action:         areaAction,
			Reaction:       areaReaction,
			ConfigAction:   configAction,
			ConfigReaction: configReaction,
			Enabled:        !areaDisabled,
		})
		if err != nil {
			return fmt.Errorf("create area: %w", err)
		}
		fmt.Printf("Created area %s.\n", created.ID)
		return nil
	},
}

var areaDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an area",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		client, _ := newSession(cfg)
		store := resources.NewAreaStore(client)

		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("delete area: %w", err)
		}
		fmt.Printf("Deleted area %s.\n", args[0])
		return nil
	},
}

var areaLogsCmd = &cobra.Command{
	Use:   "logs [area-id]",
	Short: "Show execution history, optionally for one area",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		client, _ := newSession(cfg)
		store := resources.NewAreaStore(client)

		areaID := ""
		if len(args) == 1 {
			areaID = args[0]
		}

		logs, err := store.Logs(cmd.Context(), areaID)
		if err != nil {
			return fmt.Errorf("fetch logs: %w", err)
		}
		for _, l := range logs {
			printLog(l)
		}

		if !logsFollow {
			if len(logs) == 0 {
				fmt.Println("No logs found.")
			}
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w := watch.New(store, areaID, logsInterval, printLog)
		w.Prime(logs)
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func printLog(l api.ExecutionLog) {
	fmt.Printf("%s  %-8s  area=%s  %s\n",
		l.ExecutedAt.Format("2006-01-02 15:04:05"),
		l.Status,
		l.AreaID,
		l.Message,
	)
}
