// areactl is the command-line client for the Area automation platform:
// sessions, the Service/Action/Reaction catalog, Area bindings, and
// execution history.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/areactl/internal/config"
	"github.com/user/areactl/internal/session"
	"github.com/user/areactl/pkg/api"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "areactl",
	Short:         "Client for the Area automation platform",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	defaultPath := filepath.Join(os.Getenv("HOME"), ".areactl", "config.json")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultPath, "config file path")
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// newSession builds the API client and session manager pair shared by all
// commands. A configured auth.token bypasses the session store.
func newSession(cfg *config.Config) (*api.Client, *session.Manager) {
	opts := []api.Option{
		api.WithTimeout(time.Duration(cfg.RequestTimeoutSec) * time.Second),
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, api.WithRateLimit(cfg.RateLimit))
	}
	client := api.New(cfg.Server, opts...)

	mgr := session.NewManager(client, session.NewStore(cfg.DataDir))
	if cfg.Auth.Token != "" {
		token := cfg.Auth.Token
		client.SetTokenSource(func() string { return token })
	} else {
		client.SetTokenSource(mgr.Token)
	}
	client.SetUnauthorizedHook(mgr.Invalidate)
	return client, mgr
}

// webBase is the public web root for server-rendered fallback pages.
func webBase(cfg *config.Config) string {
	if cfg.WebBase != "" {
		return cfg.WebBase
	}
	return cfg.Server
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
