package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vaultindex/internal/app"
	"vaultindex/internal/config"
	"vaultindex/internal/model"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Reindex", "Serve").
func newApp(ctx context.Context, operation string) (*app.App, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.New(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "vaultindex",
	Short:        "Index local folders and keep the index in sync",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:   %s\n", cfg.HostID)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Database:  %s\n", cfg.Database.Type)
		fmt.Printf("Log Level: %s\n", cfg.Log.Level)
		if cfg.Metrics.ListenAddr != "" {
			fmt.Printf("Metrics:   %s\n", cfg.Metrics.ListenAddr)
		}
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the index database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		if err := app.Migrate(cmd.Context(), cfg); err != nil {
			return err
		}
		fmt.Println("Database is up to date.")
		return nil
	},
}

// vault command
var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage vaults",
}

var vaultCreateCmd = &cobra.Command{
	Use:   "create NAME PROVIDER SETTINGS",
	Short: "Create a vault",
	Long: `Create a vault. SETTINGS is a JSON object whose fields depend on the provider.

Example:
  vaultindex vault create docs local_folder '{"path": "/home/me/docs"}'`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "CreateVault")
		if err != nil {
			return err
		}
		defer a.Close()

		v, err := a.CreateVault(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}

		fmt.Printf("Created vault %s (%s)\n", v.Name, v.ID)
		return nil
	},
}

var vaultListCmd = &cobra.Command{
	Use:   "list",
	Short: "List vaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "ListVaults")
		if err != nil {
			return err
		}
		defer a.Close()

		vaults, err := a.ListVaults(cmd.Context())
		if err != nil {
			return err
		}

		if len(vaults) == 0 {
			fmt.Println("No vaults.")
			return nil
		}

		for _, v := range vaults {
			fmt.Printf("%s  %-20s  %-12s  %s\n", v.ID, v.Name, v.Provider, string(v.Data))
		}
		return nil
	},
}

// index command
var indexCmd = &cobra.Command{
	Use:   "index VAULT",
	Short: "Rebuild a vault's index from disk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Reindex")
		if err != nil {
			return err
		}
		defer a.Close()

		count, err := a.Reindex(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("reindex failed: %w", err)
		}

		fmt.Printf("Indexed %d entries\n", count)
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync VAULT PATH",
	Short: "Reconcile one path with the index",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Sync")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Sync(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}

		fmt.Printf("Synced %s\n", args[1])
		return nil
	},
}

// ls command
var lsCmd = &cobra.Command{
	Use:   "ls VAULT",
	Short: "List indexed entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts app.ListOptions
		opts.Parent, _ = cmd.Flags().GetString("parent")
		opts.After, _ = cmd.Flags().GetString("after")
		opts.Search, _ = cmd.Flags().GetString("search")
		opts.Limit, _ = cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), "List")
		if err != nil {
			return err
		}
		defer a.Close()

		recs, err := a.List(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}

		if len(recs) == 0 {
			fmt.Println("No entries.")
			return nil
		}

		for _, r := range recs {
			kind := "f"
			if r.Kind == model.KindFolder {
				kind = "d"
			}
			size := "-"
			if r.Size != nil {
				size = fmt.Sprintf("%d", *r.Size)
			}
			fmt.Printf("%s  %s  %10s  %s\n", r.ID, kind, size, r.PathID)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View index run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), "History")
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No index runs recorded.")
			return nil
		}

		for _, run := range runs {
			duration := ""
			if run.FinishedAt != nil {
				duration = run.FinishedAt.Sub(run.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %s  %s  %-8s  %6d  %s  %s\n",
				run.ID,
				run.VaultID,
				run.StartedAt.Format("2006-01-02 15:04:05"),
				run.Status,
				run.EntryCount,
				duration,
				run.Error,
			)
		}
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch all local folder vaults",
	Long:  "Watch all local folder vaults until interrupted. SIGHUP reindexes every watched vault.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)

		a, err := newApp(ctx, "Serve")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Serve(ctx, hup)
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	dbCmd.AddCommand(dbMigrateCmd)

	vaultCmd.AddCommand(vaultCreateCmd)
	vaultCmd.AddCommand(vaultListCmd)

	lsCmd.Flags().String("parent", "", "List children of this folder (record ID or absolute path)")
	lsCmd.Flags().String("after", "", "Start after this record ID")
	lsCmd.Flags().StringP("search", "s", "", "Case-insensitive name substring; searches the whole vault unless --parent is set")
	lsCmd.Flags().IntP("limit", "n", 0, "Maximum number of entries (default 100, max 1000)")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(vaultCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", app.DefaultHistoryLimit, "Maximum number of runs to show")
	rootCmd.AddCommand(serveCmd)
}
