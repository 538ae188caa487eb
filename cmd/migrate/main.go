// Command migrate applies, inspects and reverts the SnapVerse schema.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"snapverse/internal/config"
	"snapverse/internal/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	cfg *config.Config
	db  *gorm.DB

	rootCmd = &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the SnapVerse database schema",
		SilenceUsage: true,
	}

	upCmd = &cobra.Command{
		Use:     "up",
		Short:   "Apply pending SQL migrations",
		Args:    cobra.NoArgs,
		PreRunE: connect,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := database.NewMigrator(db, database.GetMigrations()).Up(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("applied %d migration(s)\n", n)
			return nil
		},
	}

	autoCmd = &cobra.Command{
		Use:     "auto",
		Short:   "Run GORM AutoMigrate over every persistent model",
		Args:    cobra.NoArgs,
		PreRunE: connect,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.DBSchemaMode = database.SchemaModeAuto
			if err := database.ApplySchema(cmd.Context(), db, cfg); err != nil {
				return err
			}
			fmt.Println("automigrate finished")
			return nil
		},
	}

	statusCmd = &cobra.Command{
		Use:     "status",
		Short:   "Show the schema policy and pending migrations",
		Args:    cobra.NoArgs,
		PreRunE: connect,
		RunE:    printStatus,
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List the migrations embedded in this binary",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			for _, m := range database.GetMigrations() {
				fmt.Printf("%s  %s\n", m.String(), m.Checksum()[:12])
			}
		},
	}

	downCmd = &cobra.Command{
		Use:     "down [version]",
		Short:   "Revert the newest applied migration",
		Args:    cobra.MaximumNArgs(1),
		PreRunE: connect,
		RunE: func(cmd *cobra.Command, args []string) error {
			version := 0
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				version = v
			}
			m, err := database.RollbackMigration(cmd.Context(), db, version)
			if err != nil {
				return err
			}
			fmt.Printf("reverted %s\n", m.String())
			return nil
		},
	}
)

func connect(_ *cobra.Command, _ []string) error {
	var err error
	if cfg, err = config.LoadConfig(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err = database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	return nil
}

func printStatus(cmd *cobra.Command, _ []string) error {
	status, err := database.GetSchemaStatus(cmd.Context(), db, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("mode:        %s\n", status.Mode)
	fmt.Printf("environment: %s\n", status.Environment)
	fmt.Printf("sql:         %t\n", status.WillRunSQL)
	fmt.Printf("automigrate: %t\n", status.WillRunAutoMigrate)
	if !status.WillRunSQL {
		return nil
	}
	fmt.Printf("applied:     %v\n", status.AppliedVersions)
	if len(status.PendingMigrations) == 0 {
		fmt.Println("pending:     none")
		return nil
	}
	for _, m := range status.PendingMigrations {
		fmt.Printf("pending:     %s\n", m.String())
	}
	return nil
}

func init() {
	rootCmd.AddCommand(upCmd, autoCmd, statusCmd, listCmd, downCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
