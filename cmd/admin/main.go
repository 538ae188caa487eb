// Command admin manages staff roles, pro grants and feature flag overrides.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"snapverse/internal/bootstrap"
	"snapverse/internal/config"
	"snapverse/internal/featureflags"
	"snapverse/internal/repository"
	"snapverse/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

type runtime struct {
	users *service.UserService
	flags *featureflags.Manager
	rdb   *redis.Client
}

var (
	rt      *runtime
	proDays int

	rootCmd = &cobra.Command{
		Use:   "admin",
		Short: "Operator utilities for a SnapVerse deployment",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
			if err != nil {
				return err
			}
			rt = &runtime{
				users: service.NewUserService(repository.NewUserRepository(db), repository.NewFollowRepository(db)),
				flags: featureflags.NewManager(cfg.FeatureFlags),
				rdb:   rdb,
			}
			if rdb != nil {
				rt.flags.WithOverrides(rdb)
			}
			return nil
		},
	}

	promoteStaffCmd = &cobra.Command{
		Use:   "promote-staff [username]",
		Short: "Grant staff access",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setRoles(cmd.Context(), args[0], true, false)
		},
	}
	promoteSuperuserCmd = &cobra.Command{
		Use:   "promote-superuser [username]",
		Short: "Grant superuser access, which implies staff",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setRoles(cmd.Context(), args[0], true, true)
		},
	}
	demoteStaffCmd = &cobra.Command{
		Use:   "demote-staff [username]",
		Short: "Remove staff and superuser access",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setRoles(cmd.Context(), args[0], false, false)
		},
	}
	listStaffCmd = &cobra.Command{
		Use:   "list-staff",
		Short: "List staff and superuser accounts",
		Args:  cobra.NoArgs,
		RunE:  listStaff,
	}

	grantProCmd = &cobra.Command{
		Use:   "grant-pro [username]",
		Short: "Open a pro window without a payment",
		Args:  cobra.ExactArgs(1),
		RunE:  grantPro,
	}
	revokeProCmd = &cobra.Command{
		Use:   "revoke-pro [username]",
		Short: "Close an open pro window now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := rt.users.RevokePro(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("✅ %s (ID: %d) is no longer pro\n", user.Username, user.ID)
			return nil
		},
	}

	flagsCmd = &cobra.Command{
		Use:   "flags",
		Short: "Inspect and override feature flags",
	}
	flagsListCmd = &cobra.Command{
		Use:   "list",
		Short: "Show effective flag values",
		Args:  cobra.NoArgs,
		RunE:  listFlags,
	}
	flagsSetCmd = &cobra.Command{
		Use:   "set [name] [value]",
		Short: "Override a flag with on, off or a rollout such as 25%",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRedis(); err != nil {
				return err
			}
			if err := rt.flags.Set(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("✅ %s=%s stored; running servers pick it up on their next refresh\n", args[0], args[1])
			return nil
		},
	}
	flagsClearCmd = &cobra.Command{
		Use:   "clear [name]",
		Short: "Drop an override so the configured value applies again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRedis(); err != nil {
				return err
			}
			if err := rt.flags.Clear(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("✅ override for %s cleared\n", args[0])
			return nil
		},
	}
)

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.AddCommand(promoteStaffCmd, promoteSuperuserCmd, demoteStaffCmd, listStaffCmd)

	grantProCmd.Flags().IntVar(&proDays, "days", 30, "Length of the pro window in days")
	rootCmd.AddCommand(grantProCmd, revokeProCmd)

	rootCmd.AddCommand(flagsCmd)
	flagsCmd.AddCommand(flagsListCmd, flagsSetCmd, flagsClearCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func requireRedis() error {
	if rt.rdb == nil {
		return errors.New("feature flag overrides need Redis; set REDIS_URL")
	}
	return nil
}

func setRoles(ctx context.Context, username string, staff, superuser bool) error {
	user, err := rt.users.SetRoles(ctx, username, staff, superuser)
	if err != nil {
		return err
	}
	fmt.Printf("✅ %s (ID: %d) staff=%t superuser=%t\n", user.Username, user.ID, user.IsStaff, user.IsSuperuser)
	return nil
}

func listStaff(cmd *cobra.Command, _ []string) error {
	staff, err := rt.users.ListStaff(cmd.Context())
	if err != nil {
		return err
	}
	if len(staff) == 0 {
		fmt.Println("No staff accounts found")
		return nil
	}

	fmt.Println("\n📋 Staff:")
	fmt.Println("─────────────────────────────────────")
	for _, u := range staff {
		role := "staff"
		if u.IsSuperuser {
			role = "superuser"
		}
		fmt.Printf("ID: %d | Username: %s | Email: %s | %s\n", u.ID, u.Username, u.Email, role)
	}
	fmt.Println("─────────────────────────────────────")
	return nil
}

func grantPro(cmd *cobra.Command, args []string) error {
	if proDays <= 0 {
		return fmt.Errorf("--days must be positive, got %d", proDays)
	}
	user, err := rt.users.GrantPro(cmd.Context(), args[0], time.Duration(proDays)*24*time.Hour)
	if err != nil {
		return err
	}
	fmt.Printf("✅ %s (ID: %d) is pro until %s\n", user.Username, user.ID, user.ProSubscriptionEnd.Format(time.RFC3339))
	return nil
}

func listFlags(cmd *cobra.Command, _ []string) error {
	if rt.rdb != nil {
		if err := rt.flags.Refresh(cmd.Context()); err != nil {
			return err
		}
	}
	raw := rt.flags.Raw()
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s=%s\n", name, raw[name])
	}
	return nil
}
