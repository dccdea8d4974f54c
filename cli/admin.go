package cli

import (
	"context"
	"fmt"
	"strconv"

	"agentgift-economy/economy"
	"agentgift-economy/services"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(grantCreditsCmd)
	rootCmd.AddCommand(grantXPCmd)
	rootCmd.AddCommand(prestigeCmd)
	rootCmd.AddCommand(reconcileLevelsCmd)

	grantCreditsCmd.Flags().String("reason", "admin_grant", "Ledger reason")
	grantXPCmd.Flags().String("reason", "admin_grant", "XP log reason")
}

// withApp runs fn against a bootstrapped service graph.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *economyApp) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func parseAmount(raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", economy.ErrInvalidAmount, raw)
	}
	return n, nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update tables and seed the badge catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *economyApp) error {
			if err := a.store.Migrate(ctx); err != nil {
				return err
			}
			if err := a.svc.Progression.EnsureCatalog(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✅ Schema migrated, badge catalog seeded")
			return nil
		})
	},
}

var grantCreditsCmd = &cobra.Command{
	Use:   "grant-credits USER_ID AMOUNT",
	Short: "Credit an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		reason, _ := cmd.Flags().GetString("reason")
		return withApp(cmd, func(ctx context.Context, a *economyApp) error {
			if _, err := a.svc.Accounts.Load(ctx, args[0]); err != nil {
				return err
			}
			acct, err := a.svc.Ledger.Credit(ctx, args[0], amount, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "💰 %s +%d credits, balance %d\n", acct.ID, amount, acct.Credits)
			return nil
		})
	},
}

var grantXPCmd = &cobra.Command{
	Use:   "grant-xp USER_ID XP",
	Short: "Award XP and run badge and prestige checks",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		xp, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		reason, _ := cmd.Flags().GetString("reason")
		return withApp(cmd, func(ctx context.Context, a *economyApp) error {
			if _, err := a.svc.Accounts.Load(ctx, args[0]); err != nil {
				return err
			}
			p, err := a.svc.Ledger.AwardXP(ctx, args[0], xp, reason)
			if err != nil {
				return err
			}
			printProgress(cmd, p)
			return nil
		})
	},
}

var prestigeCmd = &cobra.Command{
	Use:   "prestige USER_ID [RANK]",
	Short: "Run the automatic prestige check, or move to RANK",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *economyApp) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				rank, acct, err := a.svc.Progression.MaybePrestige(ctx, args[0])
				if err != nil {
					return err
				}
				if rank == nil {
					fmt.Fprintf(out, "%s is level %d, no prestige\n", acct.ID, economy.Level(acct.XP))
					return nil
				}
				fmt.Fprintf(out, "🏆 %s prestiged to %s\n", acct.ID, *rank)
				return nil
			}

			rank, err := economy.ParsePrestigeRank(args[1])
			if err != nil {
				return err
			}
			acct, err := a.svc.Progression.PrestigeTo(ctx, args[0], rank)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "🏆 %s is now %s, XP reset to %d\n", acct.ID, rank, acct.XP)
			return nil
		})
	},
}

var reconcileLevelsCmd = &cobra.Command{
	Use:   "reconcile-levels",
	Short: "Repair cached levels that drifted from XP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *economyApp) error {
			fixed, err := services.ReconcileLevels(ctx, a.store)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reconciled %d account(s)\n", fixed)
			return nil
		})
	},
}

func printProgress(cmd *cobra.Command, p *services.Progress) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "⭐ %s XP %d, level %d\n", p.Account.ID, p.Account.XP, economy.Level(p.Account.XP))
	for _, b := range p.Unlocked {
		fmt.Fprintf(out, "🎖️  unlocked %s\n", b)
	}
	if p.Prestige != nil {
		fmt.Fprintf(out, "🏆 prestiged to %s\n", *p.Prestige)
	}
}
