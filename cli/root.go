// Package cli is the agentgift command line: the HTTP server plus a few
// operator commands that act on the same database.
package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"agentgift-economy/config"
	"agentgift-economy/handlers"
	"agentgift-economy/services"
	"agentgift-economy/store"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "agentgift",
	Short: "AgentGift economy service",
	Long: `agentgift runs the AgentGift economy API: tiers, credits, XP,
badges and prestige. With no subcommand it starts the server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// economyApp is the service graph shared by serve and the admin commands.
type economyApp struct {
	cfg   *config.Config
	db    *gorm.DB
	store *store.GormStore
	cache *services.AccountCache
	svc   handlers.Services
}

// bootstrap loads configuration and wires the core services. Optional
// integrations (OpenAI, R2, sync) are left to the caller.
func bootstrap(ctx context.Context) (*economyApp, error) {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	rules, err := config.LoadRules(cfg.FeatureRulesFile)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	st := store.NewGormStore(db)

	cache, err := services.DialAccountCache(ctx, cfg.RedisURL, cfg.CacheTTL)
	if err != nil {
		// Run uncached.
		log.Printf("⚠️ [CACHE] Redis unavailable, serving from Postgres only: %v", err)
		cache = nil
	}

	var notifier services.Notifier
	if wh := services.NewWebhookNotifier(cfg.MakeWebhookURL); wh != nil {
		notifier = wh
	}

	accounts := services.NewAccountService(st, cache, cfg.StartingCredits)
	progression := services.NewProgressionService(st, accounts, notifier)
	ledger := services.NewLedgerService(st, accounts, progression)
	access := services.NewAccessService(accounts, ledger, rules)

	return &economyApp{
		cfg:   cfg,
		db:    db,
		store: st,
		cache: cache,
		svc: handlers.Services{
			Accounts:    accounts,
			Ledger:      ledger,
			Access:      access,
			Progression: progression,
			SocialProof: services.NewSocialProofService(ledger, cfg.SocialProofReward, cfg.OEmbedURL),
		},
	}, nil
}

func (a *economyApp) Close() {
	if err := a.cache.Close(); err != nil {
		log.Printf("⚠️ [CACHE] Close failed: %v", err)
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
