package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"agentgift-economy/config"
	"agentgift-economy/handlers"
	"agentgift-economy/services"
	"agentgift-economy/utils"
	"agentgift-economy/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the economy HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().StringVar(&servePort, "port", "", "Listen port (overrides PORT)")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.Migrate(ctx); err != nil {
		return err
	}
	if err := a.svc.Progression.EnsureCatalog(ctx); err != nil {
		return err
	}

	a.svc.Recommend = newRecommender(a.cfg, a.svc.Access, a.svc.Ledger)

	if a.cfg.R2Enabled() {
		r2, err := utils.NewR2Store(ctx, utils.R2Config{
			AccountID:       a.cfg.R2AccountID,
			AccessKeyID:     a.cfg.R2AccessKeyID,
			AccessKeySecret: a.cfg.R2AccessSecret,
			Bucket:          a.cfg.R2Bucket,
			CDNBaseURL:      a.cfg.CDNBaseURL,
		})
		if err != nil {
			return err
		}
		a.svc.Icons = r2
	} else {
		log.Println("⚠️  R2 not configured, badge icon uploads disabled")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 4 * 1024 * 1024,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(a.cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, apikey, X-Requested-With, Cache-Control",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	handlers.SetupPublicRoutes(app, a.svc.Access.Rules)
	handlers.SetupProgressionRoutes(app, a.svc, a.cfg.SupabaseJWTSecret)
	handlers.SetupAdminRoutes(app, a.svc, a.cfg.SupabaseServiceRoleKey)

	sched, err := services.StartLevelReconciler(a.store, services.LevelReconcileInterval)
	if err != nil {
		return err
	}
	defer func() { _ = sched.Shutdown() }()

	if a.cfg.AuthSyncURL != "" {
		workers.NewAccountSyncWorker(a.svc.Accounts, a.cfg.AuthSyncURL, a.cfg.AuthSyncToken).Start(ctx)
	}

	port := a.cfg.Port
	if servePort != "" {
		port = servePort
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
			stop()
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Printf("✅ CORS configured for origins: %s", strings.Join(a.cfg.AllowedOrigins, ","))

	<-ctx.Done()
	log.Println("Shutting down server...")
	return app.ShutdownWithTimeout(10 * time.Second)
}

// newRecommender always returns a service. Without an API key every
// recommendation degrades and the charge is refunded.
func newRecommender(cfg *config.Config, access *services.AccessService, ledger *services.LedgerService) *services.RecommendService {
	client := services.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	if client == nil {
		log.Println("⚠️  OPENAI_API_KEY not set, gift recommendations will degrade")
	}
	return services.NewRecommendService(access, ledger, client, cfg.OpenAIModel)
}
