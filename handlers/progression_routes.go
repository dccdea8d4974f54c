// handlers/progression_routes.go
package handlers

import (
	"time"

	"agentgift-economy/economy"
	"agentgift-economy/middleware"
	"agentgift-economy/models"
	"agentgift-economy/services"

	"github.com/gofiber/fiber/v2"
)

func profileView(acct *models.UserAccount, now time.Time) fiber.Map {
	tier, _ := economy.ParseTier(acct.Tier)
	view := fiber.Map{
		"id":               acct.ID,
		"tier":             acct.Tier,
		"tier_name":        tier.DisplayName(),
		"credits":          acct.Credits,
		"xp":               acct.XP,
		"level":            economy.Level(acct.XP),
		"progress_percent": economy.ProgressPercent(acct.XP),
		"xp_to_next_level": economy.XPToNextLevel(acct.XP),
		"prestige_level":   acct.PrestigeLevel,
		"badges":           acct.Badges,
		"season":           nil,
	}
	if s, ok := economy.ActiveSeason(now); ok {
		view["season"] = s
	}
	return view
}

func SetupProgressionRoutes(app *fiber.App, svc Services, jwtSecret string) {
	// 🔐 Session-aware routes. Signed-out callers pass the session
	// middleware; RequireSession turns them away where a user is needed.
	user := app.Group("/user", middleware.SessionMiddleware(jwtSecret))
	signedIn := middleware.RequireSession()

	user.Get("/profile", signedIn, func(c *fiber.Ctx) error {
		acct, err := svc.Accounts.Load(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return fail(c, "failed to load profile", err)
		}
		return c.JSON(profileView(acct, time.Now()))
	})

	user.Get("/access/:feature", func(c *fiber.Ctx) error {
		d, err := svc.Access.Check(c.UserContext(), middleware.UserID(c), c.Params("feature"))
		if err != nil {
			return fail(c, "access check failed", err)
		}
		return c.Status(decisionStatus(d)).JSON(d)
	})

	user.Post("/features/gift_recommendation/use", func(c *fiber.Ctx) error {
		if svc.Recommend == nil {
			return unavailable(c, "gift recommendation")
		}
		var req services.RecommendRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		userID := middleware.UserID(c)
		if userID == "" {
			d := economy.CheckAccess(nil, services.FeatureGiftRecommendation, svc.Access.Rules)
			return c.Status(decisionStatus(d)).JSON(d)
		}

		res, err := svc.Recommend.Recommend(c.UserContext(), userID, req)
		if err != nil {
			return fail(c, "recommendation failed", err)
		}
		if !res.Decision.Granted {
			return c.Status(decisionStatus(res.Decision)).JSON(res.Decision)
		}
		return c.JSON(fiber.Map{
			"success":     true,
			"suggestions": res.Suggestions,
			"degraded":    res.Degraded,
			"balance":     res.Balance,
			"xp_gained":   res.XPGained,
		})
	})

	user.Post("/features/:feature/use", func(c *fiber.Ctx) error {
		res, err := svc.Access.Use(c.UserContext(), middleware.UserID(c), c.Params("feature"))
		if err != nil {
			return fail(c, "feature use failed", err)
		}
		if !res.Decision.Granted {
			return c.Status(decisionStatus(res.Decision)).JSON(res.Decision)
		}
		out := fiber.Map{"success": true, "feature": res.Decision.Feature, "cost": res.Decision.Cost}
		if res.Debit != nil {
			out["balance"] = res.Debit.Balance
			out["xp_gained"] = res.Debit.XPGained
			out["level"] = res.Debit.Level
			out["leveled_up"] = res.Debit.LeveledUp
			out["badges_unlocked"] = res.Debit.Unlocked
			out["prestige"] = res.Debit.Prestige
		}
		return c.JSON(out)
	})

	user.Get("/ledger", signedIn, func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 20)
		txs, err := svc.Ledger.History(c.UserContext(), middleware.UserID(c), limit)
		if err != nil {
			return fail(c, "failed to get ledger", err)
		}
		return c.JSON(fiber.Map{"transactions": txs})
	})

	user.Get("/ledger/stream", middleware.StreamSessionMiddleware(jwtSecret), svc.Ledger.StreamLedgerSSE)

	user.Get("/badges", signedIn, func(c *fiber.Ctx) error {
		acct, err := svc.Accounts.Load(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return fail(c, "failed to load account", err)
		}
		catalog, err := svc.Progression.Catalog(c.UserContext())
		if err != nil {
			return fail(c, "failed to get badges", err)
		}
		held := make([]models.Badge, 0, len(acct.Badges))
		for _, b := range catalog {
			if acct.HasBadge(b.ID) {
				held = append(held, b)
			}
		}
		return c.JSON(fiber.Map{"badges": held, "total": len(catalog)})
	})

	user.Post("/badges/check", signedIn, func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		if _, err := svc.Accounts.Load(c.UserContext(), userID); err != nil {
			return fail(c, "failed to load account", err)
		}
		p, err := svc.Progression.Settle(c.UserContext(), userID)
		if err != nil {
			return fail(c, "badge check failed", err)
		}
		return c.JSON(fiber.Map{
			"success":         true,
			"badges_unlocked": p.Unlocked,
			"prestige":        p.Prestige,
			"xp":              p.Account.XP,
			"level":           economy.Level(p.Account.XP),
		})
	})

	user.Post("/social-proof", signedIn, func(c *fiber.Ctx) error {
		if svc.SocialProof == nil {
			return unavailable(c, "social proof")
		}
		var req services.ShareRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		userID := middleware.UserID(c)
		d, err := svc.Access.Check(c.UserContext(), userID, "social_proof")
		if err != nil {
			return fail(c, "access check failed", err)
		}
		if !d.Granted {
			return c.Status(decisionStatus(d)).JSON(d)
		}
		res, err := svc.SocialProof.Verify(c.UserContext(), userID, req)
		if err != nil {
			return fail(c, "social proof failed", err)
		}
		return c.JSON(res)
	})
}
