// handlers/admin_routes.go
package handlers

import (
	"log"
	"sort"
	"strings"

	"agentgift-economy/commands"
	"agentgift-economy/economy"
	"agentgift-economy/middleware"

	"github.com/gofiber/fiber/v2"
)

type userAmountReq struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

func (r *userAmountReq) reasonOr(def string) string {
	if strings.TrimSpace(r.Reason) == "" {
		return def
	}
	return r.Reason
}

func missingUser(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "user_id is required",
	})
}

func SetupAdminRoutes(app *fiber.App, svc Services, serviceRoleKey string) {
	admin := app.Group("/s/admin", middleware.ServiceRoleMiddleware(serviceRoleKey))

	admin.Get("/accounts/:id", func(c *fiber.Ctx) error {
		acct, err := svc.Accounts.Fresh(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, "failed to load account", err)
		}
		return c.JSON(acct)
	})

	admin.Post("/credits/grant", func(c *fiber.Ctx) error {
		var req userAmountReq
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		if req.UserID == "" {
			return missingUser(c)
		}
		if _, err := svc.Accounts.Load(c.UserContext(), req.UserID); err != nil {
			return fail(c, "failed to load account", err)
		}
		acct, err := svc.Ledger.Credit(c.UserContext(), req.UserID, req.Amount, req.reasonOr("admin_grant"))
		if err != nil {
			return fail(c, "credit grant failed", err)
		}
		return c.JSON(fiber.Map{"success": true, "user_id": req.UserID, "balance": acct.Credits})
	})

	admin.Post("/credits/debit", func(c *fiber.Ctx) error {
		var req userAmountReq
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		if req.UserID == "" {
			return missingUser(c)
		}
		res, err := svc.Ledger.Debit(c.UserContext(), req.UserID, req.Amount, req.reasonOr("admin_debit"))
		if err != nil {
			return fail(c, "debit failed", err)
		}
		if !res.Success {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"reason":  economy.ReasonInsufficientCredits,
				"balance": res.Balance,
			})
		}
		return c.JSON(res)
	})

	admin.Post("/xp/grant", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id"`
			XP     int64  `json:"xp"`
			Reason string `json:"reason"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		if req.UserID == "" {
			return missingUser(c)
		}
		if req.Reason == "" {
			req.Reason = "admin_grant"
		}
		if _, err := svc.Accounts.Load(c.UserContext(), req.UserID); err != nil {
			return fail(c, "failed to load account", err)
		}
		p, err := svc.Ledger.AwardXP(c.UserContext(), req.UserID, req.XP, req.Reason)
		if err != nil {
			return fail(c, "XP award failed", err)
		}
		return c.JSON(fiber.Map{
			"message":         "XP granted successfully",
			"user_id":         req.UserID,
			"xp":              p.Account.XP,
			"level":           economy.Level(p.Account.XP),
			"badges_unlocked": p.Unlocked,
			"prestige":        p.Prestige,
		})
	})

	admin.Post("/tier", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id"`
			Tier   string `json:"tier"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		if req.UserID == "" {
			return missingUser(c)
		}
		if _, err := svc.Accounts.Load(c.UserContext(), req.UserID); err != nil {
			return fail(c, "failed to load account", err)
		}
		acct, err := svc.Accounts.SetTier(c.UserContext(), req.UserID, req.Tier)
		if err != nil {
			return fail(c, "tier change failed", err)
		}
		return c.JSON(fiber.Map{"success": true, "user_id": acct.ID, "tier": acct.Tier})
	})

	admin.Post("/prestige", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id"`
			Rank   string `json:"rank"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		if req.UserID == "" {
			return missingUser(c)
		}

		if req.Rank == "" {
			rank, acct, err := svc.Progression.MaybePrestige(c.UserContext(), req.UserID)
			if err != nil {
				return fail(c, "prestige check failed", err)
			}
			return c.JSON(fiber.Map{"success": true, "prestiged": rank != nil, "prestige": acct.Prestige(), "xp": acct.XP})
		}

		rank, err := economy.ParsePrestigeRank(req.Rank)
		if err != nil {
			return fail(c, "invalid rank", err)
		}
		acct, err := svc.Progression.PrestigeTo(c.UserContext(), req.UserID, rank)
		if err != nil {
			return fail(c, "prestige failed", err)
		}
		return c.JSON(fiber.Map{"success": true, "prestiged": true, "prestige": acct.Prestige(), "xp": acct.XP})
	})

	admin.Get("/badges", func(c *fiber.Ctx) error {
		badges, err := svc.Progression.Catalog(c.UserContext())
		if err != nil {
			return fail(c, "failed to list badges", err)
		}
		return c.JSON(badges)
	})

	admin.Post("/badges", func(c *fiber.Ctx) error {
		type Req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Rarity      string `json:"rarity"`
			XPReward    int64  `json:"xp_reward"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		badge, err := svc.Progression.CreateBadge(c.UserContext(), req.Name, req.Description, req.Rarity, req.XPReward)
		if err != nil {
			return fail(c, "failed to create badge", err)
		}
		return c.Status(fiber.StatusCreated).JSON(badge)
	})

	admin.Post("/badges/:id/unlock", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		if req.UserID == "" {
			return missingUser(c)
		}
		ctx := c.UserContext()
		if _, err := svc.Accounts.Load(ctx, req.UserID); err != nil {
			return fail(c, "failed to load account", err)
		}
		granted, _, err := svc.Progression.Unlock(ctx, req.UserID, c.Params("id"))
		if err != nil {
			return fail(c, "badge unlock failed", err)
		}
		p, err := svc.Progression.Settle(ctx, req.UserID)
		if err != nil {
			return fail(c, "progress settle failed", err)
		}
		return c.JSON(fiber.Map{
			"success":         true,
			"granted":         granted,
			"xp":              p.Account.XP,
			"level":           economy.Level(p.Account.XP),
			"badges_unlocked": p.Unlocked,
			"prestige":        p.Prestige,
		})
	})

	admin.Post("/badges/:id/icon", func(c *fiber.Ctx) error {
		if svc.Icons == nil {
			return unavailable(c, "icon storage")
		}
		badgeID := c.Params("id")
		fileHeader, err := c.FormFile("icon")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "icon file is required",
				"cause": err.Error(),
			})
		}
		if _, err := svc.Progression.Store.GetBadge(c.UserContext(), badgeID); err != nil {
			return fail(c, "unknown badge", err)
		}
		url, err := svc.Icons.UploadBadgeIcon(c.UserContext(), badgeID, fileHeader)
		if err != nil {
			log.Printf("❌ [ADMIN] Icon upload failed for %s: %v", badgeID, err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "icon upload failed",
				"cause": err.Error(),
			})
		}
		if err := svc.Progression.SetBadgeIcon(c.UserContext(), badgeID, url); err != nil {
			return fail(c, "failed to save icon", err)
		}
		return c.JSON(fiber.Map{"success": true, "badge_id": badgeID, "icon_url": url})
	})

	admin.Post("/commands", func(c *fiber.Ctx) error {
		type Req struct {
			Text string `json:"text"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		res := commands.Run(req.Text)
		log.Printf("🤖 [ADMIN] Command %q → %s %s", req.Text, res.Intent.Kind, res.Intent.Bot)
		return c.JSON(res)
	})
}

// SetupPublicRoutes serves the rule table and a liveness probe.
func SetupPublicRoutes(app *fiber.App, rules economy.RuleSet) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/features", func(c *fiber.Ctx) error {
		list := make([]economy.FeatureRule, 0, len(rules))
		for _, r := range rules {
			list = append(list, r)
		}
		sort.Slice(list, func(i, j int) bool {
			ri, rj := economy.Rank(string(list[i].RequiredTier)), economy.Rank(string(list[j].RequiredTier))
			if ri != rj {
				return ri < rj
			}
			return list[i].Key < list[j].Key
		})
		return c.JSON(fiber.Map{"features": list})
	})
}
