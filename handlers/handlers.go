// Package handlers wires the economy services to fiber routes.
package handlers

import (
	"context"
	"errors"
	"log"
	"mime/multipart"

	"agentgift-economy/economy"
	"agentgift-economy/services"
	"agentgift-economy/store"

	"github.com/gofiber/fiber/v2"
)

// IconUploader stores a badge icon and returns its public URL.
type IconUploader interface {
	UploadBadgeIcon(ctx context.Context, badgeID string, fileHeader *multipart.FileHeader) (string, error)
}

// Services is everything the routes call into. Recommend, SocialProof and
// Icons may be nil; their routes then answer 503.
type Services struct {
	Accounts    *services.AccountService
	Ledger      *services.LedgerService
	Access      *services.AccessService
	Progression *services.ProgressionService
	Recommend   *services.RecommendService
	SocialProof *services.SocialProofService
	Icons       IconUploader
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, economy.ErrInvalidAmount),
		errors.Is(err, economy.ErrUnknownTier),
		errors.Is(err, economy.ErrUnknownPrestige),
		errors.Is(err, services.ErrInvalidBadge),
		errors.Is(err, services.ErrInvalidShareURL),
		errors.Is(err, services.ErrEmptyPrompt):
		return fiber.StatusBadRequest
	case errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrBadgeNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, economy.ErrPrestigeDowngrade):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// fail answers err with the matching status. Server errors are logged.
func fail(c *fiber.Ctx, msg string, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("❌ [HTTP] %s %s: %s: %v", c.Method(), c.Path(), msg, err)
		return c.Status(status).JSON(fiber.Map{
			"error": "internal server error",
			"cause": msg,
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid JSON",
		"cause": err.Error(),
	})
}

func unavailable(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": what + " is not configured",
	})
}

// decisionStatus is 200 for a grant, 401 for no_auth and 403 otherwise.
func decisionStatus(d economy.AccessDecision) int {
	switch {
	case d.Granted:
		return fiber.StatusOK
	case d.Reason == economy.ReasonNoAuth:
		return fiber.StatusUnauthorized
	}
	return fiber.StatusForbidden
}
