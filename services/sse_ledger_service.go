package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"agentgift-economy/models"

	"github.com/gofiber/fiber/v2"
)

// LedgerStreamInterval is how often the stream polls for new transactions.
var LedgerStreamInterval = 2 * time.Second

// StreamLedgerSSE pushes the caller's new credit transactions as
// "transaction" events so clients can drop their cached balance.
func (s *LedgerService) StreamLedgerSSE(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	cursor := newLedgerCursor(s.now().Truncate(time.Microsecond))
	done := c.Context().Done()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(LedgerStreamInterval)
		defer ticker.Stop()

		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				txs, err := s.poll(ctx, userID, cursor)
				cancel()
				if err != nil {
					log.Printf("SSE ledger query error for user %s: %v", userID, err)
					continue
				}
				if len(txs) == 0 {
					if _, err := w.WriteString(":\n\n"); err != nil {
						return
					}
					if err := w.Flush(); err != nil {
						return
					}
					continue
				}

				for _, tx := range txs {
					payload, _ := json.Marshal(tx)
					fmt.Fprintf(w, "event: transaction\ndata: %s\n\n", payload)
				}
				if err := w.Flush(); err != nil {
					return
				}

			case <-done:
				return
			}
		}
	})

	return nil
}

// ledgerCursor tracks the stream position. Rows sharing the cursor
// timestamp are refetched, so the IDs already sent at that instant are
// remembered and skipped.
type ledgerCursor struct {
	at   time.Time
	sent map[string]struct{}
}

func newLedgerCursor(at time.Time) *ledgerCursor {
	return &ledgerCursor{at: at, sent: map[string]struct{}{}}
}

// advance filters txs (oldest first) down to the unsent ones and moves
// the cursor to the newest.
func (c *ledgerCursor) advance(txs []models.CreditTransaction) []models.CreditTransaction {
	var fresh []models.CreditTransaction
	for _, tx := range txs {
		if tx.CreatedAt.Before(c.at) {
			continue
		}
		if tx.CreatedAt.Equal(c.at) {
			if _, ok := c.sent[tx.ID]; ok {
				continue
			}
		} else {
			c.at = tx.CreatedAt
			c.sent = map[string]struct{}{}
		}
		c.sent[tx.ID] = struct{}{}
		fresh = append(fresh, tx)
	}
	return fresh
}

func (s *LedgerService) poll(ctx context.Context, userID string, cursor *ledgerCursor) ([]models.CreditTransaction, error) {
	txs, err := s.Since(ctx, userID, cursor.at)
	if err != nil {
		return nil, err
	}
	return cursor.advance(txs), nil
}
