// workers/account_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"agentgift-economy/models"
)

const DefaultSyncInterval = time.Minute

// RemoteUser is one row of the auth provider's change feed.
type RemoteUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserChangesResponse is the top-level structure of the feed response.
type UserChangesResponse struct {
	Users []RemoteUser `json:"users"`
}

// Provisioner creates an account with its signup grant when none exists.
type Provisioner interface {
	Provision(ctx context.Context, userID string) (*models.UserAccount, bool, error)
}

// AccountSyncWorker polls the auth provider for new signups and provisions
// their economy accounts ahead of the first request.
type AccountSyncWorker struct {
	accounts     Provisioner
	interval     time.Duration
	endpoint     string
	serviceToken string
	httpClient   *http.Client

	since time.Time
}

func NewAccountSyncWorker(accounts Provisioner, endpoint, serviceToken string) *AccountSyncWorker {
	return &AccountSyncWorker{
		accounts:     accounts,
		interval:     DefaultSyncInterval,
		endpoint:     endpoint,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithInterval overrides the polling period.
func (w *AccountSyncWorker) WithInterval(d time.Duration) *AccountSyncWorker {
	if d > 0 {
		w.interval = d
	}
	return w
}

// Since is the cursor for the next poll.
func (w *AccountSyncWorker) Since() time.Time { return w.since }

func (w *AccountSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Account Sync Worker (auth provider → user_profiles)…")
	go w.run(ctx)
}

func (w *AccountSyncWorker) run(ctx context.Context) {
	// Initial sync from the beginning of time
	if _, err := w.SyncOnce(ctx); err != nil {
		log.Printf("⚠️ [SYNC] Initial sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.SyncOnce(ctx); err != nil {
				log.Printf("❌ [SYNC] Sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Account Sync Worker stopped")
			return
		}
	}
}

// SyncOnce fetches changes since the cursor and provisions every unknown
// user. It returns the number of accounts created.
func (w *AccountSyncWorker) SyncOnce(ctx context.Context) (int, error) {
	users, err := w.fetch(ctx, w.since)
	if err != nil {
		return 0, err
	}
	if len(users) == 0 {
		return 0, nil
	}

	var created, errorCount int
	latest := w.since
	for _, u := range users {
		if u.ID == "" {
			continue
		}
		_, isNew, err := w.accounts.Provision(ctx, u.ID)
		if err != nil {
			errorCount++
			log.Printf("[SYNC] ⚠️ Failed to provision %s: %v", u.ID, err)
			continue
		}
		if isNew {
			created++
		}
		if u.UpdatedAt.After(latest) {
			latest = u.UpdatedAt
		}
	}

	// Leave the cursor alone on partial failure so the batch is retried.
	if errorCount == 0 {
		w.since = latest
	}
	log.Printf("[SYNC] ✅ Synced %d user(s) (%d provisioned, %d errors)", len(users), created, errorCount)
	if errorCount > 0 {
		return created, fmt.Errorf("%d account(s) failed to provision", errorCount)
	}
	return created, nil
}

func (w *AccountSyncWorker) fetch(ctx context.Context, since time.Time) ([]RemoteUser, error) {
	endpointURL, err := url.Parse(w.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid sync URL '%s': %w", w.endpoint, err)
	}
	q := endpointURL.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpointURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL.String(), nil)
	if err != nil {
		return nil, err
	}
	if w.serviceToken != "" {
		req.Header.Set("X-Service-Token", w.serviceToken)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to sync service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("sync service returned %d: %s", resp.StatusCode, string(body))
	}

	var out UserChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode sync response: %w", err)
	}
	return out.Users, nil
}
