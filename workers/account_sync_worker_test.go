package workers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"agentgift-economy/economy"
	"agentgift-economy/models"
	"agentgift-economy/services"
	"agentgift-economy/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feed struct {
	mu     sync.Mutex
	users  []RemoteUser
	status int
	sinces []string
	tokens []string
}

func (f *feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinces = append(f.sinces, r.URL.Query().Get("since"))
	f.tokens = append(f.tokens, r.Header.Get("X-Service-Token"))
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte("boom"))
		return
	}
	_ = json.NewEncoder(w).Encode(UserChangesResponse{Users: f.users})
}

func newAccounts(t *testing.T, st *storetest.MemoryStore) *services.AccountService {
	t.Helper()
	accounts := services.NewAccountService(st, nil, 10)
	progression := services.NewProgressionService(st, accounts, nil)
	require.NoError(t, progression.EnsureCatalog(context.Background()))
	return accounts
}

func TestSyncOnce_ProvisionsNewUsers(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	f := &feed{users: []RemoteUser{
		{ID: "u1", Email: "a@example.com", UpdatedAt: t1},
		{ID: "u2", Email: "b@example.com", UpdatedAt: t2},
		{ID: ""},
	}}
	srv := httptest.NewServer(f)
	defer srv.Close()

	st := storetest.NewMemoryStore()
	existing := models.NewUserAccount("u1", 99)
	st.Put(existing)

	w := NewAccountSyncWorker(newAccounts(t, st), srv.URL+"/api/v1/public/profiles", "svc-token")
	created, err := w.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, t2, w.Since())

	u1, err := st.GetAccount(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(99), u1.Credits, "existing account untouched")
	assert.False(t, u1.HasBadge(economy.BadgeWelcome))

	u2, err := st.GetAccount(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(10), u2.Credits)
	assert.True(t, u2.HasBadge(economy.BadgeWelcome))
	assert.Equal(t, int64(10), u2.XP)
	require.Len(t, st.Transactions("u2"), 1)
	assert.Equal(t, "signup_grant", st.Transactions("u2")[0].Reason)

	assert.Equal(t, "0001-01-01T00:00:00Z", f.sinces[0])
	assert.Equal(t, "svc-token", f.tokens[0])

	_, err = w.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, t2.Format(time.RFC3339), f.sinces[1])
}

func TestSyncOnce_ServiceError(t *testing.T) {
	f := &feed{status: http.StatusBadGateway}
	srv := httptest.NewServer(f)
	defer srv.Close()

	w := NewAccountSyncWorker(newAccounts(t, storetest.NewMemoryStore()), srv.URL, "")
	_, err := w.SyncOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.True(t, w.Since().IsZero())
	assert.Equal(t, "", f.tokens[0])
}

func TestSyncOnce_StoreFailureKeepsCursor(t *testing.T) {
	f := &feed{users: []RemoteUser{{ID: "u1", UpdatedAt: time.Now().UTC()}}}
	srv := httptest.NewServer(f)
	defer srv.Close()

	st := storetest.NewMemoryStore()
	w := NewAccountSyncWorker(newAccounts(t, st), srv.URL, "")
	st.Err = assert.AnError
	created, err := w.SyncOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, created)
	assert.True(t, w.Since().IsZero())
}
