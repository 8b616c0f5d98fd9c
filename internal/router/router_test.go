package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abc-inventory-monitor/internal/handler"
	"abc-inventory-monitor/internal/middleware"
	"abc-inventory-monitor/internal/repository"
)

func newTestRouter(t *testing.T, adminKey string) (http.Handler, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	r := New(Config{
		ClientHandler:  handler.NewClientHandler(store),
		AuthMiddleware: middleware.NewAdminAuth(adminKey),
	})
	return r, store
}

func TestRouter_RequiresAdminKey(t *testing.T) {
	r, _ := newTestRouter(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/clients/", nil)
	req.Header.Set("X-Admin-Key", "wrong")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/clients/", nil)
	req.Header.Set("X-Admin-Key", "secret")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_EmptyAdminKeyDisablesAuth(t *testing.T) {
	r, _ := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CreateAndTrackClient(t *testing.T) {
	r, store := newTestRouter(t, "")

	body := `{"id":"alice","email":"alice@example.com","phone_numbers":["919-555-1234"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/clients/alice/track", strings.NewReader(`{"code":"00009","tracking":true}`))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	client, err := store.GetClient(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"+19195551234"}, client.PhoneNumbers)
	require.Len(t, client.Tracked, 1)
	assert.Equal(t, "00009", client.Tracked[0].Code)
	assert.True(t, client.Tracked[0].Tracking)
}

func TestRouter_TrackUnknownClient(t *testing.T) {
	r, _ := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients/ghost/track", strings.NewReader(`{"code":"00009","tracking":true}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_ListClients(t *testing.T) {
	r, store := newTestRouter(t, "")
	require.NoError(t, store.AddClient(context.Background(), "alice", "alice@example.com", nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool              `json:"success"`
		Data    []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Data, 1)
}
