package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"stockroom/internal/alerts"
	"stockroom/internal/config"
	"stockroom/internal/domain"
	"stockroom/internal/http/handlers"
	"stockroom/internal/metrics"
	"stockroom/internal/notify"
	"stockroom/internal/repos"
	"stockroom/internal/services"
)

type harness struct {
	app    *fiber.App
	tokens *services.Tokens
	notes  *repos.NotificationRepo
}

func testConfig() config.Config {
	return config.Config{APIRateLimit: 1000, AuthRateLimit: 100, FrontendURL: "http://localhost:5173"}
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := metrics.New(prometheus.NewRegistry())
	users := repos.NewUserRepo(db)
	inv := repos.NewInventoryRepo(db)
	notes := repos.NewNotificationRepo(db)
	tokens := services.NewTokens("test-secret", time.Hour)
	auth := services.NewAuthService(users, tokens)
	auth.Cost = bcrypt.MinCost

	dispatcher := notify.NewDispatcher(notes, nil, m)
	alerter := alerts.NewAlerter(notes, dispatcher, time.Hour, m)
	deps := handlers.NewDeps(handlers.Services{
		Auth:          auth,
		Inventory:     services.NewInventoryService(inv, alerter),
		Vendors:       services.NewVendorService(repos.NewVendorRepo(db), inv, dispatcher),
		Notifications: services.NewNotificationService(notes, dispatcher, nil),
	}, m.Handler())
	return &harness{app: handlers.NewApp(deps, cfg), tokens: tokens, notes: notes}
}

type reply struct {
	Status int
	Body   map[string]any
	List   []map[string]any
	Raw    string
}

func (h *harness) do(t *testing.T, method, path, token string, body any) reply {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	r := reply{Status: resp.StatusCode, Raw: string(raw)}
	if len(raw) > 0 && raw[0] == '[' {
		require.NoError(t, json.Unmarshal(raw, &r.List), r.Raw)
	} else if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &r.Body), r.Raw)
	}
	return r
}

// signup registers a user and returns its token and id.
func (h *harness) signup(t *testing.T, name string) (string, int64) {
	t.Helper()
	r := h.do(t, "POST", "/api/auth/register", "", map[string]any{
		"username": name, "email": name + "@example.com", "password": "Secret123",
	})
	require.Equal(t, fiber.StatusCreated, r.Status, r.Raw)
	user := r.Body["user"].(map[string]any)
	return r.Body["token"].(string), int64(user["id"].(float64))
}

func (h *harness) ghostToken(t *testing.T) string {
	t.Helper()
	tok, err := h.tokens.Issue(&domain.User{ID: 999, Username: "ghost"})
	require.NoError(t, err)
	return tok
}
