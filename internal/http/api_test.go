package handlers_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthMetricsAndNotFound(t *testing.T) {
	h := newHarness(t, testConfig())

	r := h.do(t, "GET", "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, r.Status)
	assert.Equal(t, "healthy", r.Body["status"])

	r = h.do(t, "GET", "/metrics", "", nil)
	assert.Equal(t, fiber.StatusOK, r.Status)
	assert.Contains(t, r.Raw, "stockroom_")

	r = h.do(t, "GET", "/api/nope", "", nil)
	assert.Equal(t, fiber.StatusNotFound, r.Status)
	assert.Equal(t, "Route not found", r.Body["error"])
}

func TestAuthEndpoints(t *testing.T) {
	h := newHarness(t, testConfig())
	tok, id := h.signup(t, "alice")

	r := h.do(t, "POST", "/api/auth/register", "", map[string]any{
		"username": "alice", "email": "x@example.com", "password": "Secret123",
	})
	assert.Equal(t, fiber.StatusBadRequest, r.Status)
	assert.Equal(t, "User with this username or email already exists", r.Body["error"])

	r = h.do(t, "POST", "/api/auth/register", "", map[string]any{"username": "b", "email": "bad", "password": "x"})
	assert.Equal(t, fiber.StatusBadRequest, r.Status)
	assert.Equal(t, "Validation failed", r.Body["error"])
	assert.NotEmpty(t, r.Body["details"])

	for i := 0; i < 2; i++ {
		r = h.do(t, "POST", "/api/auth/login", "", map[string]any{"email": "alice@example.com", "password": "Wrong123"})
		assert.Equal(t, fiber.StatusUnauthorized, r.Status)
		assert.Equal(t, "Invalid email or password", r.Body["error"])
		assert.NotContains(t, r.Body, "token")
	}

	r = h.do(t, "POST", "/api/auth/login", "", map[string]any{"email": "alice@example.com", "password": "Secret123"})
	require.Equal(t, fiber.StatusOK, r.Status, r.Raw)
	assert.NotEmpty(t, r.Body["token"])
	assert.NotContains(t, r.Raw, "password_hash")

	r = h.do(t, "GET", "/api/auth/me", tok, nil)
	require.Equal(t, fiber.StatusOK, r.Status)
	assert.EqualValues(t, id, r.Body["user"].(map[string]any)["id"])

	r = h.do(t, "PUT", "/api/auth/profile", tok, map[string]any{"username": "alice_b", "email": "alice@example.com"})
	require.Equal(t, fiber.StatusOK, r.Status, r.Raw)

	r = h.do(t, "POST", "/api/auth/change-password", tok, map[string]any{"currentPassword": "nope", "newPassword": "Better123"})
	assert.Equal(t, fiber.StatusBadRequest, r.Status)
	r = h.do(t, "POST", "/api/auth/change-password", tok, map[string]any{"currentPassword": "Secret123", "newPassword": "Better123"})
	assert.Equal(t, fiber.StatusOK, r.Status)
}

func TestRequireUser(t *testing.T) {
	h := newHarness(t, testConfig())

	r := h.do(t, "GET", "/api/inventory", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, r.Status)
	assert.Equal(t, "Access token required", r.Body["error"])

	r = h.do(t, "GET", "/api/inventory", "garbage", nil)
	assert.Equal(t, fiber.StatusForbidden, r.Status)
	assert.Equal(t, "Invalid or expired token", r.Body["error"])

	r = h.do(t, "GET", "/api/inventory", h.ghostToken(t), nil)
	assert.Equal(t, fiber.StatusUnauthorized, r.Status)
	assert.Equal(t, "User no longer exists", r.Body["error"])
}

func TestInventoryEndpoints(t *testing.T) {
	h := newHarness(t, testConfig())
	tok, _ := h.signup(t, "clerk")

	r := h.do(t, "POST", "/api/inventory", tok, map[string]any{
		"name": "Bolt", "quantity": 2, "min_threshold": 5, "unit": "pieces", "category": "Hardware",
	})
	require.Equal(t, fiber.StatusCreated, r.Status, r.Raw)
	item := r.Body["item"].(map[string]any)
	assert.Equal(t, true, item["is_low_stock"])
	id := int64(item["id"].(float64))

	// a low-stock write raises exactly one alert for the owner
	r = h.do(t, "GET", "/api/notifications", tok, nil)
	require.Len(t, r.List, 1)
	assert.Equal(t, "low_stock", r.List[0]["type"])
	assert.Equal(t, "Bolt is running low (2 units remaining)", r.List[0]["message"])

	r = h.do(t, "PUT", fmt.Sprintf("/api/inventory/%d", id), tok, map[string]any{
		"name": "Bolt", "quantity": 1, "min_threshold": 5, "unit": "pieces",
	})
	require.Equal(t, fiber.StatusOK, r.Status, r.Raw)
	r = h.do(t, "GET", "/api/notifications/unread-count", tok, nil)
	assert.EqualValues(t, 1, r.Body["count"], "second write inside the window is suppressed")

	r = h.do(t, "POST", "/api/inventory", tok, map[string]any{"name": "Nut", "unit": "pieces"})
	assert.Equal(t, fiber.StatusBadRequest, r.Status)
	assert.Contains(t, r.Raw, "quantity")

	r = h.do(t, "GET", "/api/inventory/search", tok, nil)
	assert.Equal(t, fiber.StatusBadRequest, r.Status)
	assert.Equal(t, "Search query is required", r.Body["error"])

	r = h.do(t, "GET", "/api/inventory/search?q=bol", tok, nil)
	assert.Len(t, r.List, 1)

	r = h.do(t, "GET", "/api/inventory/low-stock", tok, nil)
	assert.Len(t, r.List, 1)

	r = h.do(t, "GET", "/api/inventory/dashboard-summary", tok, nil)
	assert.EqualValues(t, 1, r.Body["total_items"])
	assert.EqualValues(t, 1, r.Body["low_stock_items"])
	assert.EqualValues(t, 1, r.Body["unread_notifications"])

	r = h.do(t, "GET", "/api/inventory/abc", tok, nil)
	assert.Equal(t, fiber.StatusBadRequest, r.Status)
	r = h.do(t, "GET", "/api/inventory/999", tok, nil)
	assert.Equal(t, fiber.StatusNotFound, r.Status)
	assert.Equal(t, "Inventory item not found", r.Body["error"])

	r = h.do(t, "DELETE", fmt.Sprintf("/api/inventory/%d", id), tok, nil)
	assert.Equal(t, fiber.StatusOK, r.Status)
	r = h.do(t, "DELETE", fmt.Sprintf("/api/inventory/%d", id), tok, nil)
	assert.Equal(t, fiber.StatusNotFound, r.Status)
}

func TestVendorEndpoints(t *testing.T) {
	h := newHarness(t, testConfig())
	tok, _ := h.signup(t, "buyer")

	r := h.do(t, "POST", "/api/inventory", tok, map[string]any{"name": "Gasket", "quantity": 40, "min_threshold": 5, "unit": "pieces"})
	require.Equal(t, fiber.StatusCreated, r.Status, r.Raw)
	itemID := int64(r.Body["item"].(map[string]any)["id"].(float64))

	vendor := map[string]any{"company_name": "Acme", "contact_person": "Pat", "email": "sales@acme.test", "specialty": "Seals"}
	r = h.do(t, "POST", "/api/vendors", tok, vendor)
	require.Equal(t, fiber.StatusCreated, r.Status, r.Raw)
	vid := int64(r.Body["vendor"].(map[string]any)["id"].(float64))

	r = h.do(t, "POST", "/api/vendors", tok, vendor)
	assert.Equal(t, fiber.StatusBadRequest, r.Status)
	assert.Equal(t, "Vendor with this email already exists", r.Body["error"])

	r = h.do(t, "POST", fmt.Sprintf("/api/vendors/%d/inventory", vid), tok, map[string]any{"inventory_id": itemID, "is_primary": true})
	require.Equal(t, fiber.StatusCreated, r.Status, r.Raw)
	r = h.do(t, "GET", fmt.Sprintf("/api/vendors/%d/inventory", vid), tok, nil)
	require.Len(t, r.List, 1)
	assert.Equal(t, true, r.List[0]["is_primary"])

	r = h.do(t, "GET", "/api/vendors/specialty/Seals", tok, nil)
	assert.Len(t, r.List, 1)
	r = h.do(t, "GET", "/api/vendors/search?q=acm", tok, nil)
	assert.Len(t, r.List, 1)

	r = h.do(t, "POST", "/api/vendors/contact", tok, map[string]any{
		"vendor_id": vid, "inventory_ids": []int64{itemID}, "message": "Need 100 more", "contact_type": "email",
	})
	require.Equal(t, fiber.StatusOK, r.Status, r.Raw)
	assert.Equal(t, "Vendor contacted successfully", r.Body["message"])

	r = h.do(t, "GET", "/api/notifications", tok, nil)
	require.Len(t, r.List, 1)
	assert.Equal(t, "vendor_contact", r.List[0]["type"])
	assert.True(t, strings.Contains(r.List[0]["message"].(string), "Gasket"))

	r = h.do(t, "GET", fmt.Sprintf("/api/vendors/contact-history?vendor_id=%d", vid), tok, nil)
	assert.Len(t, r.List, 1)

	r = h.do(t, "DELETE", fmt.Sprintf("/api/vendors/%d", vid), tok, nil)
	assert.Equal(t, fiber.StatusOK, r.Status)
	r = h.do(t, "GET", "/api/notifications", tok, nil)
	assert.Empty(t, r.List, "vendor delete cascades to its notifications")
	r = h.do(t, "GET", fmt.Sprintf("/api/vendors/%d", vid), tok, nil)
	assert.Equal(t, fiber.StatusNotFound, r.Status)
}

func TestNotificationEndpoints(t *testing.T) {
	h := newHarness(t, testConfig())
	alice, aliceID := h.signup(t, "alice")
	bob, _ := h.signup(t, "bob")

	r := h.do(t, "POST", "/api/notifications", alice, map[string]any{"type": "system", "message": "Stocktake Friday", "user_id": aliceID})
	require.Equal(t, fiber.StatusCreated, r.Status, r.Raw)
	n := r.Body["notification"].(map[string]any)
	id := int64(n["id"].(float64))

	r = h.do(t, "PATCH", fmt.Sprintf("/api/notifications/%d/read", id), bob, nil)
	assert.Equal(t, fiber.StatusNotFound, r.Status)
	r = h.do(t, "DELETE", fmt.Sprintf("/api/notifications/%d", id), bob, nil)
	assert.Equal(t, fiber.StatusNotFound, r.Status)

	r = h.do(t, "POST", "/api/notifications/push", bob, n)
	assert.Equal(t, fiber.StatusForbidden, r.Status)
	r = h.do(t, "POST", "/api/notifications/push", alice, n)
	assert.Equal(t, fiber.StatusOK, r.Status, r.Raw)
	invented := map[string]any{"id": id + 50, "type": "system", "message": "made up", "user_id": aliceID}
	r = h.do(t, "POST", "/api/notifications/push", alice, invented)
	assert.Equal(t, fiber.StatusNotFound, r.Status, r.Raw)

	r = h.do(t, "PATCH", fmt.Sprintf("/api/notifications/%d/read", id), alice, nil)
	assert.Equal(t, fiber.StatusOK, r.Status)
	r = h.do(t, "GET", "/api/notifications/unread-count", alice, nil)
	assert.EqualValues(t, 0, r.Body["count"])

	for i := 0; i < 3; i++ {
		h.do(t, "POST", "/api/notifications", alice, map[string]any{"type": "system", "message": fmt.Sprintf("n%d", i), "user_id": aliceID})
	}
	r = h.do(t, "GET", "/api/notifications/recent?limit=2", alice, nil)
	assert.Len(t, r.List, 2)
	r = h.do(t, "PATCH", "/api/notifications/read-all", alice, nil)
	assert.EqualValues(t, 3, r.Body["updated"])
	r = h.do(t, "GET", "/api/notifications", bob, nil)
	assert.Empty(t, r.List)
}

func TestAuthRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRateLimit = 3
	h := newHarness(t, cfg)

	for i := 0; i < 4; i++ {
		r := h.do(t, "POST", "/api/auth/login", "", map[string]any{"email": "x@example.com", "password": "Secret123"})
		if i < 3 {
			assert.NotEqual(t, fiber.StatusTooManyRequests, r.Status, "limited too early at %d", i)
			continue
		}
		assert.Equal(t, fiber.StatusTooManyRequests, r.Status)
	}
	// other groups have their own budget
	r := h.do(t, "GET", "/api/inventory", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, r.Status)
}
