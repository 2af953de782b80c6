package controller

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeGuestOrder(t *testing.T, s *testServer) uint {
	t.Helper()
	guest := newGuest()
	p := s.createProduct(t, "Bag", 2500, 3)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/cart", map[string]interface{}{"product_id": p.ID}, guest).Code)
	w := s.do(t, http.MethodPost, "/api/v1/checkout", checkoutBody(), guest)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return uint(decode(t, w)["order"].(map[string]interface{})["id"].(float64))
}

func TestAdminController_RequiresAdmin(t *testing.T) {
	s := setupControllerTest(t)
	_, token := s.createUser(t, "user@test.com", model.RoleUser)

	w := s.do(t, http.MethodGet, "/api/v1/admin/orders", nil, requestOpts{accessToken: token})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminController_UpdateStatus(t *testing.T) {
	s := setupControllerTest(t)
	_, token := s.createUser(t, "admin@test.com", model.RoleAdmin)
	admin := requestOpts{accessToken: token}
	orderID := placeGuestOrder(t, s)
	path := fmt.Sprintf("/api/v1/admin/orders/%d/status", orderID)

	w := s.do(t, http.MethodPut, path, map[string]interface{}{"status": "processing"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "processing", decode(t, w)["status"])

	w = s.do(t, http.MethodPut, path, map[string]interface{}{"status": "pending"}, admin)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ORDER_INVALID_TRANSITION", decode(t, w)["error"])

	w = s.do(t, http.MethodPut, path, map[string]interface{}{"status": "shipped"}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ORDER_INVALID_STATUS", decode(t, w)["error"])

	w = s.do(t, http.MethodGet, "/api/v1/admin/orders?status=processing", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = s.do(t, http.MethodGet, "/api/v1/admin/orders?from=yesterday", nil, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminController_ExportOrders(t *testing.T) {
	s := setupControllerTest(t)
	_, token := s.createUser(t, "admin@test.com", model.RoleAdmin)
	placeGuestOrder(t, s)

	w := s.do(t, http.MethodPost, "/api/v1/admin/reports/orders?from=2000-01-01", nil, requestOpts{accessToken: token})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	key := decode(t, w)["key"].(string)

	body, ok := s.objectStore.Get(key)
	require.True(t, ok)
	assert.NotEmpty(t, body)
}
