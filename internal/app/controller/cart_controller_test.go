package controller

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartController_RequiresIdentity(t *testing.T) {
	s := setupControllerTest(t)

	w := s.do(t, http.MethodGet, "/api/v1/cart", nil, requestOpts{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "CART_IDENTITY_UNKNOWN", decode(t, w)["error"])
}

func TestCartController_MalformedGuestToken(t *testing.T) {
	s := setupControllerTest(t)

	w := s.do(t, http.MethodGet, "/api/v1/cart", nil, requestOpts{guestToken: "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "SESSION_GUEST_TOKEN_INVALID", decode(t, w)["error"])
}

func TestCartController_GuestFlow(t *testing.T) {
	s := setupControllerTest(t)
	guest := newGuest()
	p := s.createProduct(t, "Sneaker", 1000, 5)

	w := s.do(t, http.MethodPost, "/api/v1/cart", map[string]interface{}{"product_id": p.ID}, guest)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(1), body["count"])

	w = s.do(t, http.MethodPost, "/api/v1/cart", map[string]interface{}{"product_id": p.ID, "quantity": 2}, guest)
	require.Equal(t, http.StatusCreated, w.Code)
	body = decode(t, w)
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	line := items[0].(map[string]interface{})
	assert.Equal(t, float64(3), line["quantity"])
	assert.Equal(t, "3000", body["total"])

	lineID := uint(line["id"].(float64))
	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/cart/%d", lineID), map[string]interface{}{"quantity": 5}, guest)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/cart/%d", lineID), map[string]interface{}{"quantity": 6}, guest)
	assert.Equal(t, http.StatusConflict, w.Code)
	body = decode(t, w)
	assert.Equal(t, "CART_STOCK_EXCEEDED", body["error"])
	assert.Equal(t, float64(5), body["available"])

	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/cart/%d", lineID), map[string]interface{}{"quantity": 0}, guest)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CART_INVALID_QUANTITY", decode(t, w)["error"])

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/cart/%d", lineID), nil, guest)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["count"])

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/cart/%d", lineID), nil, guest)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CART_ITEM_NOT_FOUND", decode(t, w)["error"])
}

func TestCartController_OutOfStockAndMissingProduct(t *testing.T) {
	s := setupControllerTest(t)
	guest := newGuest()
	soldOut := s.createProduct(t, "Sold out", 1000, 0)

	w := s.do(t, http.MethodPost, "/api/v1/cart", map[string]interface{}{"product_id": soldOut.ID}, guest)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CART_OUT_OF_STOCK", decode(t, w)["error"])

	w = s.do(t, http.MethodPost, "/api/v1/cart", map[string]interface{}{"product_id": 9999}, guest)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PRODUCT_NOT_FOUND", decode(t, w)["error"])

	w = s.do(t, http.MethodPost, "/api/v1/cart", map[string]interface{}{}, guest)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartController_AccountWinsOverGuestToken(t *testing.T) {
	s := setupControllerTest(t)
	_, token := s.createUser(t, "user@test.com", "user")
	guest := newGuest()
	p := s.createProduct(t, "Hat", 500, 5)

	both := requestOpts{guestToken: guest.guestToken, accessToken: token}
	w := s.do(t, http.MethodPost, "/api/v1/cart", map[string]interface{}{"product_id": p.ID}, both)
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/cart", nil, guest)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["count"])

	w = s.do(t, http.MethodGet, "/api/v1/cart", nil, requestOpts{accessToken: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = s.do(t, http.MethodDelete, "/api/v1/cart", nil, requestOpts{accessToken: token})
	require.Equal(t, http.StatusOK, w.Code)
}
