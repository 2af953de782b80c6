package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/router"
	"github.com/ikkim/storefront-backend/internal/session"
	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/ikkim/storefront-backend/internal/websocket"
	"github.com/ikkim/storefront-backend/pkg/mailer"
	redispkg "github.com/ikkim/storefront-backend/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const integrationSecret = "integration-secret"

type TestServer struct {
	Handler http.Handler
	DB      *gorm.DB
	Hub     *websocket.Hub
}

func setupIntegrationTest(t *testing.T, trackingLimit int) *TestServer {
	t.Helper()

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: "test"},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"*"}},
		Cart: config.CartConfig{
			GuestTTL:          time.Hour,
			Currency:          "NGN",
			TrackingRateLimit: trackingLimit,
			TrackingWindow:    time.Minute,
			StorefrontURL:     "https://shop.test",
		},
	}

	blacklist := redispkg.NewTokenBlacklist(client)
	guestStore := storage.NewRedisGuestCartStorage(client, cfg.Cart.GuestTTL)

	userRepo := repository.NewUserRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.NewHub()
	go hub.Run(ctx)
	broker := session.NewBroker()

	carts := service.NewCartService(cartRepo, productRepo, guestStore, hub)
	service.NewCartReconciler(carts, broker)
	auth := service.NewAuthService(userRepo, broker, blacklist, mailer.LogSender{}, integrationSecret, 15*time.Minute, 24*time.Hour)
	checkout := service.NewCheckoutService(testDB, carts, orderRepo, cartRepo, guestStore, hub, mailer.LogSender{},
		service.CheckoutOptions{Currency: cfg.Cart.Currency, StorefrontURL: cfg.Cart.StorefrontURL})
	orders := service.NewOrderService(orderRepo)
	reports := service.NewReportService(orderRepo, storage.NewMemoryObjectStore())

	r := router.NewRouter(
		controller.NewSessionController(),
		controller.NewAuthController(auth),
		controller.NewProductController(service.NewProductService(productRepo)),
		controller.NewCartController(carts, hub, websocket.NewUpgrader(nil)),
		controller.NewCheckoutController(checkout),
		controller.NewOrderController(orders),
		controller.NewAdminController(orders, reports),
		middleware.NewAuthMiddleware(integrationSecret, blacklist),
		client,
		cfg,
	)

	return &TestServer{Handler: r.Setup(), DB: testDB, Hub: hub}
}

func (s *TestServer) request(t *testing.T, method, path string, body interface{}, guestToken, accessToken string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if guestToken != "" {
		req.Header.Set(middleware.GuestTokenHeader, guestToken)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, req)
	return w
}

func (s *TestServer) product(t *testing.T, name string, price int64, stock int) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, Price: decimal.NewFromInt(price), Stock: stock}
	require.NoError(t, s.DB.Create(p).Error)
	return p
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func TestGuestToAccountJourney(t *testing.T) {
	server := setupIntegrationTest(t, 0)
	ring := server.product(t, "Silver Ring", 2000, 5)
	chain := server.product(t, "Chain", 1000, 2)

	// Guest session
	w := server.request(t, http.MethodPost, "/api/v1/session/guest", nil, "", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var issued struct {
		GuestToken string `json:"guest_token"`
	}
	decodeBody(t, w, &issued)
	require.NotEmpty(t, issued.GuestToken)
	guest := issued.GuestToken

	w = server.request(t, http.MethodPost, "/api/v1/cart", jsonBody{"product_id": ring.ID, "quantity": 2}, guest, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = server.request(t, http.MethodPost, "/api/v1/cart", jsonBody{"product_id": chain.ID}, guest, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Registering carries the guest cart over
	w = server.request(t, http.MethodPost, "/api/v1/auth/register", jsonBody{
		"email":    "Buyer@Example.com",
		"password": "password123",
		"name":     "Ada Buyer",
	}, guest, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var registered struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	decodeBody(t, w, &registered)
	access := registered.Tokens.AccessToken
	require.NotEmpty(t, access)

	w = server.request(t, http.MethodGet, "/api/v1/cart", nil, guest, access)
	require.Equal(t, http.StatusOK, w.Code)
	var cart model.CartView
	decodeBody(t, w, &cart)
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, 3, cart.Count)
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(5000)), cart.Total.String())

	w = server.request(t, http.MethodGet, "/api/v1/cart", nil, guest, "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &cart)
	assert.Empty(t, cart.Lines)

	// Checkout as the account
	w = server.request(t, http.MethodPost, "/api/v1/checkout", jsonBody{
		"name":            "Ada Buyer",
		"email":           "buyer@example.com",
		"phone":           "+234 801 234 5678",
		"address":         "12 Marina Road",
		"delivery_method": "doorstep",
		"payment_method":  "transfer",
	}, "", access)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var placed struct {
		Order            service.OrderView `json:"order"`
		TrackingCode     string            `json:"tracking_code"`
		ConfirmationPath string            `json:"confirmation_path"`
	}
	decodeBody(t, w, &placed)
	assert.Len(t, placed.TrackingCode, 8)
	assert.Equal(t, "/track/"+placed.TrackingCode, placed.ConfirmationPath)
	assert.True(t, placed.Order.Total.Equal(decimal.NewFromInt(5000)))

	var stock int
	require.NoError(t, server.DB.Model(&model.Product{}).Select("stock").Where("id = ?", ring.ID).Scan(&stock).Error)
	assert.Equal(t, 5, stock)

	w = server.request(t, http.MethodGet, "/api/v1/cart", nil, "", access)
	decodeBody(t, w, &cart)
	assert.Empty(t, cart.Lines)

	// Public tracking needs no credentials
	w = server.request(t, http.MethodGet, "/api/v1/track/"+strings.ToLower(placed.TrackingCode), nil, "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tracked service.TrackingView
	decodeBody(t, w, &tracked)
	assert.Equal(t, placed.TrackingCode, tracked.TrackingCode)
	assert.Equal(t, model.OrderStatusPending, tracked.Status)
	assert.Len(t, tracked.Items, 2)
	assert.NotContains(t, w.Body.String(), "buyer@example.com")

	w = server.request(t, http.MethodGet, fmt.Sprintf("/api/v1/track/%d", placed.Order.ID), nil, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = server.request(t, http.MethodGet, "/api/v1/orders", nil, "", access)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Orders []service.OrderView `json:"orders"`
		Count  int                 `json:"count"`
	}
	decodeBody(t, w, &history)
	require.Equal(t, 1, history.Count)
	require.Len(t, history.Orders[0].OrderItems, 2)
}

func TestUnauthorizedAccess(t *testing.T) {
	server := setupIntegrationTest(t, 0)

	routes := []struct {
		method, path string
		body         interface{}
	}{
		{http.MethodGet, "/api/v1/cart", nil},
		{http.MethodPost, "/api/v1/checkout", jsonBody{}},
		{http.MethodGet, "/api/v1/orders", nil},
		{http.MethodGet, "/api/v1/admin/orders", nil},
		{http.MethodGet, "/api/v1/auth/me", nil},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			w := server.request(t, route.method, route.path, route.body, "", "")
			assert.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())
		})
	}
}

func TestMalformedGuestTokenRejected(t *testing.T) {
	server := setupIntegrationTest(t, 0)
	w := server.request(t, http.MethodGet, "/api/v1/cart", nil, "not-a-token", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrackingIsRateLimited(t *testing.T) {
	server := setupIntegrationTest(t, 2)

	for i := 0; i < 2; i++ {
		w := server.request(t, http.MethodGet, "/api/v1/track/DEADBEEF", nil, "", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
	w := server.request(t, http.MethodGet, "/api/v1/track/DEADBEEF", nil, "", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestCartStreamReceivesChanges(t *testing.T) {
	server := setupIntegrationTest(t, 0)
	p := server.product(t, "Bangle", 1500, 3)
	guest := uuid.NewString()

	httpServer := httptest.NewServer(server.Handler)
	t.Cleanup(httpServer.Close)

	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/api/v1/cart/ws?guest_token=" + guest
	conn, resp, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.Eventually(t, func() bool {
		return server.Hub.IsOnline(session.GuestIdentity(guest).Key())
	}, time.Second, 10*time.Millisecond)

	w := server.request(t, http.MethodPost, "/api/v1/cart", jsonBody{"product_id": p.ID}, guest, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event websocket.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, websocket.EventCartChanged, event.Type)
}

type jsonBody map[string]interface{}
