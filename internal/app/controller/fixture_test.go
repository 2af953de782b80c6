package controller

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/session"
	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/ikkim/storefront-backend/internal/websocket"
	"github.com/ikkim/storefront-backend/pkg/mailer"
	redispkg "github.com/ikkim/storefront-backend/pkg/redis"
	"github.com/ikkim/storefront-backend/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "controller-test-secret"

type testServer struct {
	router      *gin.Engine
	db          *gorm.DB
	auth        service.AuthService
	carts       service.CartService
	orderRepo   repository.OrderRepository
	objectStore *storage.MemoryObjectStore
}

func setupControllerTest(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	mr := miniredis.RunT(t)
	blacklist := redispkg.NewTokenBlacklist(redisClient(t, mr))

	userRepo := repository.NewUserRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)
	guestStore := storage.NewMemoryGuestCartStorage()
	objectStore := storage.NewMemoryObjectStore()
	hub := websocket.NewHub()
	broker := session.NewBroker()

	carts := service.NewCartService(cartRepo, productRepo, guestStore, hub)
	service.NewCartReconciler(carts, broker)
	auth := service.NewAuthService(userRepo, broker, blacklist, mailer.LogSender{}, testSecret, 15*time.Minute, 24*time.Hour)
	checkout := service.NewCheckoutService(testDB, carts, orderRepo, cartRepo, guestStore, hub, mailer.LogSender{},
		service.CheckoutOptions{Currency: "NGN"})
	orders := service.NewOrderService(orderRepo)
	products := service.NewProductService(productRepo)
	reports := service.NewReportService(orderRepo, objectStore)

	sessionCtrl := NewSessionController()
	authCtrl := NewAuthController(auth)
	productCtrl := NewProductController(products)
	cartCtrl := NewCartController(carts, hub, websocket.NewUpgrader(nil))
	checkoutCtrl := NewCheckoutController(checkout)
	orderCtrl := NewOrderController(orders)
	adminCtrl := NewAdminController(orders, reports)
	authMW := middleware.NewAuthMiddleware(testSecret, blacklist)

	router := gin.New()
	api := router.Group("/api/v1", middleware.GuestToken())
	api.POST("/session/guest", sessionCtrl.IssueGuestToken)
	api.GET("/session", authMW.OptionalAuthenticate(), sessionCtrl.Current)
	api.POST("/auth/register", authCtrl.Register)
	api.POST("/auth/login", authCtrl.Login)
	api.POST("/auth/refresh", authCtrl.Refresh)
	api.POST("/auth/logout", authMW.Authenticate(), authCtrl.Logout)
	api.GET("/auth/me", authMW.Authenticate(), authCtrl.Me)
	api.GET("/categories", productCtrl.ListCategories)
	api.GET("/products", productCtrl.ListProducts)
	api.GET("/products/:id", productCtrl.GetProduct)
	cart := api.Group("/cart", authMW.OptionalAuthenticate())
	cart.GET("", cartCtrl.GetCart)
	cart.POST("", cartCtrl.AddToCart)
	cart.DELETE("", cartCtrl.ClearCart)
	cart.PUT("/:id", cartCtrl.UpdateCartItem)
	cart.DELETE("/:id", cartCtrl.RemoveCartItem)
	api.POST("/checkout", authMW.OptionalAuthenticate(), checkoutCtrl.Checkout)
	api.GET("/orders", authMW.Authenticate(), orderCtrl.GetOrders)
	api.GET("/orders/:id", authMW.Authenticate(), orderCtrl.GetOrderByID)
	api.GET("/track/:token", orderCtrl.Track)
	admin := api.Group("/admin", authMW.Authenticate(), authMW.RequireRole(model.RoleAdmin))
	admin.GET("/orders", adminCtrl.ListOrders)
	admin.PUT("/orders/:id/status", adminCtrl.UpdateOrderStatus)
	admin.POST("/reports/orders", adminCtrl.ExportOrders)

	return &testServer{
		router:      router,
		db:          testDB,
		auth:        auth,
		carts:       carts,
		orderRepo:   orderRepo,
		objectStore: objectStore,
	}
}

type requestOpts struct {
	guestToken  string
	accessToken string
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, opts requestOpts) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if opts.guestToken != "" {
		req.Header.Set(middleware.GuestTokenHeader, opts.guestToken)
	}
	if opts.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+opts.accessToken)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) createProduct(t *testing.T, name string, price int64, stock int) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, Price: decimal.NewFromInt(price), Stock: stock}
	require.NoError(t, s.db.Create(p).Error)
	return p
}

func (s *testServer) createUser(t *testing.T, email string, role model.UserRole) (*model.User, string) {
	t.Helper()
	hash, err := util.HashPassword("password123")
	require.NoError(t, err)
	user := &model.User{Email: email, PasswordHash: hash, Name: "Test User", Role: role}
	require.NoError(t, s.db.Create(user).Error)

	tokens, err := util.GenerateTokenPair(user.ID, user.Email, string(role), testSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	return user, tokens.AccessToken
}

func newGuest() requestOpts {
	return requestOpts{guestToken: uuid.NewString()}
}
