package service

import (
	"sync"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/session"
	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu     sync.Mutex
	owners []session.Identity
}

func (n *recordingNotifier) CartChanged(owner session.Identity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.owners = append(n.owners, owner)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.owners)
}

type fixture struct {
	db          *gorm.DB
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	userRepo    repository.UserRepository
	guestStore  *storage.MemoryGuestCartStorage
	notifier    *recordingNotifier
	carts       CartService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	f := &fixture{
		db:          testDB,
		cartRepo:    repository.NewCartRepository(testDB),
		productRepo: repository.NewProductRepository(testDB),
		orderRepo:   repository.NewOrderRepository(testDB),
		userRepo:    repository.NewUserRepository(testDB),
		guestStore:  storage.NewMemoryGuestCartStorage(),
		notifier:    &recordingNotifier{},
	}
	f.carts = NewCartService(f.cartRepo, f.productRepo, f.guestStore, f.notifier)
	return f
}

func (f *fixture) createUser(t *testing.T, email string) *model.User {
	t.Helper()
	user := &model.User{Email: email, PasswordHash: "hash", Name: "Test User", Role: model.RoleUser}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *fixture) createProduct(t *testing.T, name string, price int64, stock int) *model.Product {
	t.Helper()
	product := &model.Product{Name: name, Price: decimal.NewFromInt(price), Stock: stock}
	require.NoError(t, f.db.Create(product).Error)
	return product
}

func quantities(view *model.CartView) map[uint]int {
	out := make(map[uint]int, len(view.Lines))
	for _, l := range view.Lines {
		out[l.ProductID] = l.Quantity
	}
	return out
}
