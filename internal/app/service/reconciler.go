package service

import (
	"context"

	"github.com/ikkim/storefront-backend/internal/session"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

// CartReconciler merges a device's guest cart into the account that just
// signed in on it.
type CartReconciler struct {
	carts       CartService
	unsubscribe func()
}

func NewCartReconciler(carts CartService, broker *session.Broker) *CartReconciler {
	r := &CartReconciler{carts: carts}
	r.unsubscribe = broker.Subscribe(r.handle)
	return r
}

func (r *CartReconciler) handle(ctx context.Context, t session.Transition) {
	if !t.SignedIn() || !t.From.IsGuest() {
		return
	}
	if _, err := r.carts.MergeGuestCart(ctx, t.From.GuestToken, t.To.UserID); err != nil {
		logger.Error("Cart reconciliation failed", err, map[string]interface{}{
			"user_id": t.To.UserID,
		})
	}
}

// Close stops listening for identity changes.
func (r *CartReconciler) Close() {
	r.unsubscribe()
}
