package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/ikkim/storefront-backend/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartReconciler_IgnoresOtherTransitions(t *testing.T) {
	f := newFixture(t)
	broker := session.NewBroker()
	r := NewCartReconciler(f.carts, broker)
	ctx := context.Background()

	user := f.createUser(t, "user@test.com")
	guest := session.GuestIdentity(uuid.NewString())
	a := f.createProduct(t, "A", 1000, 10)
	require.NoError(t, f.carts.Add(ctx, guest, a.ID, 2))

	broker.Publish(ctx, session.Transition{From: session.AccountIdentity(user.ID), To: guest})

	view, err := f.carts.List(ctx, guest)
	require.NoError(t, err)
	assert.Len(t, view.Lines, 1)

	r.Close()
	broker.Publish(ctx, session.Transition{From: guest, To: session.AccountIdentity(user.ID)})

	view, err = f.carts.List(ctx, guest)
	require.NoError(t, err)
	assert.Len(t, view.Lines, 1, "closed reconciler must not merge")
}

func TestCartReconciler_MergesOnSignIn(t *testing.T) {
	f := newFixture(t)
	broker := session.NewBroker()
	NewCartReconciler(f.carts, broker)
	ctx := context.Background()

	user := f.createUser(t, "user@test.com")
	account := session.AccountIdentity(user.ID)
	guest := session.GuestIdentity(uuid.NewString())
	a := f.createProduct(t, "A", 1000, 10)
	require.NoError(t, f.carts.Add(ctx, guest, a.ID, 2))

	before := f.notifier.count()
	broker.Publish(ctx, session.Transition{From: guest, To: account})

	view, err := f.carts.List(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int{a.ID: 2}, quantities(view))
	require.Equal(t, before+1, f.notifier.count())
	assert.Equal(t, account, f.notifier.owners[len(f.notifier.owners)-1])
}
