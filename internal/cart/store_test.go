package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/urbanthreads/storefront/internal/checkout"
	"github.com/urbanthreads/storefront/internal/domain"
)

func TestMemoryStoreCartRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sid := uuid.NewString()

	_, err := store.GetCart(ctx, sid)
	require.ErrorIs(t, err, ErrNotFound)

	c := &domain.Cart{}
	c.Upsert(domain.CartItem{ProductID: 1, Name: "Tee", Price: decimal.NewFromInt(8500), Quantity: 1, Size: "M"})
	c.Upsert(domain.CartItem{ProductID: 1, Name: "Tee", Price: decimal.NewFromInt(8500), Quantity: 2, Size: "M"})
	require.NoError(t, store.SaveCart(ctx, sid, c))

	got, err := store.GetCart(ctx, sid)
	require.NoError(t, err)
	require.Len(t, got.Items, 1, "same variant merges into one line")
	require.Equal(t, 3, got.Items[0].Quantity)
	require.True(t, got.Subtotal().Equal(decimal.NewFromInt(25500)))

	require.NoError(t, store.DeleteCart(ctx, sid))
	_, err = store.GetCart(ctx, sid)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a := &domain.Cart{}
	a.Upsert(domain.CartItem{ProductID: 1, Price: decimal.NewFromInt(100), Quantity: 1})
	require.NoError(t, store.SaveCart(ctx, "sid-a", a))

	_, err := store.GetCart(ctx, "sid-b")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCartVariantsKeepSeparateLines(t *testing.T) {
	c := &domain.Cart{}
	c.Upsert(domain.CartItem{ProductID: 1, Price: decimal.NewFromInt(8500), Quantity: 1, Size: "M", Color: "black"})
	c.Upsert(domain.CartItem{ProductID: 1, Price: decimal.NewFromInt(8500), Quantity: 1, Size: "L", Color: "black"})
	require.Len(t, c.Items, 2)

	require.True(t, c.SetQuantity(1, "M", "black", 5))
	require.Equal(t, 5, c.Items[0].Quantity)

	// quantity zero removes the line
	require.True(t, c.SetQuantity(1, "L", "black", 0))
	require.Len(t, c.Items, 1)

	require.False(t, c.SetQuantity(99, "", "", 1))
}

func TestMemoryStoreWizardRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sid := uuid.NewString()

	w := checkout.NewWizard()
	cart := domain.Cart{Items: []domain.CartItem{{ProductID: 1, Price: decimal.NewFromInt(8500), Quantity: 1}}}
	require.NoError(t, w.SubmitDetails(checkout.FormData{FirstName: "A", LastName: "B"},
		domain.DeliveryPickup, "Abuja", cart, checkout.DefaultRates()))
	require.NoError(t, store.SaveWizard(ctx, sid, w))

	got, err := store.GetWizard(ctx, sid)
	require.NoError(t, err)
	require.Equal(t, checkout.StepPayment, got.Step)
	require.Equal(t, w.OrderNumber, got.OrderNumber)
	require.True(t, got.Quote.Total.Equal(w.Quote.Total))
}
