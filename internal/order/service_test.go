package order

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/urbanthreads/storefront/internal/domain"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Product{}, &domain.Order{}, &domain.OrderItem{}))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, id int64, stock int) {
	t.Helper()
	require.NoError(t, db.Create(&domain.Product{
		ID:       id,
		Name:     fmt.Sprintf("product-%d", id),
		Price:    decimal.NewFromInt(8500),
		Category: domain.CategoryUnisex,
		Stock:    stock,
		IsActive: true,
	}).Error)
}

func testPayload(items ...ItemPayload) Payload {
	return Payload{
		CustomerName:   "Ife Ajayi",
		CustomerEmail:  "ife@example.com",
		CustomerPhone:  "08096539067",
		TotalAmount:    decimal.RequireFromString("47837.5"),
		DeliveryOption: domain.DeliveryPickup,
		SelectedState:  "Abuja",
		ReceiptURL:     "https://files.local/receipts/r1.jpg",
		Items:          items,
	}
}

func TestSubmitCreatesOrderWithItems(t *testing.T) {
	db := testDB(t)
	seedProduct(t, db, 1, 10)
	seedProduct(t, db, 2, 10)
	seedProduct(t, db, 3, 10)
	svc := NewService(db, nil)

	p := testPayload(
		ItemPayload{ProductID: 1, ProductName: "Denim Jacket", Price: decimal.NewFromInt(8500), Quantity: 1, Size: "M"},
		ItemPayload{ProductID: 2, ProductName: "Cargo Pants", Price: decimal.NewFromInt(18000), Quantity: 2, Color: "olive"},
		ItemPayload{ProductID: 3, ProductName: "Beanie", Price: decimal.NewFromInt(3000), Quantity: 1},
	)
	ord, results, err := svc.Submit(context.Background(), p, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, domain.OrderPending, ord.Status)
	require.False(t, ord.PaymentVerified)
	require.NotEmpty(t, ord.OrderNumber)

	var orderCount, itemCount int64
	db.Model(&domain.Order{}).Count(&orderCount)
	db.Model(&domain.OrderItem{}).Where("order_id = ?", ord.ID).Count(&itemCount)
	require.EqualValues(t, 1, orderCount)
	require.EqualValues(t, 3, itemCount)

	require.Len(t, results, 3)
	for _, r := range results {
		require.True(t, r.Ok(), "stock decrement failed: %s", r.Error)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc := NewService(testDB(t), nil)

	_, _, err := svc.Submit(context.Background(), testPayload(), DefaultOptions())
	require.ErrorIs(t, err, ErrNoItems)

	p := testPayload(ItemPayload{ProductName: "Tee", Price: decimal.NewFromInt(100), Quantity: 1})
	p.DeliveryOption = domain.DeliveryCourier
	p.DeliveryAddress = "  "
	_, _, err = svc.Submit(context.Background(), p, DefaultOptions())
	require.ErrorIs(t, err, ErrAddressRequired)
}

// A negative quantity would turn the guarded decrement into an increment,
// letting any caller inflate stock. The payload must be rejected up front.
func TestSubmitRejectsInvalidItems(t *testing.T) {
	db := testDB(t)
	seedProduct(t, db, 1, 5)
	svc := NewService(db, nil)

	p := testPayload(ItemPayload{ProductID: 1, ProductName: "Tee", Price: decimal.NewFromInt(100), Quantity: -3})
	_, _, err := svc.Submit(context.Background(), p, DefaultOptions())
	require.ErrorIs(t, err, ErrInvalidItem)

	p = testPayload(ItemPayload{ProductID: 1, ProductName: "Tee", Price: decimal.NewFromInt(100), Quantity: 0})
	_, _, err = svc.Submit(context.Background(), p, DefaultOptions())
	require.ErrorIs(t, err, ErrInvalidItem)

	p = testPayload(ItemPayload{ProductID: 1, ProductName: "Tee", Price: decimal.NewFromInt(-100), Quantity: 1})
	_, _, err = svc.Submit(context.Background(), p, DefaultOptions())
	require.ErrorIs(t, err, ErrInvalidItem)

	var prod domain.Product
	require.NoError(t, db.First(&prod, int64(1)).Error)
	require.Equal(t, 5, prod.Stock, "rejected payloads must not touch stock")

	var orders int64
	db.Model(&domain.Order{}).Count(&orders)
	require.EqualValues(t, 0, orders)
}

// Item-insert failure must not leave the order row behind, in either mode.
func TestSubmitItemFailureRemovesOrder(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		t.Run(fmt.Sprintf("atomic=%v", atomic), func(t *testing.T) {
			db := testDB(t)
			svc := NewService(db, nil)
			require.NoError(t, db.Migrator().DropTable(&domain.OrderItem{}))

			p := testPayload(ItemPayload{ProductName: "Tee", Price: decimal.NewFromInt(100), Quantity: 1})
			_, _, err := svc.Submit(context.Background(), p, Options{Atomic: atomic, MaxAttempts: 1})
			require.Error(t, err)

			var count int64
			db.Model(&domain.Order{}).Count(&count)
			require.EqualValues(t, 0, count, "compensating delete must remove the order")
		})
	}
}

func TestStockNeverGoesNegative(t *testing.T) {
	db := testDB(t)
	seedProduct(t, db, 1, 5)
	svc := NewService(db, nil)

	p := testPayload(ItemPayload{ProductID: 1, ProductName: "Tee", Price: decimal.NewFromInt(100), Quantity: 3})

	// first submission consumes stock
	_, results, err := svc.Submit(context.Background(), p, DefaultOptions())
	require.NoError(t, err)
	require.True(t, results[0].Ok())

	// second submission exceeds the remaining 2; guard refuses, order stands
	ord, results, err := svc.Submit(context.Background(), p, DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, ord)
	require.False(t, results[0].Ok())
	require.Equal(t, "insufficient stock", results[0].Error)

	var prod domain.Product
	require.NoError(t, db.First(&prod, int64(1)).Error)
	require.Equal(t, 2, prod.Stock, "guarded decrement must never drive stock below zero")

	var orders int64
	db.Model(&domain.Order{}).Count(&orders)
	require.EqualValues(t, 2, orders)
}

// Submitting the identical payload twice must not produce two orders with
// the same order number: the unique index rejects the second insert and the
// service regenerates.
func TestDuplicateOrderNumberRegenerated(t *testing.T) {
	db := testDB(t)
	seedProduct(t, db, 1, 10)
	svc := NewService(db, nil)

	p := testPayload(ItemPayload{ProductID: 1, ProductName: "Tee", Price: decimal.NewFromInt(100), Quantity: 1})
	p.OrderNumber = "UT00000001"

	first, _, err := svc.Submit(context.Background(), p, DefaultOptions())
	require.NoError(t, err)

	second, _, err := svc.Submit(context.Background(), p, DefaultOptions())
	require.NoError(t, err)
	require.NotEqual(t, first.OrderNumber, second.OrderNumber)

	var count int64
	db.Model(&domain.Order{}).Where("order_number = ?", "UT00000001").Count(&count)
	require.EqualValues(t, 1, count)
}

func TestSubmitPublishesOrderCreated(t *testing.T) {
	db := testDB(t)
	seedProduct(t, db, 1, 10)
	bus := EventBus.New()

	var (
		mu       sync.Mutex
		received *domain.Order
	)
	require.NoError(t, bus.Subscribe(TopicOrderCreated, func(o *domain.Order) {
		mu.Lock()
		received = o
		mu.Unlock()
	}))

	svc := NewService(db, bus)
	p := testPayload(ItemPayload{ProductID: 1, ProductName: "Tee", Price: decimal.NewFromInt(100), Quantity: 1})
	ord, _, err := svc.Submit(context.Background(), p, DefaultOptions())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return received != nil && received.OrderNumber == ord.OrderNumber
	}, time.Second, 10*time.Millisecond)
}
