package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Property: the cart total is the sum of current price times quantity
func TestProperty_CartTotalMatchesLineSum(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("total equals sum of price x quantity and follows price changes", prop.ForAll(
		func(prices []int, quantities []int, newPrice int) bool {
			ctx := context.Background()
			store := newMemStore()
			svc := newTestCartService(store)
			userID := uuid.New()

			n := len(prices)
			if len(quantities) < n {
				n = len(quantities)
			}
			if n == 0 {
				return true
			}

			expected := decimal.Zero
			var first uuid.UUID
			for i := 0; i < n; i++ {
				price := decimal.New(int64(prices[i]), -2)
				product := store.addProduct(price.StringFixed(2), 1000)
				if i == 0 {
					first = product.ID
				}
				if _, err := svc.AddItem(ctx, userID, product.ID, quantities[i]); err != nil {
					t.Logf("FAIL: AddItem failed: %v", err)
					return false
				}
				expected = expected.Add(price.Mul(decimal.NewFromInt(int64(quantities[i]))))
			}

			view, err := svc.GetCart(ctx, userID)
			if err != nil {
				t.Logf("FAIL: GetCart failed: %v", err)
				return false
			}
			if !view.Total.Equal(expected) {
				t.Logf("FAIL: total mismatch. Expected %s, got %s", expected, view.Total)
				return false
			}

			// Reprice the first product; the next read must use the new price
			oldPrice := decimal.New(int64(prices[0]), -2)
			repriced := decimal.New(int64(newPrice), -2)
			store.setPrice(first, repriced.StringFixed(2))
			qty := decimal.NewFromInt(int64(quantities[0]))
			expected = expected.Sub(oldPrice.Mul(qty)).Add(repriced.Mul(qty))

			view, err = svc.GetCart(ctx, userID)
			if err != nil {
				t.Logf("FAIL: GetCart after reprice failed: %v", err)
				return false
			}
			if !view.Total.Equal(expected) {
				t.Logf("FAIL: total after reprice mismatch. Expected %s, got %s", expected, view.Total)
				return false
			}

			return true
		},
		gen.SliceOf(gen.IntRange(0, 100000)),
		gen.SliceOf(gen.IntRange(1, 20)),
		gen.IntRange(0, 100000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property: adding the same product twice yields one line with the summed quantity
func TestProperty_AddItemMergesLines(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("AddItem(p, a) then AddItem(p, b) gives one line of a+b", prop.ForAll(
		func(a int, b int) bool {
			ctx := context.Background()
			store := newMemStore()
			svc := newTestCartService(store)
			userID := uuid.New()
			product := store.addProduct("1.50", 100)

			if _, err := svc.AddItem(ctx, userID, product.ID, a); err != nil {
				t.Logf("FAIL: first AddItem failed: %v", err)
				return false
			}
			view, err := svc.AddItem(ctx, userID, product.ID, b)
			if err != nil {
				t.Logf("FAIL: second AddItem failed: %v", err)
				return false
			}

			if len(view.Items) != 1 {
				t.Logf("FAIL: expected 1 line, got %d", len(view.Items))
				return false
			}
			if view.Items[0].Quantity != a+b {
				t.Logf("FAIL: expected quantity %d, got %d", a+b, view.Items[0].Quantity)
				return false
			}

			return true
		},
		gen.IntRange(1, 50),
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property: a quantity above stock is rejected and the stored cart is untouched
func TestProperty_AddItemRejectsOverStock(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("AddItem with quantity > stock fails with ErrInsufficientStock", prop.ForAll(
		func(stock int, extra int, held int) bool {
			ctx := context.Background()
			store := newMemStore()
			svc := newTestCartService(store)
			userID := uuid.New()

			other := store.addProduct("2.00", 10)
			if _, err := svc.AddItem(ctx, userID, other.ID, 1); err != nil {
				t.Logf("FAIL: setup AddItem failed: %v", err)
				return false
			}
			before, _ := store.storedCart(userID)

			product := store.addProduct("3.00", stock)
			_, err := svc.AddItem(ctx, userID, product.ID, stock+extra)
			if !errors.Is(err, ErrInsufficientStock) {
				t.Logf("FAIL: expected ErrInsufficientStock, got %v", err)
				return false
			}

			// The merged quantity is validated too
			if stock > 0 {
				inCart := held%stock + 1
				if _, err := svc.AddItem(ctx, userID, product.ID, inCart); err != nil {
					t.Logf("FAIL: in-stock AddItem failed: %v", err)
					return false
				}
				before, _ = store.storedCart(userID)
				_, err = svc.AddItem(ctx, userID, product.ID, stock-inCart+extra)
				if !errors.Is(err, ErrInsufficientStock) {
					t.Logf("FAIL: expected ErrInsufficientStock for merged quantity, got %v", err)
					return false
				}
			}

			after, _ := store.storedCart(userID)
			if after.Version != before.Version || len(after.Items) != len(before.Items) {
				t.Logf("FAIL: cart changed after rejected AddItem")
				return false
			}
			for i := range before.Items {
				if after.Items[i] != before.Items[i] {
					t.Logf("FAIL: line %d changed after rejected AddItem", i)
					return false
				}
			}

			return true
		},
		gen.IntRange(0, 20),
		gen.IntRange(1, 20),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestCartService_AddItemRejectsOverflowingQuantity(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestCartService(store)
	userID := uuid.New()
	product := store.addProduct("10.00", 5)

	_, err := svc.AddItem(ctx, userID, product.ID, 1)
	require.NoError(t, err)
	before, _ := store.storedCart(userID)

	for _, quantity := range []int{math.MaxInt, math.MaxInt - 1, math.MaxInt - 4} {
		_, err = svc.AddItem(ctx, userID, product.ID, quantity)
		assert.ErrorIs(t, err, ErrInsufficientStock, "quantity %d", quantity)
	}

	after, _ := store.storedCart(userID)
	assert.Equal(t, before.Version, after.Version)
	require.Len(t, after.Items, 1)
	assert.Equal(t, 1, after.Items[0].Quantity)

	view, err := svc.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("10.00")), "total %s", view.Total)
}

// Property: removing an unknown line is a no-op
func TestProperty_RemoveUnknownItemIsNoop(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("RemoveItem with an unknown id leaves the cart unchanged", prop.ForAll(
		func(quantity int) bool {
			ctx := context.Background()
			store := newMemStore()
			svc := newTestCartService(store)
			userID := uuid.New()
			product := store.addProduct("4.25", 50)

			before, err := svc.AddItem(ctx, userID, product.ID, quantity)
			if err != nil {
				t.Logf("FAIL: AddItem failed: %v", err)
				return false
			}
			stored, _ := store.storedCart(userID)

			after, err := svc.RemoveItem(ctx, userID, uuid.New())
			if err != nil {
				t.Logf("FAIL: RemoveItem returned error: %v", err)
				return false
			}

			current, _ := store.storedCart(userID)
			return current.Version == stored.Version &&
				len(after.Items) == len(before.Items) &&
				after.Total.Equal(before.Total)
		},
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestCartService_StockScenario(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestCartService(store)
	userID := uuid.New()
	product := store.addProduct("10.00", 5)

	view, err := svc.AddItem(ctx, userID, product.ID, 3)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("30.00")))

	itemID := view.Items[0].ID

	view, err = svc.UpdateItemQuantity(ctx, userID, itemID, 5)
	require.NoError(t, err)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("50.00")))

	_, err = svc.UpdateItemQuantity(ctx, userID, itemID, 6)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	view, err = svc.GetCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("50.00")))
}

func TestCartService_GetCartWithoutCart(t *testing.T) {
	store := newMemStore()
	svc := newTestCartService(store)
	userID := uuid.New()

	view, err := svc.GetCart(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.NotNil(t, view.Items)
	assert.True(t, view.Total.IsZero())

	_, exists := store.storedCart(userID)
	assert.False(t, exists, "GetCart must not create a cart")
}

func TestCartService_ClearCart(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestCartService(store)
	userID := uuid.New()

	// No cart: empty view, nothing created
	view, err := svc.ClearCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	_, exists := store.storedCart(userID)
	assert.False(t, exists)

	p1 := store.addProduct("5.00", 10)
	p2 := store.addProduct("7.50", 10)
	_, err = svc.AddItem(ctx, userID, p1.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, userID, p2.ID, 1)
	require.NoError(t, err)

	view, err = svc.ClearCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.Total.IsZero())

	view, err = svc.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.Total.IsZero())

	stored, exists := store.storedCart(userID)
	assert.True(t, exists, "cleared cart is kept")
	assert.Empty(t, stored.Items)
}

func TestCartService_Validation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestCartService(store)
	userID := uuid.New()
	product := store.addProduct("1.00", 10)

	_, err := svc.AddItem(ctx, userID, product.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddItem(ctx, userID, product.ID, -3)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddItem(ctx, userID, uuid.New(), 1)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	_, err = svc.UpdateItemQuantity(ctx, userID, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, err = svc.RemoveItem(ctx, userID, uuid.New())
	assert.ErrorIs(t, err, ErrCartNotFound)

	view, err := svc.AddItem(ctx, userID, product.ID, 1)
	require.NoError(t, err)

	_, err = svc.UpdateItemQuantity(ctx, userID, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrCartItemNotFound)

	_, err = svc.UpdateItemQuantity(ctx, userID, view.Items[0].ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCartService_UpdateWithDeletedProduct(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestCartService(store)
	userID := uuid.New()
	gone := store.addProduct("9.99", 10)
	kept := store.addProduct("1.00", 10)

	view, err := svc.AddItem(ctx, userID, gone.ID, 1)
	require.NoError(t, err)
	goneItem := view.Items[0].ID
	_, err = svc.AddItem(ctx, userID, kept.ID, 2)
	require.NoError(t, err)

	store.deleteProduct(gone.ID)

	_, err = svc.UpdateItemQuantity(ctx, userID, goneItem, 2)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	view, err = svc.GetCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1, "lines of deleted products are omitted")
	assert.Equal(t, kept.ID, view.Items[0].Product.ID)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("2.00")))
}

func TestCartService_RemoveItem(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestCartService(store)
	userID := uuid.New()
	p1 := store.addProduct("3.00", 10)
	p2 := store.addProduct("4.00", 10)

	_, err := svc.AddItem(ctx, userID, p1.ID, 1)
	require.NoError(t, err)
	view, err := svc.AddItem(ctx, userID, p2.ID, 2)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)

	view, err = svc.RemoveItem(ctx, userID, view.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, p2.ID, view.Items[0].Product.ID)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("8.00")))
}

func TestCartService_SaveFailureLeavesCartUnchanged(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestCartService(store)
	userID := uuid.New()
	product := store.addProduct("2.00", 10)

	_, err := svc.AddItem(ctx, userID, product.ID, 1)
	require.NoError(t, err)

	store.saveCartErr = errors.New("disk full")
	_, err = svc.AddItem(ctx, userID, product.ID, 1)
	assert.Error(t, err)
	store.saveCartErr = nil

	stored, _ := store.storedCart(userID)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 1, stored.Items[0].Quantity)
}

func TestCartService_ConcurrentAddsAreSerialized(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestCartService(store)
	userID := uuid.New()
	product := store.addProduct("1.00", 1000)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddItem(ctx, userID, product.ID, 2); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent AddItem failed: %v", err)
	}

	view, err := svc.GetCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2*workers, view.Items[0].Quantity)
	assert.True(t, view.Total.Equal(decimal.NewFromInt(2*workers)))
}

func TestBuildCartViewKeepsLineOrder(t *testing.T) {
	a := &domain.Product{ID: uuid.New(), Price: decimal.RequireFromString("1.10")}
	b := &domain.Product{ID: uuid.New(), Price: decimal.RequireFromString("2.20")}
	cart := &domain.Cart{Items: []domain.CartItem{
		{ID: uuid.New(), ProductID: b.ID, Quantity: 1},
		{ID: uuid.New(), ProductID: a.ID, Quantity: 3},
	}}

	view := domain.BuildCartView(cart, map[uuid.UUID]*domain.Product{a.ID: a, b.ID: b})
	require.Len(t, view.Items, 2)
	assert.Equal(t, b.ID, view.Items[0].Product.ID)
	assert.Equal(t, a.ID, view.Items[1].Product.ID)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("5.50")))
}
