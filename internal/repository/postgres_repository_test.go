package repository

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Property: stored products read back with the same catalogue attributes
func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("created products are retrieved unchanged", prop.ForAll(
		func(name string, cents int64, stock int, categoryIndex int, featured bool) bool {
			product := newTestProduct(name, "0", featured, time.Now())
			product.Price = decimal.New(cents, -2)
			product.Stock = stock
			product.Category = domain.Categories[categoryIndex]

			if err := repo.Create(ctx, product); err != nil {
				t.Logf("FAIL: create: %v", err)
				return false
			}

			found, err := repo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("FAIL: find: %v", err)
				return false
			}

			if found.Name != name || found.Stock != stock || found.Category != product.Category || found.IsFeatured != featured {
				t.Logf("FAIL: attributes differ: %+v", found)
				return false
			}
			if !found.Price.Equal(product.Price) {
				t.Logf("FAIL: price %s != %s", found.Price, product.Price)
				return false
			}
			return true
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 && len(s) < 100 }),
		gen.Int64Range(0, 99999999),
		gen.IntRange(0, 10000),
		gen.IntRange(0, len(domain.Categories)-1),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestPostgres_CartRejectsUnknownProduct(t *testing.T) {
	ctx := context.Background()
	carts := NewCartRepository(testDB)

	cart := domain.NewCart(uuid.New(), time.Now())
	cart.Items = []domain.CartItem{{ID: uuid.New(), ProductID: uuid.New(), Quantity: 1}}

	assert.ErrorIs(t, carts.Save(ctx, cart), ErrProductNotFound)

	// The failed save left nothing behind
	stored, err := carts.FindByUser(ctx, cart.UserID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestPostgres_ReviewRejectsUnknownProduct(t *testing.T) {
	review := &domain.Review{ID: uuid.New(), ProductID: uuid.New(), UserID: uuid.New(), Rating: 3, Comment: "?", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	assert.ErrorIs(t, NewReviewRepository(testDB).Create(context.Background(), review), ErrProductNotFound)
}

func TestPostgres_DeletingProductCascades(t *testing.T) {
	ctx := context.Background()
	products := NewProductRepository(testDB)
	carts := NewCartRepository(testDB)
	reviews := NewReviewRepository(testDB)

	product := newTestProduct("cascade", "3.00", false, time.Now())
	require.NoError(t, products.Create(ctx, product))

	cart := domain.NewCart(uuid.New(), time.Now())
	cart.Items = []domain.CartItem{{ID: uuid.New(), ProductID: product.ID, Quantity: 2}}
	require.NoError(t, carts.Save(ctx, cart))

	review := &domain.Review{ID: uuid.New(), ProductID: product.ID, UserID: cart.UserID, Rating: 5, Comment: "!", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, reviews.Create(ctx, review))

	_, err := testDB.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, product.ID)
	require.NoError(t, err)

	stored, err := carts.FindByUser(ctx, cart.UserID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Empty(t, stored.Items)

	_, err = reviews.FindByID(ctx, review.ID)
	assert.ErrorIs(t, err, ErrReviewNotFound)
}
