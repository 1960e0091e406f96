package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/lock"
	"storefront/internal/metrics"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartService defines the interface for cart business logic.
// Every mutation runs under the user's cart lock and in one transaction.
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*domain.CartView, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartView, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*domain.CartView, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*domain.CartView, error)
	ClearCart(ctx context.Context, userID uuid.UUID) (*domain.CartView, error)
}

type cartService struct {
	productRepo repository.ProductRepository
	cartRepo    repository.CartRepository
	tx          repository.Transactor
	locker      lock.Locker
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewCartService creates a new instance of CartService
func NewCartService(
	productRepo repository.ProductRepository,
	cartRepo repository.CartRepository,
	tx repository.Transactor,
	locker lock.Locker,
	m *metrics.Metrics,
	logger *zap.Logger,
) CartService {
	return &cartService{
		productRepo: productRepo,
		cartRepo:    cartRepo,
		tx:          tx,
		locker:      locker,
		metrics:     m,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// cartChange mutates cart (which may be nil) and returns the cart to render
// and whether it must be saved
type cartChange func(ctx context.Context, cart *domain.Cart) (*domain.Cart, bool, error)

// GetCart returns the user's cart joined with current product data.
// A user without a cart gets an empty view and nothing is created.
func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (view *domain.CartView, err error) {
	ctx, op := s.start(ctx, "get_cart")
	defer func() { op.end(err) }()

	cart, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	return s.buildView(ctx, cart)
}

// AddItem adds quantity of a product, merging with an existing line. The
// merged quantity must not exceed the product's current stock.
func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (view *domain.CartView, err error) {
	ctx, op := s.start(ctx, "add_item")
	defer func() { op.end(err) }()

	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	return s.mutate(ctx, userID, func(ctx context.Context, cart *domain.Cart) (*domain.Cart, bool, error) {
		product, err := s.productRepo.FindByID(ctx, productID)
		if err != nil {
			return nil, false, err
		}

		if cart == nil {
			cart = domain.NewCart(userID, s.now())
		}

		idx := cart.ProductIndex(productID)
		existing := 0
		if idx >= 0 {
			existing = cart.Items[idx].Quantity
		}

		// Compared against the remaining stock so existing+quantity cannot overflow
		if quantity > product.Stock-existing {
			return nil, false, ErrInsufficientStock
		}

		if idx >= 0 {
			cart.Items[idx].Quantity = existing + quantity
		} else {
			cart.Items = append(cart.Items, domain.CartItem{
				ID:        uuid.New(),
				ProductID: productID,
				Quantity:  quantity,
			})
		}

		return cart, true, nil
	})
}

// UpdateItemQuantity sets the quantity of an existing line
func (s *cartService) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (view *domain.CartView, err error) {
	ctx, op := s.start(ctx, "update_item")
	defer func() { op.end(err) }()

	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	return s.mutate(ctx, userID, func(ctx context.Context, cart *domain.Cart) (*domain.Cart, bool, error) {
		if cart == nil {
			return nil, false, ErrCartNotFound
		}

		idx := cart.ItemIndex(itemID)
		if idx < 0 {
			return nil, false, ErrCartItemNotFound
		}

		product, err := s.productRepo.FindByID(ctx, cart.Items[idx].ProductID)
		if err != nil {
			return nil, false, err
		}

		if !product.HasStock(quantity) {
			return nil, false, ErrInsufficientStock
		}

		cart.Items[idx].Quantity = quantity
		return cart, true, nil
	})
}

// RemoveItem deletes a line. Removing an unknown line leaves the cart unchanged.
func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (view *domain.CartView, err error) {
	ctx, op := s.start(ctx, "remove_item")
	defer func() { op.end(err) }()

	return s.mutate(ctx, userID, func(_ context.Context, cart *domain.Cart) (*domain.Cart, bool, error) {
		if cart == nil {
			return nil, false, ErrCartNotFound
		}

		idx := cart.ItemIndex(itemID)
		if idx < 0 {
			return cart, false, nil
		}

		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		return cart, true, nil
	})
}

// ClearCart empties the user's cart. The cart itself is kept.
func (s *cartService) ClearCart(ctx context.Context, userID uuid.UUID) (view *domain.CartView, err error) {
	ctx, op := s.start(ctx, "clear_cart")
	defer func() { op.end(err) }()

	return s.mutate(ctx, userID, func(_ context.Context, cart *domain.Cart) (*domain.Cart, bool, error) {
		if cart == nil {
			return nil, false, nil
		}

		cart.Items = []domain.CartItem{}
		return cart, true, nil
	})
}

func (s *cartService) mutate(ctx context.Context, userID uuid.UUID, change cartChange) (*domain.CartView, error) {
	var view *domain.CartView

	err := withLock(ctx, s.locker, s.logger, lock.CartKey(userID.String()), func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			cart, err := s.cartRepo.FindByUser(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to load cart: %w", err)
			}

			cart, save, err := change(ctx, cart)
			if err != nil {
				return err
			}

			if save {
				cart.UpdatedAt = s.now()
				if err := s.cartRepo.Save(ctx, cart); err != nil {
					return fmt.Errorf("failed to save cart: %w", err)
				}
			}

			view, err = s.buildView(ctx, cart)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	return view, nil
}

func (s *cartService) buildView(ctx context.Context, cart *domain.Cart) (*domain.CartView, error) {
	if cart == nil || len(cart.Items) == 0 {
		return domain.EmptyCartView(), nil
	}

	products, err := s.productRepo.FindByIDs(ctx, cart.ProductIDs())
	if err != nil {
		return nil, fmt.Errorf("failed to load cart products: %w", err)
	}

	return domain.BuildCartView(cart, products), nil
}

func (s *cartService) start(ctx context.Context, name string) (context.Context, *operation) {
	return startOperation(ctx, "cart."+name, s.metrics, s.metrics.CartOperation, s.logger)
}
