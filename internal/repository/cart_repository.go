package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCartVersionConflict = errors.New("cart was modified concurrently")
)

// CartRepository defines the interface for cart data access
type CartRepository interface {
	// FindByUser returns the user's cart, or nil when the user has none
	FindByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	// Save inserts a cart with version 0 or replaces a stored cart whose
	// version still matches, then increments cart.Version
	Save(ctx context.Context, cart *domain.Cart) error
}

type cartRepository struct {
	db *sql.DB
	tx Transactor
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db, tx: NewTransactor(db)}
}

// FindByUser retrieves the cart and its lines for a user
func (r *cartRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	query := `
		SELECT id, user_id, version, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`

	cart := &domain.Cart{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.Version,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find cart by user: %w", err)
	}

	items, err := r.findItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items

	return cart, nil
}

func (r *cartRepository) findItems(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	query := `
		SELECT id, product_id, quantity
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY position ASC
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// Save persists the cart header and replaces its lines in one transaction
func (r *cartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := r.saveHeader(ctx, cart); err != nil {
			return err
		}
		return r.replaceItems(ctx, cart)
	})
	if err != nil {
		return err
	}

	cart.Version++
	return nil
}

func (r *cartRepository) saveHeader(ctx context.Context, cart *domain.Cart) error {
	if cart.Version == 0 {
		query := `
			INSERT INTO carts (id, user_id, version, created_at, updated_at)
			VALUES ($1, $2, 1, $3, $4)
		`
		_, err := conn(ctx, r.db).ExecContext(ctx, query, cart.ID, cart.UserID, cart.CreatedAt, cart.UpdatedAt)
		if err != nil {
			// Another request created the user's cart first
			if isUniqueViolation(err) {
				return ErrCartVersionConflict
			}
			return fmt.Errorf("failed to create cart: %w", err)
		}
		return nil
	}

	query := `
		UPDATE carts
		SET version = version + 1, updated_at = $3
		WHERE id = $1 AND version = $2
	`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, cart.ID, cart.Version, cart.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCartVersionConflict
	}

	return nil
}

func (r *cartRepository) replaceItems(ctx context.Context, cart *domain.Cart) error {
	db := conn(ctx, r.db)

	if _, err := db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID); err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}

	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, position)
		VALUES ($1, $2, $3, $4, $5)
	`
	for i, item := range cart.Items {
		if _, err := db.ExecContext(ctx, query, item.ID, cart.ID, item.ProductID, item.Quantity, i); err != nil {
			if isForeignKeyViolation(err) {
				return ErrProductNotFound
			}
			return fmt.Errorf("failed to insert cart item: %w", err)
		}
	}

	return nil
}
