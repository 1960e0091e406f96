package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is the single shopping cart owned by a user.
// Version is bumped on every save and used for compare-and-swap writes.
type Cart struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"userId" db:"user_id"`
	Items     []CartItem `json:"items"`
	Version   int        `json:"-" db:"version"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
}

// CartItem is one line of a cart
type CartItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
}

// NewCart creates an empty, unsaved cart for userID
func NewCart(userID uuid.UUID, now time.Time) *Cart {
	return &Cart{
		ID:        uuid.New(),
		UserID:    userID,
		Items:     []CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ItemIndex returns the index of the line with itemID, or -1
func (c *Cart) ItemIndex(itemID uuid.UUID) int {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// ProductIndex returns the index of the line referencing productID, or -1
func (c *Cart) ProductIndex(productID uuid.UUID) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// ProductIDs returns the product id of every line, in line order
func (c *Cart) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// CartLine is a cart item joined with its current product
type CartLine struct {
	ID       uuid.UUID `json:"_id"`
	Product  *Product  `json:"product"`
	Quantity int       `json:"quantity"`
}

// CartView is the materialized cart returned to callers
type CartView struct {
	Items []CartLine      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// EmptyCartView is the view of a cart without lines
func EmptyCartView() *CartView {
	return &CartView{Items: []CartLine{}, Total: decimal.Zero}
}

// BuildCartView joins cart lines with products and computes the total from
// current prices. Lines whose product no longer exists are left out.
func BuildCartView(cart *Cart, products map[uuid.UUID]*Product) *CartView {
	view := EmptyCartView()
	if cart == nil {
		return view
	}

	for _, item := range cart.Items {
		product, ok := products[item.ProductID]
		if !ok {
			continue
		}
		view.Items = append(view.Items, CartLine{
			ID:       item.ID,
			Product:  product,
			Quantity: item.Quantity,
		})
		view.Total = view.Total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	return view
}
