package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinRating = 1
	MaxRating = 5

	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Review is a user's rating of a product; one per (product, user)
type Review struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"productId" db:"product_id"`
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// RatingAggregate is the denormalized (rating, numReviews) pair stored on a product
type RatingAggregate struct {
	ProductID  uuid.UUID `json:"productId"`
	Rating     float64   `json:"rating"`
	NumReviews int       `json:"numReviews"`
}

// Actor identifies the authenticated caller of an operation
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// IsAdmin reports whether the actor holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanModify reports whether the actor may update r (author only)
func (a Actor) CanModify(r *Review) bool {
	return r.UserID == a.UserID
}

// CanDelete reports whether the actor may delete r (author or admin)
func (a Actor) CanDelete(r *Review) bool {
	return a.CanModify(r) || a.IsAdmin()
}
