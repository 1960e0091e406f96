package service

import (
	"errors"

	"storefront/internal/repository"
)

var (
	ErrCartNotFound      = errors.New("cart not found")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrInvalidProduct    = errors.New("invalid product")
	ErrDuplicateReview   = errors.New("product already reviewed")
	ErrForbidden         = errors.New("not authorized to modify this resource")
)

// IsRejection reports whether err is a business rejection rather than an
// infrastructure failure
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrCartNotFound,
		ErrCartItemNotFound,
		ErrInsufficientStock,
		ErrInvalidQuantity,
		ErrInvalidRating,
		ErrInvalidProduct,
		ErrDuplicateReview,
		ErrForbidden,
		repository.ErrProductNotFound,
		repository.ErrReviewNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
