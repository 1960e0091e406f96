package transport

import (
	"errors"
	"net/http"

	"storefront/internal/lock"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"go.uber.org/zap"
)

type errorMapping struct {
	target  error
	status  int
	message string
}

// errorTable translates core errors to responses. The first match wins;
// anything unmatched is a 500 with a generic message.
var errorTable = []errorMapping{
	{repository.ErrProductNotFound, http.StatusNotFound, "Product not found"},
	{repository.ErrReviewNotFound, http.StatusNotFound, "Review not found"},
	{service.ErrCartNotFound, http.StatusNotFound, "Cart not found"},
	{service.ErrCartItemNotFound, http.StatusNotFound, "Item not found in cart"},
	{service.ErrInsufficientStock, http.StatusBadRequest, "Not enough stock"},
	{service.ErrInvalidQuantity, http.StatusBadRequest, "Quantity must be greater than zero"},
	{service.ErrInvalidRating, http.StatusBadRequest, "Rating must be between 1 and 5"},
	{service.ErrInvalidProduct, http.StatusBadRequest, ""},
	{service.ErrDuplicateReview, http.StatusBadRequest, "You already reviewed this product"},
	{service.ErrForbidden, http.StatusForbidden, "Not authorized"},
	{repository.ErrCartVersionConflict, http.StatusConflict, "Cart was modified concurrently, please retry"},
	{lock.ErrNotObtained, http.StatusServiceUnavailable, "Resource is busy, please retry"},
}

// statusFor returns the status and client message for err
func statusFor(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			if m.message == "" {
				// Validation failures carry their own detail
				return m.status, err.Error()
			}
			return m.status, m.message
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

// respondWithServiceError writes the envelope for err
func respondWithServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	} else {
		logger.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
	}
	middleware.RespondWithError(w, status, message)
}
