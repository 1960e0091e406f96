package service

import (
	"storefront/internal/domain"

	"github.com/google/uuid"
)

// ComputeAggregate returns the arithmetic mean and count of the review
// ratings. An empty set yields rating 0 and count 0.
func ComputeAggregate(productID uuid.UUID, reviews []*domain.Review) domain.RatingAggregate {
	aggregate := domain.RatingAggregate{ProductID: productID}
	if len(reviews) == 0 {
		return aggregate
	}

	sum := 0
	for _, review := range reviews {
		sum += review.Rating
	}

	aggregate.NumReviews = len(reviews)
	aggregate.Rating = float64(sum) / float64(len(reviews))
	return aggregate
}

func validRating(rating int) bool {
	return rating >= domain.MinRating && rating <= domain.MaxRating
}
