// Package events publishes review domain events after their transaction commits.
package events

import (
	"context"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

const (
	EventReviewCreated = "review_created"
	EventReviewUpdated = "review_updated"
	EventReviewDeleted = "review_deleted"
)

// Event is the envelope written to the event stream
type Event struct {
	EventType  string                 `json:"eventType"`
	OccurredAt time.Time              `json:"occurredAt"`
	Data       ReviewEvent            `json:"data"`
	Aggregate  domain.RatingAggregate `json:"aggregate"`
}

// ReviewEvent describes the review that changed
type ReviewEvent struct {
	ReviewID  uuid.UUID `json:"reviewId"`
	ProductID uuid.UUID `json:"productId"`
	UserID    uuid.UUID `json:"userId"`
	Rating    int       `json:"rating"`
}

// NewReviewEvent builds an event for review with the recomputed aggregate
func NewReviewEvent(eventType string, review *domain.Review, aggregate domain.RatingAggregate, now time.Time) Event {
	return Event{
		EventType:  eventType,
		OccurredAt: now,
		Data: ReviewEvent{
			ReviewID:  review.ID,
			ProductID: review.ProductID,
			UserID:    review.UserID,
			Rating:    review.Rating,
		},
		Aggregate: aggregate,
	}
}

// Publisher delivers events to downstream consumers
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
