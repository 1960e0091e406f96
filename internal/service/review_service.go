package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/lock"
	"storefront/internal/metrics"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// ReviewService defines the interface for review business logic.
// Every mutation recomputes the product's rating aggregate in the same
// transaction, under the product's rating lock.
type ReviewService interface {
	CreateReview(ctx context.Context, actor domain.Actor, productID uuid.UUID, rating int, comment string) (*domain.Review, error)
	UpdateReview(ctx context.Context, actor domain.Actor, reviewID uuid.UUID, rating int, comment string) (*domain.Review, error)
	DeleteReview(ctx context.Context, actor domain.Actor, reviewID uuid.UUID) error
	RecomputeAggregate(ctx context.Context, productID uuid.UUID) (domain.RatingAggregate, error)
	ListProductReviews(ctx context.Context, productID uuid.UUID) ([]*domain.Review, error)
}

type reviewService struct {
	productRepo repository.ProductRepository
	reviewRepo  repository.ReviewRepository
	tx          repository.Transactor
	locker      lock.Locker
	publisher   events.Publisher
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewReviewService creates a new instance of ReviewService
func NewReviewService(
	productRepo repository.ProductRepository,
	reviewRepo repository.ReviewRepository,
	tx repository.Transactor,
	locker lock.Locker,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) ReviewService {
	return &reviewService{
		productRepo: productRepo,
		reviewRepo:  reviewRepo,
		tx:          tx,
		locker:      locker,
		publisher:   publisher,
		metrics:     m,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateReview stores the actor's review of a product. A user may review a
// product only once.
func (s *reviewService) CreateReview(ctx context.Context, actor domain.Actor, productID uuid.UUID, rating int, comment string) (review *domain.Review, err error) {
	ctx, op := s.start(ctx, "create")
	defer func() { op.end(err) }()

	if !validRating(rating) {
		return nil, ErrInvalidRating
	}

	var aggregate domain.RatingAggregate
	err = withLock(ctx, s.locker, s.logger, lock.ProductRatingKey(productID.String()), func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
				return err
			}

			existing, err := s.reviewRepo.FindByProductAndUser(ctx, productID, actor.UserID)
			if err != nil {
				return fmt.Errorf("failed to check existing review: %w", err)
			}
			if existing != nil {
				return ErrDuplicateReview
			}

			now := s.now()
			review = &domain.Review{
				ID:        uuid.New(),
				ProductID: productID,
				UserID:    actor.UserID,
				Rating:    rating,
				Comment:   strings.TrimSpace(comment),
				CreatedAt: now,
				UpdatedAt: now,
			}

			if err := s.reviewRepo.Create(ctx, review); err != nil {
				if errors.Is(err, repository.ErrReviewAlreadyExists) {
					return ErrDuplicateReview
				}
				return err
			}

			recomputed, err := s.recompute(ctx, productID)
			aggregate = recomputed
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventReviewCreated, review, aggregate)
	return review, nil
}

// UpdateReview replaces the rating and comment of the actor's own review
func (s *reviewService) UpdateReview(ctx context.Context, actor domain.Actor, reviewID uuid.UUID, rating int, comment string) (review *domain.Review, err error) {
	ctx, op := s.start(ctx, "update")
	defer func() { op.end(err) }()

	if !validRating(rating) {
		return nil, ErrInvalidRating
	}

	var aggregate domain.RatingAggregate
	err = s.withReview(ctx, reviewID, func(ctx context.Context, current *domain.Review) error {
		if !actor.CanModify(current) {
			return ErrForbidden
		}

		current.Rating = rating
		current.Comment = strings.TrimSpace(comment)
		current.UpdatedAt = s.now()

		if err := s.reviewRepo.Update(ctx, current); err != nil {
			return err
		}

		review = current
		recomputed, err := s.recompute(ctx, current.ProductID)
		aggregate = recomputed
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventReviewUpdated, review, aggregate)
	return review, nil
}

// DeleteReview removes a review. The author or an admin may delete it.
func (s *reviewService) DeleteReview(ctx context.Context, actor domain.Actor, reviewID uuid.UUID) (err error) {
	ctx, op := s.start(ctx, "delete")
	defer func() { op.end(err) }()

	var (
		deleted   *domain.Review
		aggregate domain.RatingAggregate
	)
	err = s.withReview(ctx, reviewID, func(ctx context.Context, current *domain.Review) error {
		if !actor.CanDelete(current) {
			return ErrForbidden
		}

		if err := s.reviewRepo.Delete(ctx, current.ID); err != nil {
			return err
		}

		deleted = current
		recomputed, err := s.recompute(ctx, current.ProductID)
		aggregate = recomputed
		return err
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventReviewDeleted, deleted, aggregate)
	return nil
}

// RecomputeAggregate rebuilds a product's rating from its full review set.
// Repeated calls without intervening review changes write the same values.
func (s *reviewService) RecomputeAggregate(ctx context.Context, productID uuid.UUID) (aggregate domain.RatingAggregate, err error) {
	ctx, op := s.start(ctx, "recompute")
	defer func() { op.end(err) }()

	err = withLock(ctx, s.locker, s.logger, lock.ProductRatingKey(productID.String()), func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			recomputed, err := s.recompute(ctx, productID)
			aggregate = recomputed
			return err
		})
	})
	return aggregate, err
}

// ListProductReviews returns a product's reviews, newest first
func (s *reviewService) ListProductReviews(ctx context.Context, productID uuid.UUID) (reviews []*domain.Review, err error) {
	ctx, op := s.start(ctx, "list")
	defer func() { op.end(err) }()

	reviews, err = s.reviewRepo.FindByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

// withReview locks the rating of the review's product and runs fn in a
// transaction with the review re-read under that lock
func (s *reviewService) withReview(ctx context.Context, reviewID uuid.UUID, fn func(ctx context.Context, review *domain.Review) error) error {
	review, err := s.reviewRepo.FindByID(ctx, reviewID)
	if err != nil {
		return err
	}

	return withLock(ctx, s.locker, s.logger, lock.ProductRatingKey(review.ProductID.String()), func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			current, err := s.reviewRepo.FindByID(ctx, reviewID)
			if err != nil {
				return err
			}
			return fn(ctx, current)
		})
	})
}

func (s *reviewService) recompute(ctx context.Context, productID uuid.UUID) (domain.RatingAggregate, error) {
	reviews, err := s.reviewRepo.FindByProduct(ctx, productID)
	if err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("failed to load reviews: %w", err)
	}

	aggregate := ComputeAggregate(productID, reviews)
	if err := s.productRepo.UpdateRating(ctx, aggregate); err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("failed to update product rating: %w", err)
	}

	return aggregate, nil
}

// publish delivers a review event after commit. Failures are logged only.
func (s *reviewService) publish(ctx context.Context, eventType string, review *domain.Review, aggregate domain.RatingAggregate) {
	if s.publisher == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := events.NewReviewEvent(eventType, review, aggregate, s.now())
	if err := s.publisher.Publish(pubCtx, event); err != nil {
		s.logger.Error("Failed to publish review event",
			zap.String("event_type", eventType),
			zap.String("review_id", review.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *reviewService) start(ctx context.Context, name string) (context.Context, *operation) {
	return startOperation(ctx, "review."+name, s.metrics, s.metrics.ReviewOperation, s.logger)
}
