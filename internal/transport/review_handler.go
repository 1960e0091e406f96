package transport

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateReviewRequest represents the review creation payload
type CreateReviewRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Rating    int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment   string `json:"comment" validate:"required,max=2000"`
}

// UpdateReviewRequest represents the review update payload
type UpdateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"required,max=2000"`
}

// ReviewResponse wraps a single review
type ReviewResponse struct {
	Success bool           `json:"success"`
	Review  *domain.Review `json:"review"`
}

// ReviewListResponse wraps a product's reviews
type ReviewListResponse struct {
	Success bool             `json:"success"`
	Count   int              `json:"count"`
	Reviews []*domain.Review `json:"reviews"`
}

// MessageResponse is a success response without a payload
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ReviewHandler handles HTTP requests for product reviews
type ReviewHandler struct {
	reviewService service.ReviewService
	logger        *zap.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviewService service.ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		logger:        logger,
	}
}

// RegisterRoutes registers all review routes
func (h *ReviewHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/reviews", func(r chi.Router) {
		// Public routes
		r.Get("/{productId}", h.ListProductReviews)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/", h.CreateReview)
			r.Put("/{id}", h.UpdateReview)
			r.Delete("/{id}", h.DeleteReview)
		})
	})
}

// ListProductReviews handles listing a product's reviews, newest first
func (h *ReviewHandler) ListProductReviews(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathUUID(w, r, "productId", "invalid product ID")
	if !ok {
		return
	}

	reviews, err := h.reviewService.ListProductReviews(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	if reviews == nil {
		reviews = []*domain.Review{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, ReviewListResponse{
		Success: true,
		Count:   len(reviews),
		Reviews: reviews,
	})
}

// CreateReview handles posting a review
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req CreateReviewRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Create review validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	review, err := h.reviewService.CreateReview(r.Context(), actor, uuid.MustParse(req.ProductID), req.Rating, req.Comment)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Review created",
		zap.String("review_id", review.ID.String()),
		zap.String("product_id", review.ProductID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, ReviewResponse{Success: true, Review: review})
}

// UpdateReview handles editing a review; only its author may do so
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	reviewID, ok := pathUUID(w, r, "id", "invalid review ID")
	if !ok {
		return
	}

	var req UpdateReviewRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Update review validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	review, err := h.reviewService.UpdateReview(r.Context(), actor, reviewID, req.Rating, req.Comment)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ReviewResponse{Success: true, Review: review})
}

// DeleteReview handles removing a review; its author or an admin may do so
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	reviewID, ok := pathUUID(w, r, "id", "invalid review ID")
	if !ok {
		return
	}

	if err := h.reviewService.DeleteReview(r.Context(), actor, reviewID); err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("Review deleted",
		zap.String("review_id", reviewID.String()),
		zap.String("actor_id", actor.UserID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Review deleted"})
}

func (h *ReviewHandler) actor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Error("User ID not found in context")
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
	}
	return actor, ok
}
