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

// AddItemRequest represents the add-to-cart payload
type AddItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=10000"`
}

// UpdateItemRequest represents the quantity change payload
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1,lte=10000"`
}

// CartResponse wraps the materialized cart
type CartResponse struct {
	Success bool             `json:"success"`
	Cart    *domain.CartView `json:"cart"`
}

// CartHandler handles HTTP requests for the caller's cart
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers all cart routes. Every cart route is private.
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetCart)
		r.Post("/", h.AddItem)
		r.Delete("/", h.ClearCart)
		r.Put("/{itemId}", h.UpdateItem)
		r.Delete("/{itemId}", h.RemoveItem)
	})
}

// GetCart handles reading the cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	view, err := h.cartService.GetCart(r.Context(), userID)
	h.respond(w, r, view, err)
}

// AddItem handles adding a product to the cart
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Add item validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	// Already validated as a UUID
	productID := uuid.MustParse(req.ProductID)

	view, err := h.cartService.AddItem(r.Context(), userID, productID, req.Quantity)
	h.respond(w, r, view, err)
}

// UpdateItem handles setting the quantity of a cart line
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	itemID, ok := pathUUID(w, r, "itemId", "invalid item ID")
	if !ok {
		return
	}

	var req UpdateItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Update item validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	view, err := h.cartService.UpdateItemQuantity(r.Context(), userID, itemID, req.Quantity)
	h.respond(w, r, view, err)
}

// RemoveItem handles removing a cart line
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	itemID, ok := pathUUID(w, r, "itemId", "invalid item ID")
	if !ok {
		return
	}

	view, err := h.cartService.RemoveItem(r.Context(), userID, itemID)
	h.respond(w, r, view, err)
}

// ClearCart handles emptying the cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	view, err := h.cartService.ClearCart(r.Context(), userID)
	h.respond(w, r, view, err)
}

func (h *CartHandler) caller(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Error("User ID not found in context")
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}
	return actor.UserID, true
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, view *domain.CartView, err error) {
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, CartResponse{Success: true, Cart: view})
}

// pathUUID parses a UUID URL parameter, answering 400 when it is malformed
func pathUUID(w http.ResponseWriter, r *http.Request, param, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, message)
		return uuid.Nil, false
	}
	return id, true
}
