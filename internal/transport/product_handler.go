package transport

import (
	"net/http"
	"strconv"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxFeaturedLimit = 50

// ProductRequest represents the admin create/update payload.
// Rating fields are not accepted; they are derived from reviews.
type ProductRequest struct {
	Name          string              `json:"name" validate:"required,max=200"`
	Description   string              `json:"description" validate:"required"`
	Price         decimal.Decimal     `json:"price" validate:"gte=0"`
	OriginalPrice decimal.NullDecimal `json:"originalPrice" validate:"omitempty,gte=0"`
	Category      string              `json:"category" validate:"required"`
	Brand         string              `json:"brand" validate:"required"`
	Stock         int                 `json:"stock" validate:"gte=0"`
	Images        []string            `json:"images" validate:"omitempty,dive,required"`
	IsFeatured    bool                `json:"isFeatured"`
}

func (req ProductRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Category:      domain.Category(req.Category),
		Brand:         req.Brand,
		Stock:         req.Stock,
		Images:        req.Images,
		IsFeatured:    req.IsFeatured,
	}
}

// ProductResponse wraps a single product
type ProductResponse struct {
	Success bool            `json:"success"`
	Product *domain.Product `json:"product"`
}

// ProductListResponse wraps a list of products
type ProductListResponse struct {
	Success  bool              `json:"success"`
	Products []*domain.Product `json:"products"`
}

// ProductHandler handles HTTP requests for the catalogue
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes. Writes require an admin.
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		// Public routes
		r.Get("/featured", h.ListFeatured)
		r.Get("/{id}", h.GetProduct)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireAdmin(h.logger))
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})
	})
}

// GetProduct handles reading one product
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid product ID")
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductResponse{Success: true, Product: product})
}

// ListFeatured handles listing featured products. The optional limit query
// parameter is capped.
func (h *ProductHandler) ListFeatured(w http.ResponseWriter, r *http.Request) {
	limit := service.DefaultFeaturedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			middleware.RespondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxFeaturedLimit)
	}

	products, err := h.productService.ListFeatured(r.Context(), limit)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductListResponse{Success: true, Products: products})
}

// CreateProduct handles adding a product to the catalogue
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Create product validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	product, err := h.productService.CreateProduct(r.Context(), req.input())
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, ProductResponse{Success: true, Product: product})
}

// UpdateProduct handles replacing a product's client-settable fields
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid product ID")
	if !ok {
		return
	}

	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Update product validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, err)
		return
	}

	product, err := h.productService.UpdateProduct(r.Context(), id, req.input())
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductResponse{Success: true, Product: product})
}

// DeleteProduct handles removing a product from the catalogue
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "invalid product ID")
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(r.Context(), id); err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Product removed"})
}
