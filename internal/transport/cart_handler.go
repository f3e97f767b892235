package transport

import (
	"net/http"
	"time"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// cartProfileCookie identifies the browser profile whose cart this is.
// Each profile gets its own store and storage slot.
const cartProfileCookie = "cart_profile"

// AddItemRequest represents the add-to-cart payload. A zero quantity
// means "one", mirroring the omitted-quantity default.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
}

// UpdateItemRequest represents the change-quantity payload. Zero or
// negative quantities remove the line.
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// CartResponse represents the cart contents with the derived total
type CartResponse struct {
	Items []domain.CartLine `json:"items"`
	Total float64           `json:"total"`
}

// CartHandler handles HTTP requests for the cart
type CartHandler struct {
	carts       *cart.Manager
	productRepo repository.ProductRepository
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts *cart.Manager, productRepo repository.ProductRepository, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		carts:       carts,
		productRepo: productRepo,
		logger:      logger,
	}
}

// RegisterRoutes registers all cart routes. The cart is tied to the
// browser profile cookie, not to a logged-in account, so everything here
// is public.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Clear)
		r.Post("/items", h.AddItem)
		r.Put("/items/{productID}", h.UpdateItem)
		r.Delete("/items/{productID}", h.RemoveItem)
	})
}

// store resolves the cart store for the request's profile, minting the
// profile cookie on first contact.
func (h *CartHandler) store(w http.ResponseWriter, r *http.Request) *cart.Store {
	profileID := ""
	if cookie, err := r.Cookie(cartProfileCookie); err == nil && cookie.Value != "" {
		profileID = cookie.Value
	}

	if profileID == "" {
		profileID = uuid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     cartProfileCookie,
			Value:    profileID,
			Path:     "/",
			Expires:  time.Now().Add(365 * 24 * time.Hour),
			SameSite: http.SameSiteLaxMode,
		})
	}

	return h.carts.Store(r.Context(), profileID)
}

func cartResponse(store *cart.Store) CartResponse {
	lines := store.Lines()
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return CartResponse{
		Items: lines,
		Total: store.Total(),
	}
}

// Get returns the current cart contents and total
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	store := h.store(w, r)
	middleware.RespondWithJSON(w, http.StatusOK, cartResponse(store))
}

// AddItem puts a catalog product into the cart
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Add to cart validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	product, err := h.productRepo.FindByID(r.Context(), productID)
	if err != nil {
		if err == repository.ErrProductNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to load product for cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to add to cart")
		return
	}

	store := h.store(w, r)
	store.Add(product, req.Quantity)

	middleware.RespondWithJSON(w, http.StatusOK, cartResponse(store))
}

// UpdateItem replaces the quantity on a cart line. A quantity of zero or
// less removes the line.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req UpdateItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	store := h.store(w, r)
	store.UpdateQuantity(productID, req.Quantity)

	middleware.RespondWithJSON(w, http.StatusOK, cartResponse(store))
}

// RemoveItem deletes a cart line. Removing an absent product still
// returns the (unchanged) cart.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	store := h.store(w, r)
	store.Remove(productID)

	middleware.RespondWithJSON(w, http.StatusOK, cartResponse(store))
}

// Clear empties the cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	store := h.store(w, r)
	store.Clear()

	middleware.RespondWithJSON(w, http.StatusOK, cartResponse(store))
}
