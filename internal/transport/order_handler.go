package transport

import (
	"errors"
	"net/http"

	"marketplace/internal/domain"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateOrderRequest represents the checkout payload
type CreateOrderRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required"`
}

// UpdateOrderStatusRequest represents the status update payload
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderHandler handles HTTP requests for order operations
type OrderHandler struct {
	orderService service.OrderService
	userService  service.UserService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, userService service.UserService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		userService:  userService,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes; every route requires auth
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/create", h.Create)
		r.Get("/buyer", h.ListBuyerOrders)
		r.Get("/seller", h.ListSellerOrders)
		r.Get("/{id}", h.Get)
		r.Put("/{id}/status", h.UpdateStatus)
	})
}

// Create handles checkout: converting the buyer's cart into an order
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := requesterID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orderService.CreateOrder(r.Context(), buyerID, req.ShippingAddress)
	if err != nil {
		var stockErr *service.InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			middleware.RespondWithError(w, http.StatusBadRequest, stockErr.Error())
		case errors.Is(err, service.ErrCartEmpty):
			middleware.RespondWithError(w, http.StatusBadRequest, "cart is empty")
		case errors.Is(err, repository.ErrCartNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "cart not found")
		case errors.Is(err, repository.ErrProductNotFound):
			middleware.RespondWithError(w, http.StatusBadRequest, "a product in the cart is no longer available")
		default:
			h.logger.Error("Checkout failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create order")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// ListBuyerOrders handles listing the authenticated buyer's orders
func (h *OrderHandler) ListBuyerOrders(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := requesterID(w, r, h.logger)
	if !ok {
		return
	}

	orders, err := h.orderService.ListBuyerOrders(r.Context(), buyerID)
	if err != nil {
		h.logger.Error("Failed to list buyer orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// ListSellerOrders handles listing orders containing the seller's products
func (h *OrderHandler) ListSellerOrders(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}

	if !requester.IsSeller() {
		middleware.RespondWithError(w, http.StatusForbidden, "only sellers can access this endpoint")
		return
	}

	orders, err := h.orderService.ListSellerOrders(r.Context(), requester.ID)
	if err != nil {
		h.logger.Error("Failed to list seller orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// Get handles the order detail view, scoped to the requester
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}

	orderID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), orderID, requester)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrPermissionDenied):
			middleware.RespondWithError(w, http.StatusForbidden, "permission denied")
		default:
			h.logger.Error("Failed to get order", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get order")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// UpdateStatus handles order status changes by sellers
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	requester, ok := h.requester(w, r)
	if !ok {
		return
	}

	orderID, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), orderID, requester, domain.OrderStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid status")
		case errors.Is(err, service.ErrPermissionDenied):
			middleware.RespondWithError(w, http.StatusForbidden, "permission denied")
		case errors.Is(err, repository.ErrOrderNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		default:
			h.logger.Error("Failed to update order status", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update order status")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// requester loads the authenticated user; order scoping needs the role and
// identity together.
func (h *OrderHandler) requester(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	userID, ok := requesterID(w, r, h.logger)
	if !ok {
		return nil, false
	}

	user, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to load requester", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load user")
		return nil, false
	}

	return user, true
}
