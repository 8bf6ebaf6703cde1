package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mejaqr/mejaqr/internal/adapter/logger"
	"github.com/mejaqr/mejaqr/internal/domain"
	"github.com/mejaqr/mejaqr/internal/interfaces"
	"github.com/shopspring/decimal"
)

// OrderHandler is the thin request surface over the lifecycle coordinator.
// All the interesting invariants live in the service; handlers only
// decode, authorize and translate errors.
type OrderHandler struct {
	service   interfaces.OrderService
	directory interfaces.TenantDirectory
	logger    logger.Logger
}

func NewOrderHandler(service interfaces.OrderService, directory interfaces.TenantDirectory, logger logger.Logger) *OrderHandler {
	return &OrderHandler{service: service, directory: directory, logger: logger}
}

type CreateOrderRequest struct {
	TableNumber int                `json:"table_number"`
	Items       []OrderItemRequest `json:"items"`
}

type OrderItemRequest struct {
	MenuName  string              `json:"menu_name"`
	MenuPrice decimal.Decimal     `json:"menu_price"`
	Quantity  int                 `json:"quantity"`
	Note      *string             `json:"note,omitempty"`
	Options   []ItemOptionRequest `json:"options,omitempty"`
}

type ItemOptionRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type TransitionRequest struct {
	Status string  `json:"status"`
	Note   *string `json:"note,omitempty"`
	Force  bool    `json:"force,omitempty"`
}

type KitchenStatusRequest struct {
	Status string `json:"status"`
	ItemID *int64 `json:"item_id,omitempty"`
}

type PaymentRequest struct {
	Status string `json:"status"`
	Method string `json:"method,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateOrder is the customer-facing submission; the QR code carries the
// tenant slug.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	slug := r.Header.Get("X-Tenant-Slug")
	if slug == "" {
		h.respondError(w, http.StatusBadRequest, "tenant slug is required")
		return
	}

	ref, err := h.directory.ResolveSlug(r.Context(), slug)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "tenant not found")
		return
	}
	if !ref.IsActive {
		h.respondError(w, http.StatusForbidden, "tenant is inactive")
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		h.respondError(w, http.StatusBadRequest, "order must contain at least 1 item")
		return
	}

	cmd := interfaces.CreateOrderCommand{TableNumber: req.TableNumber}
	for _, item := range req.Items {
		ic := interfaces.CreateOrderItemCommand{
			MenuName:  item.MenuName,
			MenuPrice: item.MenuPrice,
			Quantity:  item.Quantity,
			Note:      item.Note,
		}
		for _, opt := range item.Options {
			ic.Options = append(ic.Options, interfaces.CreateOrderOptionCommand{Name: opt.Name, Price: opt.Price})
		}
		cmd.Items = append(cmd.Items, ic)
	}

	order, err := h.service.CreateOrder(r.Context(), ref.ID, cmd)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, interfaces.Snapshot(order))
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter := interfaces.OrderFilter{}
	for _, s := range r.URL.Query()["status"] {
		filter.Statuses = append(filter.Statuses, domain.OrderStatus(s))
	}
	if d := r.URL.Query().Get("date"); d != "" {
		date, err := time.Parse("2006-01-02", d)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		filter.Date = &date
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			h.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		n, err := strconv.Atoi(o)
		if err != nil || n < 0 {
			h.respondError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}

	orders, err := h.service.ListOrders(r.Context(), p.TenantID, filter)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	snapshots := make([]interfaces.OrderSnapshot, len(orders))
	for i, o := range orders {
		snapshots[i] = interfaces.Snapshot(o)
	}
	h.respondJSON(w, http.StatusOK, snapshots)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	p, orderID, ok := h.principalAndID(w, r)
	if !ok {
		return
	}
	order, err := h.service.GetOrder(r.Context(), p.TenantID, orderID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, interfaces.Snapshot(order))
}

func (h *OrderHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	p, orderID, ok := h.principalAndID(w, r)
	if !ok {
		return
	}
	history, err := h.service.GetStatusHistory(r.Context(), p.TenantID, orderID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	resp := make([]map[string]interface{}, len(history))
	for i, log := range history {
		resp[i] = map[string]interface{}{
			"from_status": log.FromStatus,
			"to_status":   log.ToStatus,
			"changed_by":  log.ChangedBy,
			"note":        log.Note,
			"changed_at":  log.ChangedAt,
		}
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	p, orderID, ok := h.principalAndID(w, r)
	if !ok {
		return
	}
	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.TransitionStatus(r.Context(), p.TenantID, orderID,
		domain.OrderStatus(req.Status), p.Actor, req.Note, req.Force)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, interfaces.Snapshot(order))
}

func (h *OrderHandler) UpdateKitchenStatus(w http.ResponseWriter, r *http.Request) {
	p, orderID, ok := h.principalAndID(w, r)
	if !ok {
		return
	}
	var req KitchenStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.UpdateKitchenStatus(r.Context(), p.TenantID, orderID,
		req.ItemID, domain.KitchenStatus(req.Status), p.Actor)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, interfaces.Snapshot(order))
}

func (h *OrderHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	p, orderID, ok := h.principalAndID(w, r)
	if !ok {
		return
	}
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		order *domain.Order
		err   error
	)
	if domain.PaymentStatus(req.Status) == domain.PaymentPaid {
		order, err = h.service.MarkAsPaid(r.Context(), p.TenantID, orderID, p.Actor, domain.PaymentMethod(req.Method))
	} else {
		order, err = h.service.TransitionPayment(r.Context(), p.TenantID, orderID, domain.PaymentStatus(req.Status), p.Actor)
	}
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, interfaces.Snapshot(order))
}

func (h *OrderHandler) MarkInvoicePrinted(w http.ResponseWriter, r *http.Request) {
	p, orderID, ok := h.principalAndID(w, r)
	if !ok {
		return
	}
	order, err := h.service.MarkInvoicePrinted(r.Context(), p.TenantID, orderID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, interfaces.Snapshot(order))
}

func (h *OrderHandler) principalAndID(w http.ResponseWriter, r *http.Request) (Principal, int64, bool) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return Principal{}, 0, false
	}
	orderID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid order id")
		return Principal{}, 0, false
	}
	return p, orderID, true
}

// respondDomainError translates the core's taxonomy into status codes.
// Cross-tenant access renders as 404 so other tenants' data never leaks
// existence.
func (h *OrderHandler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrTenantMismatch),
		errors.Is(err, domain.ErrTenantNotFound),
		errors.Is(err, domain.ErrOrderItemNotFound):
		h.respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrConcurrentModification):
		h.respondError(w, http.StatusConflict, "order is being modified, retry")
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidStatusValue),
		errors.Is(err, domain.ErrPaymentRecordMissing):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrTenantInactive):
		h.respondError(w, http.StatusForbidden, err.Error())
	default:
		h.logger.Error("request_failed", "Unhandled error", "", nil, err)
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *OrderHandler) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (h *OrderHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, ErrorResponse{Error: message})
}
