package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ono-cafeteria/api/internal/database"
	"github.com/ono-cafeteria/api/internal/middleware"
	"github.com/ono-cafeteria/api/internal/service"
	"github.com/ono-cafeteria/api/internal/ws"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	Create(ctx context.Context, req service.CreateOrderRequest) (database.Order, error)
	Update(ctx context.Context, req service.UpdateOrderRequest) (database.Order, service.ChangeKind, error)
	ChangeStatus(ctx context.Context, req service.ChangeStatusRequest) (database.Order, error)
}

// OrderReadStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderReadStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrdersByStudent(ctx context.Context, studentID uuid.UUID) ([]database.Order, error)
	ListStudents(ctx context.Context) ([]database.Student, error)
}

// OrderBroadcaster pushes order events to connected feeds.
// Satisfied by *ws.Hub; nil disables broadcasting.
type OrderBroadcaster interface {
	BroadcastOrderEvent(studentID uuid.UUID, event ws.Event)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderReadStore
	hub   OrderBroadcaster
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderReadStore, hub OrderBroadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a student-scoped subrouter: /students/{sid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Patch("/status", h.UpdateStatus)
	})
}

// RegisterAdminRoutes registers the all-students order board, admin-only.
// Mounted at /orders.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.ListAll)
}

// --- Request / Response types ---

// orderFormRequest mirrors the order form. MenuItems carries catalog IDs as
// numbers or numeric strings; Status is only read by Update.
type orderFormRequest struct {
	MenuItems        []service.ItemID `json:"menuItems"`
	RequiredTime     string           `json:"requiredTime"`
	PickupOrDelivery string           `json:"pickupOrDelivery"`
	DeliveryRoom     string           `json:"deliveryRoom"`
	Notes            string           `json:"notes"`
	Status           string           `json:"status"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID               uuid.UUID       `json:"id"`
	OrderTimestamp   time.Time       `json:"ordertimestamp"`
	RequiredTime     time.Time       `json:"requiredTime"`
	FinalPrice       string          `json:"finalPrice"`
	MenuItems        json.RawMessage `json:"menuItems"`
	PickupOrDelivery string          `json:"pickupOrDelivery"`
	DeliveryRoom     string          `json:"deliveryRoom"`
	Notes            string          `json:"notes"`
	Status           string          `json:"status"`
}

// adminOrderResponse annotates an order with its owner for the admin board.
type adminOrderResponse struct {
	orderResponse
	StudentID   uuid.UUID `json:"studentId"`
	StudentName string    `json:"studentName"`
}

func dbOrderToResponse(o database.Order) orderResponse {
	items := json.RawMessage(o.MenuItems)
	if len(items) == 0 {
		items = json.RawMessage("[]")
	}
	return orderResponse{
		ID:               o.ID,
		OrderTimestamp:   o.OrderTimestamp,
		RequiredTime:     o.RequiredTime,
		FinalPrice:       numericToString(o.FinalPrice),
		MenuItems:        items,
		PickupOrDelivery: o.PickupOrDelivery,
		DeliveryRoom:     o.DeliveryRoom,
		Notes:            o.Notes,
		Status:           o.Status,
	}
}

// --- Handlers ---

// Create handles POST /students/{sid}/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid student ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req orderFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.Create(r.Context(), service.CreateOrderRequest{
		StudentID:        studentID,
		ItemIDs:          req.MenuItems,
		RequiredTime:     req.RequiredTime,
		PickupOrDelivery: req.PickupOrDelivery,
		DeliveryRoom:     req.DeliveryRoom,
		Notes:            req.Notes,
	})
	if err != nil {
		if isOrderValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcast(ws.EventOrderCreated, order)
	writeJSON(w, http.StatusCreated, dbOrderToResponse(order))
}

// List handles GET /students/{sid}/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid student ID"})
		return
	}

	orders, err := h.store.ListOrdersByStudent(r.Context(), studentID)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /students/{sid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid student ID"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{
		ID:        orderID,
		StudentID: studentID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// Update handles PUT /students/{sid}/orders/{id}: the submitted form is
// classified against the stored order and written as either a status-only
// change or a full overwrite.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid student ID"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req orderFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, kind, err := h.svc.Update(r.Context(), service.UpdateOrderRequest{
		OrderID:          orderID,
		StudentID:        studentID,
		ActorRole:        claims.Role,
		ItemIDs:          req.MenuItems,
		RequiredTime:     req.RequiredTime,
		PickupOrDelivery: req.PickupOrDelivery,
		DeliveryRoom:     req.DeliveryRoom,
		Notes:            req.Notes,
		Status:           req.Status,
	})
	if err != nil {
		h.writeOrderError(w, "update order", err)
		return
	}

	if kind == service.ChangeStatusOnly {
		h.broadcast(ws.EventOrderStatusChanged, order)
	} else {
		h.broadcast(ws.EventOrderUpdated, order)
	}
	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// UpdateStatus handles PATCH /students/{sid}/orders/{id}/status: the one-click
// status change through the workflow engine.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid student ID"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	order, err := h.svc.ChangeStatus(r.Context(), service.ChangeStatusRequest{
		OrderID:   orderID,
		StudentID: studentID,
		ActorRole: claims.Role,
		NewStatus: req.Status,
	})
	if err != nil {
		h.writeOrderError(w, "update order status", err)
		return
	}

	h.broadcast(ws.EventOrderStatusChanged, order)
	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// ListAll handles GET /orders: the admin board across every student, grouped
// by status with all canonical buckets present.
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	students, err := h.store.ListStudents(r.Context())
	if err != nil {
		log.Printf("ERROR: list students for order board: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	type ownedOrder struct {
		row     database.Order
		student database.Student
	}
	owned := make(map[uuid.UUID]ownedOrder)
	var all []service.Order
	for _, s := range students {
		orders, err := h.store.ListOrdersByStudent(r.Context(), s.ID)
		if err != nil {
			log.Printf("ERROR: list orders for student %s: %v", s.ID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		for _, o := range orders {
			owned[o.ID] = ownedOrder{row: o, student: s}
			all = append(all, service.Order{ID: o.ID, Status: o.Status})
		}
	}

	// The reducer owns the bucketing; the handler only annotates each order
	// with its owner.
	buckets := service.GroupByStatus(all)
	grouped := make(map[string][]adminOrderResponse, len(buckets))
	for status, bucket := range buckets {
		resp := make([]adminOrderResponse, len(bucket))
		for i, o := range bucket {
			oo := owned[o.ID]
			resp[i] = adminOrderResponse{
				orderResponse: dbOrderToResponse(oo.row),
				StudentID:     oo.student.ID,
				StudentName:   oo.student.FirstName + " " + oo.student.LastName,
			}
		}
		grouped[status] = resp
	}

	writeJSON(w, http.StatusOK, grouped)
}

// --- Helpers ---

// writeOrderError maps service errors onto HTTP statuses.
func (h *OrderHandler) writeOrderError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, service.ErrPermissionDenied):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrStatusConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case isOrderValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func isOrderValidationError(err error) bool {
	return errors.Is(err, service.ErrRequiredTimeMissing) ||
		errors.Is(err, service.ErrInvalidRequiredTime) ||
		errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidFulfillment) ||
		errors.Is(err, service.ErrRoomRequired) ||
		errors.Is(err, service.ErrRoomForbidden) ||
		errors.Is(err, service.ErrInvalidStatus)
}

func (h *OrderHandler) broadcast(eventType string, order database.Order) {
	if h.hub == nil {
		return
	}
	h.hub.BroadcastOrderEvent(order.StudentID, ws.NewEvent(eventType, dbOrderToResponse(order)))
}
