package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ono-cafeteria/api/internal/database"
	"github.com/ono-cafeteria/api/internal/enum"
	"github.com/ono-cafeteria/api/internal/service"
)

// DashboardStore defines the database methods needed by dashboard handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type DashboardStore interface {
	CountStudents(ctx context.Context) (int64, error)
	CountMenuItems(ctx context.Context) (int64, error)
	CountOrdersByStatus(ctx context.Context) ([]database.CountOrdersByStatusRow, error)
	ListStudents(ctx context.Context) ([]database.Student, error)
	ListOrdersByStudent(ctx context.Context, studentID uuid.UUID) ([]database.Order, error)
}

// DashboardHandler serves the admin overview stats.
type DashboardHandler struct {
	store DashboardStore
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(store DashboardStore) *DashboardHandler {
	return &DashboardHandler{store: store}
}

// RegisterRoutes registers dashboard endpoints, admin-only.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.Stats)
}

// --- Response types ---

type statusCountResponse struct {
	Status  string `json:"status"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

type dashboardStatsResponse struct {
	Students    int64                 `json:"students"`
	MenuItems   int64                 `json:"menuItems"`
	TotalOrders int                   `json:"totalOrders"`
	ByStatus    []statusCountResponse `json:"byStatus"`
}

// --- Handlers ---

// Stats handles GET /dashboard/stats. Order counts come from a SQL aggregate;
// when that fails the counts are rebuilt by scanning every student's orders,
// so a partially degraded store still yields a dashboard.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	students, err := h.store.CountStudents(r.Context())
	if err != nil {
		log.Printf("ERROR: count students: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	menuItems, err := h.store.CountMenuItems(r.Context())
	if err != nil {
		log.Printf("ERROR: count menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	counts, total, err := h.orderCounts(r.Context())
	if err != nil {
		log.Printf("ERROR: count orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	byStatus := make([]statusCountResponse, len(enum.OrderStatuses))
	for i, status := range enum.OrderStatuses {
		byStatus[i] = statusCountResponse{
			Status:  status,
			Count:   counts[status],
			Percent: service.PercentOfTotal(counts[status], total),
		}
	}

	writeJSON(w, http.StatusOK, dashboardStatsResponse{
		Students:    students,
		MenuItems:   menuItems,
		TotalOrders: total,
		ByStatus:    byStatus,
	})
}

// orderCounts prefers the aggregate query and falls back to a full scan.
func (h *DashboardHandler) orderCounts(ctx context.Context) (map[string]int, int, error) {
	rows, err := h.store.CountOrdersByStatus(ctx)
	if err == nil {
		counts := make(map[string]int, len(enum.OrderStatuses))
		total := 0
		for _, row := range rows {
			status := service.NormalizeStatus(row.Status)
			counts[status] += int(row.Count)
			total += int(row.Count)
		}
		return counts, total, nil
	}

	log.Printf("WARN: count orders by status failed, scanning orders: %v", err)
	return h.scanOrderCounts(ctx)
}

func (h *DashboardHandler) scanOrderCounts(ctx context.Context) (map[string]int, int, error) {
	students, err := h.store.ListStudents(ctx)
	if err != nil {
		return nil, 0, err
	}

	var all []service.Order
	for _, s := range students {
		orders, err := h.store.ListOrdersByStudent(ctx, s.ID)
		if err != nil {
			return nil, 0, err
		}
		for _, o := range orders {
			all = append(all, service.Order{Status: o.Status})
		}
	}

	counts, total := service.CountByStatus(all)
	return counts, total, nil
}
