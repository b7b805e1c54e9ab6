package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ono-cafeteria/api/internal/database"
	"github.com/ono-cafeteria/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service.
var (
	ErrRequiredTimeMissing = errors.New("required time is required")
	ErrInvalidRequiredTime = errors.New("invalid required time")
	ErrEmptyItems          = errors.New("at least one menu item is required")
	ErrInvalidFulfillment  = errors.New("invalid pickup_or_delivery")
	ErrRoomRequired        = errors.New("delivery room is required for delivery orders")
	ErrRoomForbidden       = errors.New("delivery room must be empty for pickup orders")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidTransition   = errors.New("status not allowed for this fulfillment kind")
	ErrPermissionDenied    = errors.New("only an admin can modify an order past new")
	ErrStatusConflict      = errors.New("order status changed, please retry")
)

// ItemID is a menu item identifier. Legacy clients send it as a JSON number
// or a numeric string interchangeably, so it is normalized to its string form
// and every comparison goes through that form.
type ItemID string

func (id *ItemID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ItemID(n.String())
	return nil
}

func (id ItemID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ItemID) String() string { return string(id) }

// ItemSnapshot is a menu item's id/name/price captured into an order at
// submission time. It never tracks later catalog changes.
type ItemSnapshot struct {
	ID    ItemID          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// CatalogItem is the view of a menu item the price calculator works against.
type CatalogItem struct {
	ID    ItemID
	Name  string
	Price decimal.Decimal
}

// Order is the decoded form of a stored order document.
type Order struct {
	ID               uuid.UUID
	StudentID        uuid.UUID
	OrderTimestamp   time.Time
	RequiredTime     time.Time
	FinalPrice       decimal.Decimal
	MenuItems        []ItemSnapshot
	PickupOrDelivery string
	DeliveryRoom     string
	Notes            string
	Status           string
}

// FromRow decodes a database order row, including its JSON item snapshot.
func FromRow(row database.Order) (Order, error) {
	var items []ItemSnapshot
	if len(row.MenuItems) > 0 {
		if err := json.Unmarshal(row.MenuItems, &items); err != nil {
			return Order{}, fmt.Errorf("decode menu items: %w", err)
		}
	}
	return Order{
		ID:               row.ID,
		StudentID:        row.StudentID,
		OrderTimestamp:   row.OrderTimestamp,
		RequiredTime:     row.RequiredTime,
		FinalPrice:       numericToDecimal(row.FinalPrice),
		MenuItems:        items,
		PickupOrDelivery: row.PickupOrDelivery,
		DeliveryRoom:     row.DeliveryRoom,
		Notes:            row.Notes,
		Status:           row.Status,
	}, nil
}

// ── Status workflow ──

func IsValidStatus(s string) bool {
	for _, canonical := range enum.OrderStatuses {
		if s == canonical {
			return true
		}
	}
	return false
}

// disallowedByKind maps a fulfillment kind to the one status it must never
// take: a pickup order is never "in delivery" and a delivery order is never
// "waiting for pickup". Any other status, in any direction, is allowed.
var disallowedByKind = map[string]string{
	enum.FulfillmentPickup:   enum.OrderStatusInDelivery,
	enum.FulfillmentDelivery: enum.OrderStatusWaitingForPickup,
}

// ValidateTransition checks that the requested status fits the order's
// fulfillment kind. There is no forward-only requirement.
func ValidateTransition(fulfillment, newStatus string) error {
	if disallowedByKind[fulfillment] == newStatus {
		return fmt.Errorf("%w: a %s order cannot be %q", ErrInvalidTransition, fulfillment, newStatus)
	}
	return nil
}

// RequestTransition applies the role-gated status change rules: a non-admin
// may only touch an order that is still new, and the requested status must be
// legal for the order's fulfillment kind. On success the returned order is
// the input with only status replaced.
func RequestTransition(o Order, actorRole, newStatus string) (Order, error) {
	if !IsValidStatus(newStatus) {
		return Order{}, ErrInvalidStatus
	}
	if actorRole != enum.UserRoleAdmin && o.Status != enum.OrderStatusNew {
		return Order{}, ErrPermissionDenied
	}
	if err := ValidateTransition(o.PickupOrDelivery, newStatus); err != nil {
		return Order{}, err
	}
	o.Status = newStatus
	return o, nil
}

// ── Edit classification ──

// ChangeKind classifies a proposed order edit.
type ChangeKind string

const (
	// ChangeStatusOnly means only the status field differs; the write skips
	// re-confirmation and must preserve every other field verbatim.
	ChangeStatusOnly ChangeKind = "status_only"
	// ChangeFullUpdate means at least one non-status field differs and the
	// edit goes through full re-validation.
	ChangeFullUpdate ChangeKind = "full_update"
)

// Classify compares a proposed order against the stored one field by field.
// Item lists compare as sets of identifiers, times as instants, prices
// numerically, and free text as trimmed strings. A combined status+content
// change is always a full update, never split.
func Classify(prev, proposed Order) ChangeKind {
	if prev.Status == proposed.Status {
		return ChangeFullUpdate
	}
	if !sameItemSet(prev.MenuItems, proposed.MenuItems) {
		return ChangeFullUpdate
	}
	if !prev.RequiredTime.Equal(proposed.RequiredTime) {
		return ChangeFullUpdate
	}
	if !prev.FinalPrice.Equal(proposed.FinalPrice) {
		return ChangeFullUpdate
	}
	if prev.PickupOrDelivery != proposed.PickupOrDelivery {
		return ChangeFullUpdate
	}
	if !sameText(prev.DeliveryRoom, proposed.DeliveryRoom) {
		return ChangeFullUpdate
	}
	if !sameText(prev.Notes, proposed.Notes) {
		return ChangeFullUpdate
	}
	return ChangeStatusOnly
}

func sameItemSet(a, b []ItemSnapshot) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, item := range a {
		seen[item.ID.String()]++
	}
	for _, item := range b {
		key := item.ID.String()
		if seen[key] == 0 {
			return false
		}
		seen[key]--
	}
	return true
}

// sameText treats absent and empty as equal.
func sameText(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

// ── Price calculation ──

// ComputeFinalPrice sums catalog prices for the selected identifiers.
// Identifiers match under string normalization; selections with no catalog
// match contribute zero and are skipped silently, because the catalog may
// have changed while the form was open.
func ComputeFinalPrice(ids []ItemID, catalog []CatalogItem) decimal.Decimal {
	total := decimal.Zero
	for _, id := range ids {
		if item, ok := lookupCatalog(catalog, id); ok {
			total = total.Add(item.Price)
		}
	}
	return total
}

// SnapshotItems captures the selected items' id/name/price from the catalog.
// Unmatched identifiers are dropped, mirroring ComputeFinalPrice.
func SnapshotItems(ids []ItemID, catalog []CatalogItem) []ItemSnapshot {
	snapshots := make([]ItemSnapshot, 0, len(ids))
	for _, id := range ids {
		if item, ok := lookupCatalog(catalog, id); ok {
			snapshots = append(snapshots, ItemSnapshot{ID: item.ID, Name: item.Name, Price: item.Price})
		}
	}
	return snapshots
}

// itemRefs lifts submitted identifiers into bare snapshots for set
// comparison; names and prices play no part in classification.
func itemRefs(ids []ItemID) []ItemSnapshot {
	refs := make([]ItemSnapshot, len(ids))
	for i, id := range ids {
		refs[i] = ItemSnapshot{ID: id}
	}
	return refs
}

func lookupCatalog(catalog []CatalogItem, id ItemID) (CatalogItem, bool) {
	for _, item := range catalog {
		if item.ID.String() == id.String() {
			return item, true
		}
	}
	return CatalogItem{}, false
}

// ── Order service ──

// OrderStore defines the DB methods needed by the order service.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	UpdateOrder(ctx context.Context, arg database.UpdateOrderParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	ListAvailableMenuItems(ctx context.Context) ([]database.MenuItem, error)
}

// OrderService owns order submission, editing, and status changes.
type OrderService struct {
	store OrderStore
}

func NewOrderService(store OrderStore) *OrderService {
	return &OrderService{store: store}
}

// CreateOrderRequest is the validated input for submitting a new order.
type CreateOrderRequest struct {
	StudentID        uuid.UUID
	ItemIDs          []ItemID
	RequiredTime     string // RFC 3339
	PickupOrDelivery string
	DeliveryRoom     string
	Notes            string
}

// Create validates the form, snapshots the selected items' current prices,
// and stores the order in status new with a server-assigned timestamp.
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (database.Order, error) {
	requiredTime, err := validateOrderForm(req.RequiredTime, req.ItemIDs, req.PickupOrDelivery, req.DeliveryRoom)
	if err != nil {
		return database.Order{}, err
	}

	catalog, err := s.catalog(ctx)
	if err != nil {
		return database.Order{}, err
	}

	snapshots := SnapshotItems(req.ItemIDs, catalog)
	finalPrice := ComputeFinalPrice(req.ItemIDs, catalog)

	itemsJSON, err := json.Marshal(snapshots)
	if err != nil {
		return database.Order{}, fmt.Errorf("encode menu items: %w", err)
	}

	return s.store.CreateOrder(ctx, database.CreateOrderParams{
		StudentID:        req.StudentID,
		RequiredTime:     pgtype.Timestamptz{Time: requiredTime, Valid: true},
		FinalPrice:       decimalToNumeric(finalPrice),
		MenuItems:        itemsJSON,
		PickupOrDelivery: req.PickupOrDelivery,
		DeliveryRoom:     strings.TrimSpace(req.DeliveryRoom),
		Notes:            req.Notes,
		Status:           enum.OrderStatusNew,
	})
}

// UpdateOrderRequest is the validated input for editing an existing order.
type UpdateOrderRequest struct {
	OrderID          uuid.UUID
	StudentID        uuid.UUID
	ActorRole        string
	ItemIDs          []ItemID
	RequiredTime     string // RFC 3339
	PickupOrDelivery string
	DeliveryRoom     string
	Notes            string
	Status           string
}

// Update classifies the submitted edit against the stored order. A
// status-only change rewrites the previous payload verbatim with just status
// replaced; anything else is a full overwrite with a freshly computed price
// snapshot. The creation timestamp is never touched either way.
func (s *OrderService) Update(ctx context.Context, req UpdateOrderRequest) (database.Order, ChangeKind, error) {
	prevRow, err := s.store.GetOrder(ctx, database.GetOrderParams{ID: req.OrderID, StudentID: req.StudentID})
	if err != nil {
		return database.Order{}, "", err
	}
	prev, err := FromRow(prevRow)
	if err != nil {
		return database.Order{}, "", err
	}

	// Read-only enforcement: once an admin has advanced the status past new,
	// students can no longer edit the order at all.
	if req.ActorRole != enum.UserRoleAdmin && prev.Status != enum.OrderStatusNew {
		return database.Order{}, "", ErrPermissionDenied
	}

	if !IsValidStatus(req.Status) {
		return database.Order{}, "", ErrInvalidStatus
	}

	requiredTime, err := validateOrderForm(req.RequiredTime, req.ItemIDs, req.PickupOrDelivery, req.DeliveryRoom)
	if err != nil {
		return database.Order{}, "", err
	}
	if err := ValidateTransition(req.PickupOrDelivery, req.Status); err != nil {
		return database.Order{}, "", err
	}

	proposed := Order{
		RequiredTime: requiredTime,
		// Price and snapshots are derived server-side, so classification
		// compares the submitted identifiers against the stored snapshot as
		// sets; catalog drift (a price change, an item turned unavailable)
		// alone must not turn a status-only edit into a full rewrite.
		FinalPrice:       prev.FinalPrice,
		MenuItems:        itemRefs(req.ItemIDs),
		PickupOrDelivery: req.PickupOrDelivery,
		DeliveryRoom:     strings.TrimSpace(req.DeliveryRoom),
		Notes:            req.Notes,
		Status:           req.Status,
	}

	if Classify(prev, proposed) == ChangeStatusOnly {
		// Reuse the stored row's fields so the write is byte-identical to the
		// previous payload apart from status; the price is not recomputed.
		updated, err := s.store.UpdateOrder(ctx, database.UpdateOrderParams{
			ID:               prevRow.ID,
			StudentID:        prevRow.StudentID,
			RequiredTime:     pgtype.Timestamptz{Time: prevRow.RequiredTime, Valid: true},
			FinalPrice:       prevRow.FinalPrice,
			MenuItems:        prevRow.MenuItems,
			PickupOrDelivery: prevRow.PickupOrDelivery,
			DeliveryRoom:     prevRow.DeliveryRoom,
			Notes:            prevRow.Notes,
			Status:           req.Status,
		})
		return updated, ChangeStatusOnly, err
	}

	catalog, err := s.catalog(ctx)
	if err != nil {
		return database.Order{}, "", err
	}

	snapshots := SnapshotItems(req.ItemIDs, catalog)
	finalPrice := ComputeFinalPrice(req.ItemIDs, catalog)

	itemsJSON, err := json.Marshal(snapshots)
	if err != nil {
		return database.Order{}, "", fmt.Errorf("encode menu items: %w", err)
	}

	updated, err := s.store.UpdateOrder(ctx, database.UpdateOrderParams{
		ID:               prevRow.ID,
		StudentID:        prevRow.StudentID,
		RequiredTime:     pgtype.Timestamptz{Time: requiredTime, Valid: true},
		FinalPrice:       decimalToNumeric(finalPrice),
		MenuItems:        itemsJSON,
		PickupOrDelivery: req.PickupOrDelivery,
		DeliveryRoom:     strings.TrimSpace(req.DeliveryRoom),
		Notes:            req.Notes,
		Status:           req.Status,
	})
	return updated, ChangeFullUpdate, err
}

// ChangeStatusRequest is the input for the one-click status change.
type ChangeStatusRequest struct {
	OrderID   uuid.UUID
	StudentID uuid.UUID
	ActorRole string
	NewStatus string
}

// ChangeStatus runs the workflow engine against the stored order and writes
// only the status column, guarded by the previously read status.
func (s *OrderService) ChangeStatus(ctx context.Context, req ChangeStatusRequest) (database.Order, error) {
	prevRow, err := s.store.GetOrder(ctx, database.GetOrderParams{ID: req.OrderID, StudentID: req.StudentID})
	if err != nil {
		return database.Order{}, err
	}
	prev, err := FromRow(prevRow)
	if err != nil {
		return database.Order{}, err
	}

	if _, err := RequestTransition(prev, req.ActorRole, req.NewStatus); err != nil {
		return database.Order{}, err
	}

	updated, err := s.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:             prevRow.ID,
		StudentID:      prevRow.StudentID,
		Status:         req.NewStatus,
		ExpectedStatus: prevRow.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrStatusConflict
		}
		return database.Order{}, err
	}
	return updated, nil
}

func (s *OrderService) catalog(ctx context.Context) ([]CatalogItem, error) {
	rows, err := s.store.ListAvailableMenuItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	catalog := make([]CatalogItem, len(rows))
	for i, row := range rows {
		catalog[i] = CatalogItem{
			ID:    ItemID(strconv.FormatInt(row.ID, 10)),
			Name:  row.Item,
			Price: numericToDecimal(row.Price),
		}
	}
	return catalog, nil
}

func validateOrderForm(requiredTime string, ids []ItemID, fulfillment, room string) (time.Time, error) {
	if requiredTime == "" {
		return time.Time{}, ErrRequiredTimeMissing
	}
	t, err := time.Parse(time.RFC3339, requiredTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidRequiredTime, err)
	}
	if len(ids) == 0 {
		return time.Time{}, ErrEmptyItems
	}
	switch fulfillment {
	case enum.FulfillmentPickup:
		if strings.TrimSpace(room) != "" {
			return time.Time{}, ErrRoomForbidden
		}
	case enum.FulfillmentDelivery:
		if strings.TrimSpace(room) == "" {
			return time.Time{}, ErrRoomRequired
		}
	default:
		return time.Time{}, ErrInvalidFulfillment
	}
	return t, nil
}

// ── Helpers ──

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
