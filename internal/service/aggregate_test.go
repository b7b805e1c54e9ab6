package service

import (
	"testing"

	"github.com/ono-cafeteria/api/internal/enum"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"new", "new"},
		{"in making", "in making"},
		{"In Making", "in making"},
		{"inmaking", "in making"},
		{"IN DELIVERY", "in delivery"},
		{"waitingforpickup", "waiting for pickup"},
		{" done ", "done"},
		{"", "new"},
		{"cancelled", "new"},
	}

	for _, tt := range tests {
		if got := NormalizeStatus(tt.in); got != tt.want {
			t.Errorf("NormalizeStatus(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGroupByStatusEmitsAllKeys(t *testing.T) {
	groups := GroupByStatus(nil)

	if len(groups) != len(enum.OrderStatuses) {
		t.Fatalf("groups: got %d keys, want %d", len(groups), len(enum.OrderStatuses))
	}
	for _, status := range enum.OrderStatuses {
		bucket, ok := groups[status]
		if !ok {
			t.Errorf("missing bucket %q", status)
			continue
		}
		if bucket == nil {
			t.Errorf("bucket %q is nil, want empty slice", status)
		}
		if len(bucket) != 0 {
			t.Errorf("bucket %q: got %d orders, want 0", status, len(bucket))
		}
	}
}

func TestGroupByStatusBucketsOrders(t *testing.T) {
	orders := []Order{
		{Status: enum.OrderStatusNew},
		{Status: enum.OrderStatusInMaking},
		{Status: enum.OrderStatusInMaking},
		{Status: enum.OrderStatusDone},
		{Status: "In Making"}, // legacy casing folds into the canonical bucket
		{Status: "unknown"},   // unrecognized falls back to new
	}

	groups := GroupByStatus(orders)

	if got := len(groups[enum.OrderStatusNew]); got != 2 {
		t.Errorf("new: got %d, want 2", got)
	}
	if got := len(groups[enum.OrderStatusInMaking]); got != 3 {
		t.Errorf("in making: got %d, want 3", got)
	}
	if got := len(groups[enum.OrderStatusDone]); got != 1 {
		t.Errorf("done: got %d, want 1", got)
	}
	if got := len(groups[enum.OrderStatusInDelivery]); got != 0 {
		t.Errorf("in delivery: got %d, want 0", got)
	}
}

func TestCountByStatusSumsToTotal(t *testing.T) {
	orders := []Order{
		{Status: enum.OrderStatusNew},
		{Status: enum.OrderStatusInDelivery},
		{Status: enum.OrderStatusWaitingForPickup},
		{Status: enum.OrderStatusDone},
		{Status: enum.OrderStatusDone},
	}

	counts, total := CountByStatus(orders)

	if total != len(orders) {
		t.Fatalf("total: got %d, want %d", total, len(orders))
	}
	sum := 0
	for _, status := range enum.OrderStatuses {
		sum += counts[status]
	}
	if sum != total {
		t.Errorf("per-status counts sum to %d, want %d", sum, total)
	}
}

func TestPercentOfTotal(t *testing.T) {
	tests := []struct {
		count, total, want int
	}{
		{0, 0, 0},
		{3, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{5, 5, 100},
		{0, 10, 0},
	}

	for _, tt := range tests {
		if got := PercentOfTotal(tt.count, tt.total); got != tt.want {
			t.Errorf("PercentOfTotal(%d, %d): got %d, want %d", tt.count, tt.total, got, tt.want)
		}
	}
}
