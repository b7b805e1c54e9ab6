package service

import (
	"math"
	"strings"

	"github.com/ono-cafeteria/api/internal/enum"
)

// NormalizeStatus maps a stored status string onto the canonical set,
// ignoring case and spacing ("InMaking" → "in making"). Anything that still
// does not match, including the empty string, buckets as new. Legacy data
// wrote statuses inconsistently, so grouping and counting always normalize
// first.
func NormalizeStatus(s string) string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "")
	for _, canonical := range enum.OrderStatuses {
		if key == strings.ReplaceAll(canonical, " ", "") {
			return canonical
		}
	}
	return enum.OrderStatusNew
}

// GroupByStatus buckets orders by normalized status. Every canonical status
// is present in the result even when its list is empty, so status sections
// render consistently instead of disappearing.
func GroupByStatus(orders []Order) map[string][]Order {
	grouped := make(map[string][]Order, len(enum.OrderStatuses))
	for _, status := range enum.OrderStatuses {
		grouped[status] = []Order{}
	}
	for _, o := range orders {
		status := NormalizeStatus(o.Status)
		grouped[status] = append(grouped[status], o)
	}
	return grouped
}

// CountByStatus returns the per-status counts and their sum. The total always
// equals the number of input orders.
func CountByStatus(orders []Order) (map[string]int, int) {
	counts := make(map[string]int, len(enum.OrderStatuses))
	for _, status := range enum.OrderStatuses {
		counts[status] = 0
	}
	for _, o := range orders {
		counts[NormalizeStatus(o.Status)]++
	}
	return counts, len(orders)
}

// PercentOfTotal is the progress-bar value for a status count. Zero total
// yields zero, never a division by zero.
func PercentOfTotal(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}
