package enum

// ── Order status state machine ──
//
// Canonical order: new → in making → in delivery | waiting for pickup → done.
// "in delivery" and "waiting for pickup" are mutually exclusive by fulfillment
// kind. The values are lowercase because they are stored verbatim in order
// documents created by earlier clients.

const (
	OrderStatusNew              = "new"
	OrderStatusInMaking         = "in making"
	OrderStatusInDelivery       = "in delivery"
	OrderStatusWaitingForPickup = "waiting for pickup"
	OrderStatusDone             = "done"
)

// OrderStatuses lists the canonical statuses in display order.
var OrderStatuses = []string{
	OrderStatusNew,
	OrderStatusInMaking,
	OrderStatusInDelivery,
	OrderStatusWaitingForPickup,
	OrderStatusDone,
}

const (
	FulfillmentPickup   = "pickup"
	FulfillmentDelivery = "delivery"
)

const (
	UserRoleAdmin   = "admin"
	UserRoleStudent = "student"
)

// ── Menu item categories ──
//
// Free-text categories from legacy data group as Other.

const (
	CategoryBeverage = "Beverage"
	CategoryFood     = "Food"
	CategorySnack    = "Snack"
	CategoryOther    = "Other"
)

var Categories = []string{
	CategoryFood,
	CategorySnack,
	CategoryBeverage,
	CategoryOther,
}

func IsValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
