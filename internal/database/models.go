package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// User is a login account. Student accounts reference the student record they
// belong to; admin accounts have a null StudentID.
type User struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	Role           string
	StudentID      pgtype.UUID
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Student is a roster record. StudentID is the human-assigned identifier,
// distinct from the row key. Rows are soft-deleted so order history under a
// removed student stays readable.
type Student struct {
	ID        uuid.UUID
	StudentID string
	FirstName string
	LastName  string
	Phone     string
	Email     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MenuItem is a catalog entry. ID is the random public numeric identifier,
// not a storage-assigned key.
type MenuItem struct {
	ID           int64
	Item         string
	Price        pgtype.Numeric
	Availability bool
	Category     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Order is owned by exactly one student. MenuItems holds the JSON snapshot of
// {id, name, price} captured at submission time; OrderTimestamp is set once at
// creation and never written again.
type Order struct {
	ID               uuid.UUID
	StudentID        uuid.UUID
	OrderTimestamp   time.Time
	RequiredTime     time.Time
	FinalPrice       pgtype.Numeric
	MenuItems        []byte
	PickupOrDelivery string
	DeliveryRoom     string
	Notes            string
	Status           string
}
