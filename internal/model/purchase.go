package model

import "time"

// UserPurchase records that a user has converted a reservation into an
// order. It is created exactly once, when a Reservation transitions to
// CONFIRMED (spec §3), and backs the submitter's "already purchased"
// precondition (spec §4.1 step 2).
type UserPurchase struct {
	UserID        string
	SKUID         string
	OrderID       string
	ReservationID string
	Quantity      int
	CreatedAt     time.Time
}

// OrderStatus mirrors the surface-area Order entity from spec §3. Orders
// are an external collaborator; this repository only models the type.
// The CONFIRM applier does not create an Order, and the payment/shipping
// fields of a CONFIRM message are not stored anywhere.
type OrderStatus string

const (
	OrderPaymentPending OrderStatus = "PAYMENT_PENDING"
	OrderConfirmed      OrderStatus = "CONFIRMED"
	OrderFulfilled      OrderStatus = "FULFILLED"
	OrderCancelled      OrderStatus = "CANCELLED"
)

type Order struct {
	OrderID         string
	ReservationID   string
	UserID          string
	SKUID           string
	Quantity        int
	TotalPrice      string // decimal string; kept opaque to this repo's scope
	Status          OrderStatus
	PaymentTxnID    string
	ShippingAddress string
	CreatedAt       time.Time
	FulfilledAt     *time.Time
	CancelledAt     *time.Time
}
