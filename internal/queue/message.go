package queue

import "time"

// MessageType distinguishes the request/lifecycle message kinds that all
// travel through the same sku_id-keyed partition, per spec §4.2's note
// that confirm/cancel/expire are "multiplexed into the same partition or
// as secondary message types on the same key."
type MessageType string

const (
	TypeReserve MessageType = "RESERVE"
	TypeConfirm MessageType = "CONFIRM"
	TypeCancel  MessageType = "CANCEL"
	TypeExpire  MessageType = "EXPIRE"
)

// RequestTopic and LifecycleTopic are the two topics spec §6 names.
const (
	RequestTopic   = "reservation-requests"
	LifecycleTopic = "reservation-lifecycle"
)

// Request is the payload composed by the submitter (spec §4.1) and read
// by the batch consumer (spec §4.2). Key is always the sku_id so that all
// messages for one product traverse one partition and are owned by one
// writer.
type Request struct {
	Type           MessageType
	RequestID      string
	UserID         string
	SKUID          string
	Quantity       int
	IdempotencyKey string
	CorrelationID  string
	SubmittedAt    time.Time

	// ReservationID is set for CONFIRM/CANCEL/EXPIRE messages, which act
	// on an existing reservation rather than allocating a new one.
	ReservationID string

	// Confirmation payload, present only on CONFIRM messages.
	PaymentTxnID    string
	PaymentMethod   string
	ShippingAddress string
}

// Key returns the partitioning key for r: the sku_id, unconditionally.
func (r Request) Key() string { return r.SKUID }

// LifecycleEvent is published to LifecycleTopic for non-core consumers
// (analytics, notifications) per spec §4.3. Not required for core
// correctness.
type LifecycleEvent struct {
	Type          MessageType
	ReservationID string
	UserID        string
	SKUID         string
	At            time.Time
}

func (e LifecycleEvent) Key() string { return e.SKUID }
