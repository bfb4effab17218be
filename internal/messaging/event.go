// internal/messaging/event.go

// Package messaging defines the integration messages exchanged between the
// command side and the projectors, and the transports that carry them.
package messaging

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Default topic names.
const (
	TopicGameSnapshots = "games.snapshots"
	TopicPayments      = "payments.status"
)

// GameSnapshot is the flattened current state of a game. It is published
// after every successful command and is the whole input of the catalog
// projection; consumers never need earlier messages to interpret it.
type GameSnapshot struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	ReleaseDate time.Time       `json:"releaseDate"`
	Price       decimal.Decimal `json:"price"`
	Discount    int             `json:"discount"`
	Value       decimal.Decimal `json:"value"`
	Removed     bool            `json:"removed"`
}

// PaymentStatus is the status code carried by payment messages.
type PaymentStatus int

const (
	PaymentApproved PaymentStatus = iota
	PaymentRejected
	PaymentPending
)

// PaymentMessage is produced by the payments system when an order changes status.
type PaymentMessage struct {
	OrderID int64           `json:"orderId"`
	UserID  int64           `json:"userId"`
	ItemID  uuid.UUID       `json:"itemId"`
	Amount  decimal.Decimal `json:"amount"`
	Status  PaymentStatus   `json:"status"`
}

func (m PaymentMessage) Approved() bool {
	return m.Status == PaymentApproved
}
