package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Booking statuses. A booking is created as pending, becomes confirmed once the
// payment collaborator reports success, and is scanned at most once at the gate.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusScanned   = "scanned"
)

type BookingItem struct {
	TicketType int     `json:"ticket_type"`
	TierName   string  `json:"tier_name"`
	SeatLabel  string  `json:"seat_label,omitempty"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
}

// BookingItems is stored as a single JSON column so the booking row stays an
// immutable aggregate rather than a join across mutable child rows.
type BookingItems []BookingItem

func (items BookingItems) Value() (driver.Value, error) {
	return json.Marshal(items)
}

func (items *BookingItems) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, items)
	case string:
		return json.Unmarshal([]byte(v), items)
	case nil:
		*items = nil
		return nil
	default:
		return fmt.Errorf("unsupported booking items column type %T", src)
	}
}

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID          string       `bun:"id,pk" json:"id"`
	Reference   string       `bun:"reference,unique,notnull" json:"reference"`
	EventID     string       `bun:"event_id,notnull" json:"event_id"`
	Items       BookingItems `bun:"items,notnull" json:"items"`
	TotalAmount float64      `bun:"total_amount,notnull" json:"total_amount"`
	UserName    string       `bun:"user_name,notnull" json:"user_name"`
	UserEmail   string       `bun:"user_email,notnull" json:"user_email"`
	Status      string       `bun:"status,notnull" json:"status"`
	CreatedAt   time.Time    `bun:"created_at,notnull" json:"created_at"`
	ScannedAt   *time.Time   `bun:"scanned_at,nullzero" json:"scanned_at,omitempty"`
}

// NormalizeReference maps a typed or stored reference to its canonical form so
// that lookup is case-insensitive.
func NormalizeReference(ref string) string {
	return strings.ToUpper(strings.TrimSpace(ref))
}

// NormalizeStatus folds legacy status spellings into the three canonical
// states. Older bookings were written with "paid" or "available" where
// "confirmed" was meant; anything unknown is treated as confirmed rather than
// locking a paid customer out at the gate.
func NormalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusPending:
		return StatusPending
	case StatusScanned:
		return StatusScanned
	default:
		return StatusConfirmed
	}
}
