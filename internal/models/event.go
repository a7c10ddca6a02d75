package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type TicketType struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Color    string  `json:"color,omitempty"`
}

type TicketTypes []TicketType

func (tt TicketTypes) Value() (driver.Value, error) {
	return json.Marshal(tt)
}

func (tt *TicketTypes) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, tt)
	case string:
		return json.Unmarshal([]byte(v), tt)
	case nil:
		*tt = nil
		return nil
	default:
		return fmt.Errorf("unsupported ticket types column type %T", src)
	}
}

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          string      `bun:"id,pk" json:"id"`
	Title       string      `bun:"title,notnull" json:"title"`
	TicketTypes TicketTypes `bun:"ticket_types" json:"ticket_types"`
	LayoutJSON  string      `bun:"layout_json,nullzero" json:"layout_json,omitempty"`
	// Doc holds the raw document for events imported from the previous
	// system; rows written by this service leave it empty.
	Doc       string    `bun:"doc,nullzero" json:"-"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// HydrateFromDoc fills empty canonical fields from an imported legacy
// document. Called at the store-read boundary so nothing downstream has to
// know about old field spellings.
func (e *Event) HydrateFromDoc() error {
	if e.Doc == "" {
		return nil
	}
	decoded, err := DecodeEventDocument([]byte(e.Doc))
	if err != nil {
		return err
	}
	if e.Title == "" {
		e.Title = decoded.Title
	}
	if len(e.TicketTypes) == 0 {
		e.TicketTypes = decoded.TicketTypes
	}
	if e.LayoutJSON == "" {
		e.LayoutJSON = decoded.LayoutJSON
	}
	return nil
}

// EventSeat is the authoritative per-seat sales record. The layout JSON on the
// event describes the grid; these rows carry the sold flag that booking
// creation claims with a conditional write.
type EventSeat struct {
	bun.BaseModel `bun:"table:event_seats"`

	EventID    string `bun:"event_id,pk" json:"event_id"`
	Label      string `bun:"label,pk" json:"label"`
	TicketType int    `bun:"ticket_type,notnull" json:"ticket_type"`
	Sold       bool   `bun:"sold,notnull" json:"sold"`
}

// legacyEvent carries the field spellings older event documents used. The
// migration to the canonical shape happens exactly once, here at the read
// boundary, instead of `title || eventTitle` fallbacks at every call site.
type legacyEvent struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	EventTitle  string      `json:"eventTitle"`
	Name        string      `json:"name"`
	TicketTypes TicketTypes `json:"ticket_types"`
	Tiers       TicketTypes `json:"tiers"`
	LayoutJSON  string      `json:"layout_json"`
	Layout      string      `json:"layout"`
	CreatedAt   time.Time   `json:"created_at"`
}

// DecodeEventDocument parses an event document accepting both the canonical
// shape and the legacy field names.
func DecodeEventDocument(data []byte) (*Event, error) {
	var legacy legacyEvent
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("decode event document: %w", err)
	}
	ev := &Event{
		ID:          legacy.ID,
		Title:       legacy.Title,
		TicketTypes: legacy.TicketTypes,
		LayoutJSON:  legacy.LayoutJSON,
		CreatedAt:   legacy.CreatedAt,
	}
	if ev.Title == "" {
		ev.Title = legacy.EventTitle
	}
	if ev.Title == "" {
		ev.Title = legacy.Name
	}
	if len(ev.TicketTypes) == 0 {
		ev.TicketTypes = legacy.Tiers
	}
	if ev.LayoutJSON == "" {
		ev.LayoutJSON = legacy.Layout
	}
	return ev, nil
}
