package models

// SeatKind classifies one cell of a seating grid. Aisles and blocked cells
// carry no price and are never selectable.
type SeatKind string

const (
	SeatKindSeat    SeatKind = "seat"
	SeatKindAisle   SeatKind = "aisle"
	SeatKindBlocked SeatKind = "blocked"
)

// SeatDescriptor is one cell of a seating grid, annotated with the pricing
// details of its ticket type so the selection UI never has to join against
// the catalog itself.
type SeatDescriptor struct {
	Kind       SeatKind `json:"kind"`
	TicketType int      `json:"ticket_type"`
	Sold       bool     `json:"sold"`
	Label      string   `json:"label"`
	TierName   string   `json:"tier_name,omitempty"`
	Price      float64  `json:"price,omitempty"`
	Color      string   `json:"color,omitempty"`
}

// SeatingLayout is an ordered grid of rows. Seat labels are unique within an
// event.
type SeatingLayout struct {
	Rows [][]SeatDescriptor `json:"rows"`
}

// Seats returns every selectable-kind cell in row order, sold or not.
func (l SeatingLayout) Seats() []SeatDescriptor {
	var seats []SeatDescriptor
	for _, row := range l.Rows {
		for _, cell := range row {
			if cell.Kind == SeatKindSeat {
				seats = append(seats, cell)
			}
		}
	}
	return seats
}
