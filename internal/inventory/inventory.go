package inventory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tickify/ticketing/internal/models"
)

// seatsPerRow and rowsPerType shape synthesized layouts: every ticket type
// without an explicit grid gets two rows of eight seats.
const (
	seatsPerRow = 8
	rowsPerType = 2
)

// rawCell accepts both the canonical layout cell shape and the legacy field
// spellings ("type" for kind, "tier" for the ticket type index) so old event
// documents keep resolving.
type rawCell struct {
	Kind       string `json:"kind"`
	Type       string `json:"type"`
	TicketType *int   `json:"ticket_type"`
	Tier       *int   `json:"tier"`
	Sold       bool   `json:"sold"`
	Label      string `json:"label"`
}

type rawLayout struct {
	Rows [][]rawCell `json:"rows"`
}

// ResolveLayout derives the sellable grid for an event. An explicit layout
// (serialized JSON on the event document) wins; otherwise the grid is
// synthesized from the ticket catalog. Every seat cell is annotated with its
// ticket type's price, name and color. A missing catalog and missing layout
// yield an empty grid, not an error, so callers can show "no seat map
// available".
func ResolveLayout(event *models.Event) (models.SeatingLayout, error) {
	if event == nil {
		return models.SeatingLayout{}, nil
	}
	if strings.TrimSpace(event.LayoutJSON) == "" {
		return SynthesizeLayout(event.TicketTypes), nil
	}
	return ParseLayout(event.LayoutJSON, event.TicketTypes)
}

// ParseLayout parses an explicit layout, accepting either the canonical
// `{"rows": [...]}` wrapper or a legacy bare 2D array.
func ParseLayout(layoutJSON string, catalog models.TicketTypes) (models.SeatingLayout, error) {
	data := []byte(layoutJSON)

	var raw rawLayout
	if err := json.Unmarshal(data, &raw); err != nil {
		var bare [][]rawCell
		if err := json.Unmarshal(data, &bare); err != nil {
			return models.SeatingLayout{}, fmt.Errorf("%w: %v", models.ErrMalformedLayout, err)
		}
		raw.Rows = bare
	}

	layout := models.SeatingLayout{Rows: make([][]models.SeatDescriptor, 0, len(raw.Rows))}
	seen := make(map[string]bool)
	for i, row := range raw.Rows {
		cells := make([]models.SeatDescriptor, 0, len(row))
		for j, cell := range row {
			desc, err := resolveCell(cell, catalog)
			if err != nil {
				return models.SeatingLayout{}, fmt.Errorf("row %d cell %d: %w", i, j, err)
			}
			if desc.Kind == models.SeatKindSeat {
				if seen[desc.Label] {
					return models.SeatingLayout{}, fmt.Errorf("%w: duplicate seat label %q", models.ErrMalformedLayout, desc.Label)
				}
				seen[desc.Label] = true
			}
			cells = append(cells, desc)
		}
		layout.Rows = append(layout.Rows, cells)
	}
	return layout, nil
}

func resolveCell(cell rawCell, catalog models.TicketTypes) (models.SeatDescriptor, error) {
	kind := cell.Kind
	if kind == "" {
		kind = cell.Type
	}

	desc := models.SeatDescriptor{Sold: cell.Sold, Label: cell.Label}
	switch strings.ToLower(kind) {
	case "seat", "":
		desc.Kind = models.SeatKindSeat
	case "aisle":
		desc.Kind = models.SeatKindAisle
		return desc, nil
	case "blocked":
		desc.Kind = models.SeatKindBlocked
		return desc, nil
	default:
		return desc, fmt.Errorf("%w: unknown cell kind %q", models.ErrMalformedLayout, kind)
	}

	idx := 0
	if cell.TicketType != nil {
		idx = *cell.TicketType
	} else if cell.Tier != nil {
		idx = *cell.Tier
	}
	if idx < 0 || idx >= len(catalog) {
		return desc, fmt.Errorf("%w: ticket type index %d out of range", models.ErrMalformedLayout, idx)
	}

	tt := catalog[idx]
	desc.TicketType = idx
	desc.TierName = tt.Name
	desc.Price = tt.Price
	desc.Color = tt.Color
	return desc, nil
}

// SynthesizeLayout builds the default grid when an event has no explicit
// layout: two rows of eight seats per ticket type, row letters running
// consecutively across types, every seat available.
func SynthesizeLayout(catalog models.TicketTypes) models.SeatingLayout {
	var layout models.SeatingLayout
	rowIndex := 0
	for idx, tt := range catalog {
		for r := 0; r < rowsPerType; r++ {
			rowLabel := rowLetters(rowIndex)
			rowIndex++
			row := make([]models.SeatDescriptor, 0, seatsPerRow)
			for s := 1; s <= seatsPerRow; s++ {
				row = append(row, models.SeatDescriptor{
					Kind:       models.SeatKindSeat,
					TicketType: idx,
					Label:      fmt.Sprintf("%s%d", rowLabel, s),
					TierName:   tt.Name,
					Price:      tt.Price,
					Color:      tt.Color,
				})
			}
			layout.Rows = append(layout.Rows, row)
		}
	}
	return layout
}

// rowLetters yields A..Z then AA, AB, ... for grids past 26 rows.
func rowLetters(index int) string {
	label := ""
	for {
		label = string(rune('A'+index%26)) + label
		index = index/26 - 1
		if index < 0 {
			return label
		}
	}
}

// IsSelectable reports whether a cell can be picked by a buyer.
func IsSelectable(desc models.SeatDescriptor) bool {
	return desc.Kind == models.SeatKindSeat && !desc.Sold
}

// Selection is one line of a buyer's pick: a specific seat label, or a
// general-admission ticket type with a quantity.
type Selection struct {
	SeatLabel  string
	TicketType int
	Quantity   int
}

// PriceOf sums the unit prices of a selection against the event's layout and
// catalog. Seated lines are priced from their annotated seat; general
// admission lines directly from the ticket type.
func PriceOf(layout models.SeatingLayout, catalog models.TicketTypes, selection []Selection) (float64, error) {
	seatsByLabel := make(map[string]models.SeatDescriptor)
	for _, seat := range layout.Seats() {
		seatsByLabel[seat.Label] = seat
	}

	total := 0.0
	for _, sel := range selection {
		if sel.SeatLabel != "" {
			seat, ok := seatsByLabel[sel.SeatLabel]
			if !ok {
				return 0, fmt.Errorf("%w: unknown seat %q", models.ErrMalformedLayout, sel.SeatLabel)
			}
			total += seat.Price
			continue
		}
		if sel.TicketType < 0 || sel.TicketType >= len(catalog) {
			return 0, fmt.Errorf("%w: ticket type index %d out of range", models.ErrMalformedLayout, sel.TicketType)
		}
		qty := sel.Quantity
		if qty < 1 {
			qty = 1
		}
		total += catalog[sel.TicketType].Price * float64(qty)
	}
	return total, nil
}
