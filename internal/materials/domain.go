// Package materials tracks stock items (packets of parts) and their
// suppliers.
package materials

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stockroom/stockroom/internal/shared"
)

// DateLayout is the day/month/year rendering of LastUpdated.
const DateLayout = "02/01/2006"

// Date is a calendar day without time of day.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in t's location.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// String renders the date as dd/mm/yyyy.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON renders dd/mm/yyyy.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON parses dd/mm/yyyy. Empty strings yield the zero date.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", shared.ErrInvalidArgument)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return fmt.Errorf("date %q must use dd/mm/yyyy: %w", raw, shared.ErrInvalidArgument)
	}
	*d = Date{Time: t}
	return nil
}

// Fields are the user-editable attributes of a material. Numbers are
// stored as INTEGER columns, so they are bounded to the int4 range.
type Fields struct {
	PacketNo int    `json:"packetNo" validate:"gte=0,lte=2147483647"`
	PartName string `json:"partName" validate:"required,max=255"`
	Length   int    `json:"length" validate:"gte=0,lte=2147483647"`
	Width    int    `json:"width" validate:"gte=0,lte=2147483647"`
	Height   int    `json:"height" validate:"gte=0,lte=2147483647"`
	Quantity int    `json:"quantity" validate:"gte=0,lte=2147483647"`
	Supplier string `json:"supplier" validate:"max=255"`
}

// Normalize trims surrounding whitespace from text fields.
func (f Fields) Normalize() Fields {
	f.PartName = strings.TrimSpace(f.PartName)
	f.Supplier = strings.TrimSpace(f.Supplier)
	return f
}

// Material is a stored stock item.
type Material struct {
	ID int64 `json:"id"`
	Fields
	UpdatedBy   string    `json:"updatedBy"`
	LastUpdated Date      `json:"lastUpdated"`
	CreatedAt   time.Time `json:"-"`
}

// SupplierTotal aggregates materials of one supplier.
type SupplierTotal struct {
	Supplier string `json:"supplier"`
	Items    int64  `json:"items"`
	Quantity int64  `json:"quantity"`
}

// Totals aggregates the whole table.
type Totals struct {
	Items    int64 `json:"items"`
	Quantity int64 `json:"quantity"`
}

// Summary is the dashboard view of stock grouped by supplier.
type Summary struct {
	Totals    Totals          `json:"totals"`
	Suppliers []SupplierTotal `json:"suppliers"`
}

// DeleteManyRequest is the body of a batch delete.
type DeleteManyRequest struct {
	IDs []int64 `json:"ids"`
}
