package payload

import "time"

// Payload is a single rendered snapshot produced by a data source.
// Once stored it is treated as immutable: refreshes replace the whole
// payload, they never mutate fields in place.
type Payload struct {
	// Value is the primary rendered value (string, number, or any
	// JSON-encodable structure the front end knows how to display).
	Value any `json:"value"`
	// Secondary and Tertiary are optional auxiliary display values
	// (e.g. a forecast next to the current temperature).
	Secondary any `json:"secondary,omitempty"`
	Tertiary  any `json:"tertiary,omitempty"`
	// Raw optionally keeps the unprocessed upstream data for debugging.
	Raw any `json:"raw,omitempty"`
	// CreatedAt is the UTC instant this payload was built.
	CreatedAt time.Time `json:"createdAt"`
}

// New builds a payload around a primary value, stamped with the current UTC time.
func New(value any) *Payload {
	return &Payload{
		Value:     value,
		CreatedAt: time.Now().UTC(),
	}
}

// Age returns how long ago the payload was created.
func (p *Payload) Age() time.Duration {
	return time.Since(p.CreatedAt)
}
