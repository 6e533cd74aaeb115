package progress

import (
	"encoding/json"
	"time"
)

// DocumentID is the fixed key of the only progress document in the system.
const DocumentID = "global"

// Document is the singleton counter record. Counters are float64 because
// increments may be fractional or negative.
type Document struct {
	Trauma    float64    `json:"trauma"              firestore:"trauma"`
	Upper     float64    `json:"upper"               firestore:"upper"`
	Lower     float64    `json:"lower"               firestore:"lower"`
	CreatedAt *time.Time `json:"createdAt,omitempty" firestore:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`

	// Extra keeps fields written by other clients so reads return the stored
	// document unchanged. Only the Firestore backend populates it.
	Extra map[string]any `json:"-" firestore:"-"`
}

// MarshalJSON emits the counters and timestamps plus any Extra fields. Known
// fields take precedence over Extra entries with the same name.
func (d Document) MarshalJSON() ([]byte, error) {
	type plain Document
	if len(d.Extra) == 0 {
		return json.Marshal(plain(d))
	}
	fields := make(map[string]any, len(d.Extra)+5)
	for k, v := range d.Extra {
		fields[k] = v
	}
	fields["trauma"] = d.Trauma
	fields["upper"] = d.Upper
	fields["lower"] = d.Lower
	if d.CreatedAt != nil {
		fields["createdAt"] = d.CreatedAt
	} else {
		delete(fields, "createdAt")
	}
	if d.UpdatedAt != nil {
		fields["updatedAt"] = d.UpdatedAt
	} else {
		delete(fields, "updatedAt")
	}
	return json.Marshal(fields)
}

// Value returns the counter for the given category.
func (d Document) Value(c Category) float64 {
	switch c {
	case CategoryTrauma:
		return d.Trauma
	case CategoryUpper:
		return d.Upper
	case CategoryLower:
		return d.Lower
	default:
		return 0
	}
}

// Add applies delta to the named counter in place.
func (d *Document) Add(c Category, delta float64) {
	switch c {
	case CategoryTrauma:
		d.Trauma += delta
	case CategoryUpper:
		d.Upper += delta
	case CategoryLower:
		d.Lower += delta
	}
}

// Zero clears all counters and stamps UpdatedAt.
func (d *Document) Zero(at time.Time) {
	d.Trauma, d.Upper, d.Lower = 0, 0, 0
	d.UpdatedAt = &at
}

// NewDocument returns a freshly initialized document created at the given time.
func NewDocument(createdAt time.Time) Document {
	return Document{CreatedAt: &createdAt}
}
