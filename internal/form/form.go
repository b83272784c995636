// Package form holds the host framework's form and submission shapes plus the
// logic that turns a submitted entry into the values sent to the audience API.
package form

import (
	"strconv"
	"strings"
	"time"
)

// Field types the resolver treats specially.
const (
	TypeAddress  = "address"
	TypeName     = "name"
	TypeCheckbox = "checkbox"
	TypePhone    = "phone"
)

// PhoneFormatStandard is the constrained US/CAN phone format.
const PhoneFormatStandard = "standard"

// Input is a sub-input of a composite field, addressed as "<field>.<n>".
type Input struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Field is one field definition within a form.
type Field struct {
	ID          int     `json:"id"`
	Type        string  `json:"type"`
	Label       string  `json:"label"`
	PhoneFormat string  `json:"phone_format,omitempty"`
	Inputs      []Input `json:"inputs,omitempty"`
}

// Form is a host-owned form definition; read-only here.
type Form struct {
	ID     int64   `json:"id"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// FieldByRef finds the field a reference points at. The reference may carry a
// sub-input suffix ("3.1"); the suffix is ignored for the lookup.
func (f *Form) FieldByRef(ref string) *Field {
	base := ref
	if i := strings.IndexByte(ref, '.'); i >= 0 {
		base = ref[:i]
	}
	id, err := strconv.Atoi(base)
	if err != nil {
		return nil
	}
	for i := range f.Fields {
		if f.Fields[i].ID == id {
			return &f.Fields[i]
		}
	}
	return nil
}

// Entry is a finalized submission; immutable once created.
type Entry struct {
	ID        int64             `json:"id"`
	FormID    int64             `json:"form_id"`
	IP        string            `json:"ip"`
	SourceURL string            `json:"source_url"`
	CreatedAt time.Time         `json:"created_at"`
	Values    map[string]string `json:"values"`
}

// Value returns the submitted value for a field reference, or "".
func (e *Entry) Value(ref string) string {
	return e.Values[ref]
}
