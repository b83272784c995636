package form

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// OverrideFunc lets a caller rewrite any resolved value. It receives the
// merge-tag context the value is being resolved for, not just the field ref.
type OverrideFunc func(value string, formID int64, fieldRef, mergeTag string, entry *Entry) string

// Resolver produces the value to send for a logical field reference.
// The zero value resolves with no override hook.
type Resolver struct {
	Override OverrideFunc
}

var standardPhoneRe = regexp.MustCompile(`^\D?(\d{3})\D?\D?(\d{3})\D?(\d{4})$`)

// Resolve computes the outgoing value for a field reference. The reference is
// either a synthetic key (form_title, date_created, ip, source_url) or a form
// field id, optionally with a sub-input suffix. Unresolvable references yield
// an empty string; Resolve never fails.
func (r *Resolver) Resolve(f *Form, e *Entry, ref, mergeTag string) string {
	var value string

	switch strings.ToLower(ref) {
	case "form_title":
		value = f.Title
	case "date_created":
		created := e.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		value = created.UTC().Format("2006-01-02 15:04:05")
	case "ip":
		value = e.IP
	case "source_url":
		value = e.SourceURL
	default:
		value = r.resolveField(f, e, ref, mergeTag)
	}

	return r.override(value, f.ID, ref, mergeTag, e)
}

func (r *Resolver) resolveField(f *Form, e *Entry, ref, mergeTag string) string {
	field := f.FieldByRef(ref)
	if field == nil {
		return e.Value(ref)
	}

	// A ref with a sub-input suffix addresses one input directly, so the
	// composite handling below only applies to whole-field refs.
	wholeField := !strings.Contains(ref, ".")

	switch {
	case wholeField && field.Type == TypeAddress:
		return fullAddress(e, field.ID)
	case wholeField && field.Type == TypeName:
		return fullName(e, field, ref)
	case wholeField && field.Type == TypeCheckbox:
		return r.checkedValues(f, e, field, mergeTag)
	case field.Type == TypePhone && field.PhoneFormat == PhoneFormatStandard:
		return formatStandardPhone(e.Value(ref))
	default:
		return e.Value(ref)
	}
}

func (r *Resolver) override(value string, formID int64, ref, mergeTag string, e *Entry) string {
	if r.Override == nil {
		return value
	}
	return r.Override(value, formID, ref, mergeTag, e)
}

// fullAddress joins the address sub-inputs with the double-space delimiter the
// remote schema requires. Missing parts are omitted; the country name is
// replaced with its ISO code.
func fullAddress(e *Entry, fieldID int) string {
	id := strconv.Itoa(fieldID)
	parts := []string{
		collapseSpaces(e.Value(id + ".1")),
		collapseSpaces(e.Value(id + ".2")),
		collapseSpaces(e.Value(id + ".3")),
		collapseSpaces(e.Value(id + ".4")),
		strings.TrimSpace(e.Value(id + ".5")),
		CountryCode(strings.TrimSpace(e.Value(id + ".6"))),
	}

	filled := parts[:0]
	for _, p := range parts {
		if p != "" {
			filled = append(filled, p)
		}
	}
	return strings.Join(filled, "  ")
}

// fullName joins the name sub-inputs with single spaces, skipping blanks. A
// simple name field with no sub-inputs returns the raw value.
func fullName(e *Entry, field *Field, ref string) string {
	if len(field.Inputs) == 0 {
		return e.Value(ref)
	}
	var parts []string
	for _, in := range field.Inputs {
		if v := strings.TrimSpace(e.Value(in.ID)); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// checkedValues joins checked checkbox values with ", ", applying the
// override hook per value.
func (r *Resolver) checkedValues(f *Form, e *Entry, field *Field, mergeTag string) string {
	var selected []string
	for _, in := range field.Inputs {
		v := e.Value(in.ID)
		if v == "" {
			continue
		}
		selected = append(selected, r.override(v, f.ID, in.ID, mergeTag, e))
	}
	return strings.Join(selected, ", ")
}

// formatStandardPhone rewrites a 10-digit US/CAN number as NPA-NXX-LINE
// (404-555-1212). Anything that does not match passes through unchanged.
func formatStandardPhone(value string) string {
	if value == "" {
		return value
	}
	m := standardPhoneRe.FindStringSubmatch(value)
	if m == nil {
		return value
	}
	return m[1] + "-" + m[2] + "-" + m[3]
}

func collapseSpaces(s string) string {
	s = strings.TrimSpace(s)
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
}

// FormatDate re-renders a submitted date in the ordering the merge field
// declares. Values that do not parse pass through unchanged.
func FormatDate(value, dateFormat string) string {
	t, ok := parseDate(value)
	if !ok {
		return value
	}
	switch dateFormat {
	case "DD/MM":
		return t.Format("02/01")
	case "MM/DD":
		return t.Format("01/02")
	case "DD/MM/YYYY":
		return t.Format("02/01/2006")
	case "MM/DD/YYYY":
		return t.Format("01/02/2006")
	}
	return value
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
