// Package feed implements feed processing: given a finalized submission and a
// feed configuration, it reconciles the mapped values against the remote
// contact and issues the upsert, tag, and note writes.
package feed

import (
	"strings"

	"audiencesync/internal/rules"
)

// Mapping binds one remote merge tag to a form field reference.
type Mapping struct {
	MergeTag string `json:"merge_tag"`
	FieldRef string `json:"field_ref"`
}

// Feed is a persisted per-form configuration targeting one audience. It is
// read by the processor and never mutated by it.
type Feed struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	FormID int64  `json:"form_id"`
	ListID string `json:"list_id"`
	Active bool   `json:"active"`

	FieldMap        []Mapping    `json:"field_map"`
	CategoryRules   []rules.Rule `json:"category_rules,omitempty"`
	PermissionRules []rules.Rule `json:"permission_rules,omitempty"`
	Condition       *rules.Rule  `json:"condition,omitempty"`

	DoubleOptIn bool   `json:"double_opt_in"`
	MarkAsVIP   bool   `json:"mark_as_vip"`
	ReplaceTags bool   `json:"replace_tags"`
	Tags        string `json:"tags"`
	Note        string `json:"note"`
}

// MappedField returns the field reference mapped to a merge tag, or "".
func (f *Feed) MappedField(mergeTag string) string {
	for _, m := range f.FieldMap {
		if strings.EqualFold(m.MergeTag, mergeTag) {
			return m.FieldRef
		}
	}
	return ""
}
