package form

import (
	"regexp"
	"strings"
)

// Merge tags look like {form_title} or {3} / {3.1} for form fields.
var mergeTagRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*|[0-9]+(?:\.[0-9]+)?)\}`)

// ExpandTemplate substitutes merge tags in free-text templates (tag lists,
// notes) with values from the submission. Unknown tags expand to "".
func (r *Resolver) ExpandTemplate(f *Form, e *Entry, tmpl string) string {
	if tmpl == "" {
		return ""
	}
	return mergeTagRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		ref := strings.Trim(m, "{}")
		return r.Resolve(f, e, ref, "")
	})
}
