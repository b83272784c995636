package feed

import (
	"audiencesync/internal/form"
	"audiencesync/internal/mailchimp"
)

// Hooks are the optional policy callbacks the processor consults. Every hook
// has a documented default, so the zero value processes feeds the standard
// way and the core stays host-agnostic.
type Hooks struct {
	// OverrideEmptyFields decides whether empty mapped values are still sent,
	// erasing previously stored merge-field data. Default: true.
	OverrideEmptyFields func(f *form.Form, e *form.Entry, fd *Feed) bool

	// AllowResubscription decides whether an unsubscribed contact is
	// resubscribed. When it returns false, processing stops silently.
	// Default: true.
	AllowResubscription func(f *form.Form, e *form.Entry, fd *Feed) bool

	// KeepExistingGroups decides whether interests the contact already opted
	// into survive a repeat submission. Default: true.
	KeepExistingGroups func(f *form.Form, e *form.Entry, fd *Feed) bool

	// FieldValue rewrites any resolved field value. Default: identity.
	FieldValue form.OverrideFunc

	// PreSubscribe is the older payload-mutation generation. It runs before
	// Subscription; transaction is "Subscribe" or "Update". Default: no-op.
	PreSubscribe func(sub *mailchimp.Subscription, f *form.Form, e *form.Entry, fd *Feed, transaction string)

	// Subscription is the current payload-mutation generation. It runs after
	// PreSubscribe, superseding its effect, and receives the member fetched
	// earlier (nil when the contact does not exist yet). Default: no-op.
	Subscription func(sub *mailchimp.Subscription, listID string, f *form.Form, e *form.Entry, fd *Feed, member *mailchimp.Member)
}

func (h Hooks) overrideEmptyFields(f *form.Form, e *form.Entry, fd *Feed) bool {
	if h.OverrideEmptyFields == nil {
		return true
	}
	return h.OverrideEmptyFields(f, e, fd)
}

func (h Hooks) allowResubscription(f *form.Form, e *form.Entry, fd *Feed) bool {
	if h.AllowResubscription == nil {
		return true
	}
	return h.AllowResubscription(f, e, fd)
}

func (h Hooks) keepExistingGroups(f *form.Form, e *form.Entry, fd *Feed) bool {
	if h.KeepExistingGroups == nil {
		return true
	}
	return h.KeepExistingGroups(f, e, fd)
}
