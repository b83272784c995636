package feed

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"audiencesync/internal/cache"
	"audiencesync/internal/form"
	"audiencesync/internal/mailchimp"
	"audiencesync/internal/observability"
	"audiencesync/internal/rules"
)

// ContactAPI is the slice of the audience API the processor needs.
type ContactAPI interface {
	GetListMember(ctx context.Context, listID, email string) (*mailchimp.Member, error)
	UpdateListMember(ctx context.Context, listID, email string, sub *mailchimp.Subscription) (*mailchimp.Member, error)
	UpdateMemberTags(ctx context.Context, listID, email string, tags []mailchimp.Tag) error
	AddMemberNote(ctx context.Context, listID, email, note string) error
	GetListMergeFields(ctx context.Context, listID string) ([]mailchimp.MergeField, error)
}

// Processor runs one feed against one submission. It holds no per-run state;
// a single processor serves all feeds.
type Processor struct {
	client   ContactAPI
	resolver *form.Resolver
	hooks    Hooks
	reporter Reporter
	meta     *cache.TTL[[]mailchimp.MergeField]
}

type ProcessorOption func(*Processor)

// WithHooks installs the policy callbacks.
func WithHooks(h Hooks) ProcessorOption {
	return func(p *Processor) { p.hooks = h }
}

// WithReporter replaces the default log reporter.
func WithReporter(r Reporter) ProcessorOption {
	return func(p *Processor) { p.reporter = r }
}

// WithMetadataTTL sets the expiry of the merge-field metadata cache.
func WithMetadataTTL(d time.Duration) ProcessorOption {
	return func(p *Processor) { p.meta = cache.NewTTL[[]mailchimp.MergeField](d) }
}

// NewProcessor builds a processor around an explicitly constructed client.
func NewProcessor(client ContactAPI, opts ...ProcessorOption) *Processor {
	p := &Processor{
		client:   client,
		reporter: LogReporter{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.meta == nil {
		p.meta = cache.NewTTL[[]mailchimp.MergeField](5 * time.Minute)
	}
	p.resolver = &form.Resolver{Override: p.hooks.FieldValue}
	return p
}

// FlushMetadata drops cached audience metadata. Called when feed settings
// are saved.
func (p *Processor) FlushMetadata() { p.meta.Flush() }

// Process runs the subscription reconciliation for one feed and submission.
// Outcomes are reported through the Reporter and the log; partial failure of
// the tag or note step is accepted and never rolled back.
func (p *Processor) Process(ctx context.Context, fd *Feed, f *form.Form, e *form.Entry) {
	logger := log.With().
		Int64("feed_id", fd.ID).
		Int64("entry_id", e.ID).
		Str("list_id", fd.ListID).
		Logger()
	logger.Debug().Msg("processing feed")

	email := strings.TrimSpace(p.resolver.Resolve(f, e, fd.MappedField("EMAIL"), "EMAIL"))
	if !validEmail(email) {
		p.reporter.FeedError(fd, e, "a valid email address must be provided")
		return
	}

	mergeVars := p.buildMergeVars(ctx, fd, f, e, logger)

	// Look up the contact's current state. A 404 means fresh subscribe.
	var member *mailchimp.Member
	memberStatus := ""
	switch m, err := p.client.GetListMember(ctx, fd.ListID, email); {
	case err == nil:
		member = m
		memberStatus = m.Status
		logger.Debug().Str("status", memberStatus).Msg("email found on audience")
	case mailchimp.IsNotFound(err):
		logger.Debug().Msg("email not found on audience")
	default:
		p.reporter.FeedError(fd, e, fmt.Sprintf("unable to check if email address is already used by a member: %v", err))
		return
	}

	if memberStatus == mailchimp.StatusUnsubscribed && !p.hooks.allowResubscription(f, e, fd) {
		// Intentional policy, not a failure: stop silently.
		logger.Debug().Msg("member is unsubscribed and resubscription is not allowed")
		observability.FeedsProcessed.WithLabelValues("skipped").Inc()
		return
	}

	interests := p.resolveInterests(fd, f, e, member)
	tags := p.resolveTags(fd, f, e, member)
	note := strings.TrimSpace(p.resolver.ExpandTemplate(f, e, fd.Note))

	// Double opt-in puts new subscriptions into pending; a contact the remote
	// already reports as pending stays pending.
	status := mailchimp.StatusSubscribed
	if memberStatus == mailchimp.StatusPending {
		status = mailchimp.StatusPending
	}
	if fd.DoubleOptIn && memberStatus != mailchimp.StatusSubscribed {
		status = mailchimp.StatusPending
	}

	sub := &mailchimp.Subscription{
		EmailAddress:         email,
		Status:               status,
		EmailType:            "html",
		MergeFields:          mergeVars,
		Interests:            interests,
		MarketingPermissions: p.resolvePermissions(fd, f, e, member),
		IPSignup:             e.IP,
		VIP:                  fd.MarkAsVIP,
		Tags:                 tags,
		Note:                 note,
	}

	// Both payload-mutation generations fire, the newer after (and
	// superseding) the older.
	transaction := "Subscribe"
	if member != nil {
		transaction = "Update"
	}
	if p.hooks.PreSubscribe != nil {
		p.hooks.PreSubscribe(sub, f, e, fd, transaction)
	}
	if p.hooks.Subscription != nil {
		p.hooks.Subscription(sub, fd.ListID, f, e, fd, member)
	}

	if len(sub.MergeFields) == 0 {
		sub.MergeFields = nil
	}
	if len(sub.Interests) == 0 {
		sub.Interests = nil
	}

	action := "added"
	if member != nil {
		action = "updated"
	}

	if _, err := p.client.UpdateListMember(ctx, fd.ListID, sub.EmailAddress, sub); err != nil {
		p.reporter.FeedError(fd, e, fmt.Sprintf("unable to add/update subscriber: %v", err))
		var apiErr *mailchimp.APIError
		if errors.As(err, &apiErr) && len(apiErr.Errors) > 0 {
			logger.Error().Interface("field_errors", apiErr.Errors).Msg("field errors when attempting subscription")
		}
		observability.FeedsProcessed.WithLabelValues("error").Inc()
		return
	}
	logger.Debug().Str("action", action).Msg("subscriber written")
	observability.FeedsProcessed.WithLabelValues(action).Inc()

	// The tag and note writes are independent of the upsert and of each
	// other; there is no transaction to roll back across these endpoints.
	// Both read the post-hook payload, so hooks can rewrite them too.
	memberTags := make([]mailchimp.Tag, 0, len(sub.Tags))
	for _, t := range sub.Tags {
		memberTags = append(memberTags, mailchimp.Tag{Name: t, Status: "active"})
	}
	if err := p.client.UpdateMemberTags(ctx, fd.ListID, sub.EmailAddress, memberTags); err != nil {
		p.reporter.FeedError(fd, e, fmt.Sprintf("unable to add/update subscriber tags: %v", err))
	}

	if strings.TrimSpace(sub.Note) == "" {
		return
	}
	if err := p.client.AddMemberNote(ctx, fd.ListID, sub.EmailAddress, strings.TrimSpace(sub.Note)); err != nil {
		p.reporter.FeedError(fd, e, fmt.Sprintf("unable to add note to subscriber: %v", err))
	}
}

// buildMergeVars resolves every mapped field except EMAIL. Empty values are
// skipped unless the override-empty-fields policy says otherwise; empty
// address values are always skipped so a blank address block cannot erase a
// stored one.
func (p *Processor) buildMergeVars(ctx context.Context, fd *Feed, f *form.Form, e *form.Entry, logger zerolog.Logger) map[string]string {
	overrideEmpty := p.hooks.overrideEmptyFields(f, e, fd)
	if !overrideEmpty {
		logger.Debug().Msg("empty fields will not be overridden")
	}

	mergeVars := make(map[string]string)
	for _, m := range fd.FieldMap {
		if m.FieldRef == "" || strings.EqualFold(m.MergeTag, "EMAIL") {
			continue
		}

		field := f.FieldByRef(m.FieldRef)
		value := p.resolver.Resolve(f, e, m.FieldRef, m.MergeTag)

		if value == "" && (!overrideEmpty || (field != nil && field.Type == form.TypeAddress)) {
			continue
		}

		if value != "" {
			if mf := p.mergeField(ctx, fd.ListID, m.MergeTag); mf != nil && (mf.Type == "date" || mf.Type == "birthday") {
				value = form.FormatDate(value, mf.Options.DateFormat)
			}
		}

		mergeVars[m.MergeTag] = value
	}
	return mergeVars
}

// resolveInterests reconciles interest-category memberships. Existing opt-ins
// survive when the keep-existing-groups policy holds, otherwise they are
// explicitly cleared; every enabled category rule not covered by a kept
// interest is re-evaluated against the submission.
func (p *Processor) resolveInterests(fd *Feed, f *form.Form, e *form.Entry, member *mailchimp.Member) map[string]bool {
	keepExisting := p.hooks.keepExistingGroups(f, e, fd)

	interests := make(map[string]bool)
	keep := make(map[string]bool)
	if member != nil {
		for id, on := range member.Interests {
			interests[id] = on
			if !on {
				continue
			}
			if keepExisting {
				keep[id] = true
			} else {
				interests[id] = false
			}
		}
	}

	for _, r := range fd.CategoryRules {
		if !r.Enabled || keep[r.TargetID] {
			continue
		}
		interests[r.TargetID] = r.Satisfied(p.resolver, f, e)
	}
	return interests
}

// resolveTags expands the feed's tag template and merges with the contact's
// existing tags unless the feed replaces them outright.
func (p *Processor) resolveTags(fd *Feed, f *form.Form, e *form.Entry, member *mailchimp.Member) []string {
	var tags []string
	for _, raw := range strings.Split(fd.Tags, ",") {
		t := strings.TrimSpace(p.resolver.ExpandTemplate(f, e, strings.TrimSpace(raw)))
		if t != "" {
			tags = append(tags, t)
		}
	}
	if member != nil && !fd.ReplaceTags {
		tags = append(member.TagNames(), tags...)
	}
	return dedupe(tags)
}

// resolvePermissions keeps every permission the contact already granted and
// evaluates feed rules only for permissions not yet enabled. Permissions
// absent from both sides are left untouched.
func (p *Processor) resolvePermissions(fd *Feed, f *form.Form, e *form.Entry, member *mailchimp.Member) []mailchimp.MarketingPermission {
	if len(fd.PermissionRules) == 0 {
		return nil
	}

	enabled := make(map[string]bool, len(fd.PermissionRules))
	var configured []string
	for _, r := range fd.PermissionRules {
		if !r.Enabled {
			continue
		}
		enabled[r.TargetID] = true
		configured = append(configured, r.TargetID)
	}

	var out []mailchimp.MarketingPermission
	if member != nil {
		for _, existing := range member.MarketingPermissions {
			if existing.Enabled {
				out = append(out, mailchimp.MarketingPermission{ID: existing.ID, Enabled: true})
				continue
			}
			if !enabled[existing.ID] {
				continue
			}
			out = append(out, mailchimp.MarketingPermission{
				ID:      existing.ID,
				Enabled: p.permissionRule(fd, existing.ID).Satisfied(p.resolver, f, e),
			})
		}
		return out
	}

	for _, id := range configured {
		out = append(out, mailchimp.MarketingPermission{
			ID:      id,
			Enabled: p.permissionRule(fd, id).Satisfied(p.resolver, f, e),
		})
	}
	return out
}

func (p *Processor) permissionRule(fd *Feed, targetID string) rules.Rule {
	for _, r := range fd.PermissionRules {
		if r.TargetID == targetID {
			return r
		}
	}
	return rules.Rule{}
}

// mergeField looks up a merge field definition through the TTL cache. A
// metadata fetch failure degrades to no date formatting, never an abort.
func (p *Processor) mergeField(ctx context.Context, listID, tag string) *mailchimp.MergeField {
	fields, ok := p.meta.Get(listID)
	if !ok {
		var err error
		fields, err = p.client.GetListMergeFields(ctx, listID)
		if err != nil {
			log.Warn().Err(err).Str("list_id", listID).Msg("unable to get merge fields for audience")
			return nil
		}
		p.meta.Set(listID, fields)
	}
	for i := range fields {
		if fields[i].Tag == tag {
			return &fields[i]
		}
	}
	return nil
}

func validEmail(s string) bool {
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
