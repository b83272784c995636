package feed

import (
	"github.com/rs/zerolog/log"

	"audiencesync/internal/form"
	"audiencesync/internal/observability"
)

// Reporter receives feed-level errors. Outcomes are reported here rather
// than returned; the host decides whether and when to re-trigger.
type Reporter interface {
	FeedError(fd *Feed, e *form.Entry, msg string)
}

// LogReporter reports feed errors to the structured log and the error
// counter. It is the default reporter.
type LogReporter struct{}

func (LogReporter) FeedError(fd *Feed, e *form.Entry, msg string) {
	observability.FeedErrors.Inc()
	log.Error().
		Int64("feed_id", fd.ID).
		Int64("entry_id", e.ID).
		Str("list_id", fd.ListID).
		Msg(msg)
}
