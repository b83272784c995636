package api

import (
	"context"
	"encoding/json"
	"net/http"

	"audiencesync/internal/feed"
	"audiencesync/internal/form"
)

// FeedSource yields the active feeds configured for a form.
type FeedSource interface {
	FeedsForForm(formID int64) []feed.Feed
}

// FeedProcessor runs one feed against one submission.
type FeedProcessor interface {
	Process(ctx context.Context, fd *feed.Feed, f *form.Form, e *form.Entry)
}

// SubmissionHandler is the host boundary: invoked once per finalized
// submission, it fans out to every active feed for the form.
type SubmissionHandler struct {
	feeds    FeedSource
	proc     FeedProcessor
	resolver *form.Resolver
}

func NewSubmissionHandler(feeds FeedSource, proc FeedProcessor) *SubmissionHandler {
	return &SubmissionHandler{
		feeds:    feeds,
		proc:     proc,
		resolver: &form.Resolver{},
	}
}

type submissionRequest struct {
	Form  form.Form  `json:"form"`
	Entry form.Entry `json:"entry"`
}

type submissionResponse struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Form.ID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "form id is required"})
		return
	}

	feeds := h.feeds.FeedsForForm(req.Form.ID)
	if len(feeds) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var resp submissionResponse
	for i := range feeds {
		fd := &feeds[i]
		// A disabled send condition contributes nothing: the feed runs.
		if fd.Condition != nil && fd.Condition.Enabled && !fd.Condition.Satisfied(h.resolver, &req.Form, &req.Entry) {
			resp.Skipped++
			continue
		}
		// Feeds are processed sequentially and independently; one feed's
		// failure does not affect the next.
		h.proc.Process(r.Context(), fd, &req.Form, &req.Entry)
		resp.Processed++
	}

	writeJSON(w, http.StatusAccepted, resp)
}
