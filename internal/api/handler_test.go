package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audiencesync/internal/feed"
	"audiencesync/internal/form"
	"audiencesync/internal/rules"
)

type stubFeedSource struct {
	feeds []feed.Feed
}

func (s *stubFeedSource) FeedsForForm(int64) []feed.Feed { return s.feeds }

type stubProcessor struct {
	processed []int64
}

func (p *stubProcessor) Process(_ context.Context, fd *feed.Feed, _ *form.Form, _ *form.Entry) {
	p.processed = append(p.processed, fd.ID)
}

func submit(t *testing.T, h *SubmissionHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/submissions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Submit(rec, req)
	return rec
}

func TestSubmitBadRequest(t *testing.T) {
	h := NewSubmissionHandler(&stubFeedSource{}, &stubProcessor{})

	t.Run("malformed json", func(t *testing.T) {
		rec := submit(t, h, "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing form id", func(t *testing.T) {
		rec := submit(t, h, `{"form":{"title":"Signup"},"entry":{"id":1}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSubmitNoFeeds(t *testing.T) {
	proc := &stubProcessor{}
	h := NewSubmissionHandler(&stubFeedSource{}, proc)

	rec := submit(t, h, `{"form":{"id":3},"entry":{"id":1}}`)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, proc.processed)
}

func TestSubmitFansOutPerFeed(t *testing.T) {
	src := &stubFeedSource{feeds: []feed.Feed{
		{ID: 1, FormID: 3, ListID: "a"},
		{ID: 2, FormID: 3, ListID: "b", Condition: &rules.Rule{
			Enabled:  true,
			Decision: rules.DecisionIf,
			FieldRef: "5",
			Operator: rules.OpIs,
			Value:    "yes",
		}},
		{ID: 3, FormID: 3, ListID: "c"},
	}}
	proc := &stubProcessor{}
	h := NewSubmissionHandler(src, proc)

	body := `{
		"form": {"id": 3, "title": "Signup", "fields": [{"id": 5, "type": "text", "label": "Opt in"}]},
		"entry": {"id": 10, "form_id": 3, "values": {"5": "no"}}
	}`
	rec := submit(t, h, body)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []int64{1, 3}, proc.processed)

	var resp submissionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Processed)
	assert.Equal(t, 1, resp.Skipped)
}

func TestSubmitDisabledConditionRuns(t *testing.T) {
	src := &stubFeedSource{feeds: []feed.Feed{
		{ID: 9, FormID: 3, ListID: "a", Condition: &rules.Rule{
			Enabled:  false,
			Decision: rules.DecisionIf,
			FieldRef: "5",
			Operator: rules.OpIs,
			Value:    "yes",
		}},
	}}
	proc := &stubProcessor{}
	h := NewSubmissionHandler(src, proc)

	body := `{
		"form": {"id": 3, "fields": [{"id": 5, "type": "text", "label": "Opt in"}]},
		"entry": {"id": 10, "values": {"5": "no"}}
	}`
	rec := submit(t, h, body)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []int64{9}, proc.processed)

	var resp submissionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Processed)
	assert.Equal(t, 0, resp.Skipped)
}

func TestSubmitConditionMet(t *testing.T) {
	src := &stubFeedSource{feeds: []feed.Feed{
		{ID: 7, FormID: 3, ListID: "a", Condition: &rules.Rule{
			Enabled:  true,
			Decision: rules.DecisionIf,
			FieldRef: "5",
			Operator: rules.OpIs,
			Value:    "yes",
		}},
	}}
	proc := &stubProcessor{}
	h := NewSubmissionHandler(src, proc)

	body := `{
		"form": {"id": 3, "fields": [{"id": 5, "type": "text", "label": "Opt in"}]},
		"entry": {"id": 10, "values": {"5": "YES"}}
	}`
	rec := submit(t, h, body)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []int64{7}, proc.processed)
}
