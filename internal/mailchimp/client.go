package mailchimp

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultDataCenter = "us1"

// ErrNoAPIKey is returned when a request is attempted without credentials.
var ErrNoAPIKey = errors.New("mailchimp: api key is not configured")

// FieldError is one structured validation error from a 4xx response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError carries the HTTP status and any per-field validation errors
// the remote API returned.
type APIError struct {
	StatusCode int          `json:"status"`
	Title      string       `json:"title"`
	Detail     string       `json:"detail"`
	Errors     []FieldError `json:"errors"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%d): %s", e.Title, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s (%d)", e.Title, e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the remote API. A missing
// member is the signal to create rather than update, never a failure.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Doer issues HTTP requests; satisfied by *http.Client.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to the audience API for one account. Construct one per
// processing run and pass it in; there is no shared global instance.
type Client struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	http    Doer
}

type Option func(*Client)

// WithBaseURL overrides the data-center-derived endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.http = d }
}

// WithTimeout bounds each request when the default HTTP client is used.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New builds a client for the given API key. The key format encodes the
// regional data center as a suffix ("<secret>-us20").
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = fmt.Sprintf("https://%s.api.mailchimp.com/3.0", dataCenter(apiKey))
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c
}

func dataCenter(apiKey string) string {
	parts := strings.Split(apiKey, "-")
	if len(parts) < 2 || parts[1] == "" {
		return defaultDataCenter
	}
	return parts[1]
}

// SubscriberHash is the member identifier: md5 of the lower-cased email.
func SubscriberHash(email string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(strings.ToLower(email))))
}

// AccountDetails verifies the API key by fetching the account root.
func (c *Client) AccountDetails(ctx context.Context) (*Account, error) {
	var account Account
	if err := c.do(ctx, http.MethodGet, "", nil, nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// GetLists returns up to count audiences on the account.
func (c *Client) GetLists(ctx context.Context, count int) ([]List, error) {
	var out struct {
		Lists []List `json:"lists"`
	}
	q := url.Values{"count": {strconv.Itoa(count)}}
	if err := c.do(ctx, http.MethodGet, "lists", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Lists, nil
}

// GetList returns a single audience.
func (c *Client) GetList(ctx context.Context, listID string) (*List, error) {
	var list List
	if err := c.do(ctx, http.MethodGet, "lists/"+listID, nil, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetListInterestCategories returns all interest categories for an audience.
func (c *Client) GetListInterestCategories(ctx context.Context, listID string) ([]InterestCategory, error) {
	var out struct {
		Categories []InterestCategory `json:"categories"`
	}
	q := url.Values{"count": {"9999"}}
	if err := c.do(ctx, http.MethodGet, "lists/"+listID+"/interest-categories", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// GetInterestCategoryInterests returns all interests within a category.
func (c *Client) GetInterestCategoryInterests(ctx context.Context, listID, categoryID string) ([]Interest, error) {
	var out struct {
		Interests []Interest `json:"interests"`
	}
	q := url.Values{"count": {"9999"}}
	path := "lists/" + listID + "/interest-categories/" + categoryID + "/interests"
	if err := c.do(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return out.Interests, nil
}

// GetListMergeFields returns all merge field definitions for an audience.
func (c *Client) GetListMergeFields(ctx context.Context, listID string) ([]MergeField, error) {
	var out struct {
		MergeFields []MergeField `json:"merge_fields"`
	}
	q := url.Values{"count": {"9999"}}
	if err := c.do(ctx, http.MethodGet, "lists/"+listID+"/merge-fields", q, nil, &out); err != nil {
		return nil, err
	}
	return out.MergeFields, nil
}

// GetListMember fetches a member by email. A 404 surfaces as *APIError;
// callers check it with IsNotFound.
func (c *Client) GetListMember(ctx context.Context, listID, email string) (*Member, error) {
	var member Member
	path := "lists/" + listID + "/members/" + SubscriberHash(email)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// GetListMembers returns up to count members of an audience.
func (c *Client) GetListMembers(ctx context.Context, listID string, count int) ([]Member, error) {
	var out struct {
		Members []Member `json:"members"`
	}
	q := url.Values{"count": {strconv.Itoa(count)}}
	if err := c.do(ctx, http.MethodGet, "lists/"+listID+"/members", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

// UpdateListMember upserts a member (create-if-absent-else-update, keyed by
// the subscriber hash).
func (c *Client) UpdateListMember(ctx context.Context, listID, email string, sub *Subscription) (*Member, error) {
	var member Member
	path := "lists/" + listID + "/members/" + SubscriberHash(email)
	if err := c.do(ctx, http.MethodPut, path, nil, sub, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// DeleteListMember removes a member from an audience.
func (c *Client) DeleteListMember(ctx context.Context, listID, email string) error {
	path := "lists/" + listID + "/members/" + SubscriberHash(email)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// UpdateMemberTags applies the given tag set to a member.
func (c *Client) UpdateMemberTags(ctx context.Context, listID, email string, tags []Tag) error {
	body := struct {
		Tags []Tag `json:"tags"`
	}{Tags: tags}
	path := "lists/" + listID + "/members/" + SubscriberHash(email) + "/tags"
	return c.do(ctx, http.MethodPost, path, nil, body, nil)
}

// AddMemberNote attaches a free-text note to a member.
func (c *Client) AddMemberNote(ctx context.Context, listID, email, note string) error {
	body := struct {
		Note string `json:"note"`
	}{Note: note}
	path := "lists/" + listID + "/members/" + SubscriberHash(email) + "/notes"
	return c.do(ctx, http.MethodPost, path, nil, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}

	reqURL := c.baseURL + "/" + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(":"+c.apiKey)))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Title:      http.StatusText(resp.StatusCode),
		}
		_ = json.Unmarshal(data, apiErr)
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
