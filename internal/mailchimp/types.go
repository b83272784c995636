package mailchimp

// Member status values reported by the audience API.
const (
	StatusSubscribed   = "subscribed"
	StatusUnsubscribed = "unsubscribed"
	StatusPending      = "pending"
	StatusCleaned      = "cleaned"
)

// Account describes the authenticated account.
type Account struct {
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name"`
	Email       string `json:"email"`
}

// List is an audience a feed can target.
type List struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	MarketingPermissions bool   `json:"marketing_permissions"`
	Stats                struct {
		MemberCount int `json:"member_count"`
	} `json:"stats"`
}

// InterestCategory groups boolean interests for segmentation.
type InterestCategory struct {
	ID     string `json:"id"`
	ListID string `json:"list_id"`
	Title  string `json:"title"`
	Type   string `json:"type"`
}

// Interest is a single opt-in within an interest category.
type Interest struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}

// MergeField is a named, typed contact attribute defined on the audience.
type MergeField struct {
	Tag     string `json:"tag"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Options struct {
		DateFormat string `json:"date_format"`
	} `json:"options"`
}

// Tag is a contact tag. Status is "active" or "inactive" on writes.
type Tag struct {
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// MarketingPermission is a per-contact consent flag.
type MarketingPermission struct {
	ID      string `json:"marketing_permission_id"`
	Text    string `json:"text,omitempty"`
	Enabled bool   `json:"enabled"`
}

// Member is the remote contact record.
type Member struct {
	ID                   string                `json:"id"`
	EmailAddress         string                `json:"email_address"`
	Status               string                `json:"status"`
	MergeFields          map[string]any        `json:"merge_fields"`
	Interests            map[string]bool       `json:"interests"`
	Tags                 []Tag                 `json:"tags"`
	MarketingPermissions []MarketingPermission `json:"marketing_permissions"`
	IPSignup             string                `json:"ip_signup"`
}

// TagNames returns the names of the member's current tags.
func (m *Member) TagNames() []string {
	names := make([]string, 0, len(m.Tags))
	for _, t := range m.Tags {
		names = append(names, t.Name)
	}
	return names
}

// Subscription is the upsert payload for a list member. Empty sections are
// omitted so a partial write never clears remote state it did not compute.
type Subscription struct {
	EmailAddress         string                `json:"email_address"`
	Status               string                `json:"status,omitempty"`
	EmailType            string                `json:"email_type,omitempty"`
	MergeFields          map[string]string     `json:"merge_fields,omitempty"`
	Interests            map[string]bool       `json:"interests,omitempty"`
	MarketingPermissions []MarketingPermission `json:"marketing_permissions,omitempty"`
	IPSignup             string                `json:"ip_signup,omitempty"`
	VIP                  bool                  `json:"vip,omitempty"`

	// Tags and Note travel with the payload so callers can rewrite them
	// alongside the member fields, but they go to their own endpoints and
	// are never part of the member upsert body.
	Tags []string `json:"-"`
	Note string   `json:"-"`
}
