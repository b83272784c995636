package storage

import (
	"sync"

	"audiencesync/internal/feed"
)

// FeedCache holds the active feed configurations in memory, keyed by form.
// Update replaces the whole set; the listener calls it on settings changes.
type FeedCache struct {
	mu     sync.RWMutex
	byForm map[int64][]feed.Feed
}

func NewFeedCache() *FeedCache {
	return &FeedCache{byForm: map[int64][]feed.Feed{}}
}

// FeedsForForm returns a copy of the active feeds configured for a form.
func (c *FeedCache) FeedsForForm(formID int64) []feed.Feed {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]feed.Feed(nil), c.byForm[formID]...)
}

// Update replaces the cached feed set wholesale.
func (c *FeedCache) Update(feeds []feed.Feed) {
	byForm := map[int64][]feed.Feed{}
	for _, f := range feeds {
		byForm[f.FormID] = append(byForm[f.FormID], f)
	}
	c.mu.Lock()
	c.byForm = byForm
	c.mu.Unlock()
}
