package portal

import (
	"sort"
	"time"
)

// FeedKind identifies the workflow a feed entry comes from.
type FeedKind string

const (
	FeedOnboarding FeedKind = "onboarding"
	FeedHRRecord   FeedKind = "hr_record"
)

// FeedEntry is one row of the merged admin submission feed.
type FeedEntry struct {
	Kind      FeedKind   `json:"kind"`
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	UserName  string     `json:"userName"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	FileRef   string     `json:"fileRef,omitempty"`
	Filename  string     `json:"filename,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func (e FeedEntry) at() time.Time {
	if e.Timestamp == nil {
		return time.Unix(0, 0)
	}
	return *e.Timestamp
}

// SortFeed orders entries newest first; entries without a timestamp sort as
// the Unix epoch.
func SortFeed(entries []FeedEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].at().After(entries[j].at())
	})
}
