package models

import (
	"time"

	"github.com/lib/pq"
)

// ContentKind distinguishes the three reviewable content types.
type ContentKind string

const (
	KindArticle     ContentKind = "ARTICLE"
	KindPodcast     ContentKind = "PODCAST"
	KindEditRequest ContentKind = "EDIT_REQUEST"
)

// ReviewStatus captures the moderation lifecycle of a content item.
type ReviewStatus string

const (
	StatusUnassigned    ReviewStatus = "UNASSIGNED"
	StatusInProgress    ReviewStatus = "IN_PROGRESS"
	StatusReviewPending ReviewStatus = "REVIEW_PENDING"
	StatusAwaitingUser  ReviewStatus = "AWAITING_USER"
	StatusPublished     ReviewStatus = "PUBLISHED"
	StatusDiscarded     ReviewStatus = "DISCARDED"
)

// Terminal reports whether no further transition is permitted.
func (s ReviewStatus) Terminal() bool {
	return s == StatusPublished || s == StatusDiscarded
}

// Open reports whether the item still counts against submission quotas.
func (s ReviewStatus) Open() bool {
	return !s.Terminal()
}

// ContentItem is the shared shape of articles, podcasts and edit requests.
// All three kinds live in the content_items table behind a kind discriminator;
// kind-specific columns are nullable.
type ContentItem struct {
	ID            string         `db:"id" json:"id"`
	Kind          ContentKind    `db:"kind" json:"kind"`
	Title         string         `db:"title" json:"title"`
	Body          *string        `db:"body" json:"body,omitempty"`
	AudioURL      *string        `db:"audio_url" json:"audio_url,omitempty"`
	CoverURL      *string        `db:"cover_url" json:"cover_url,omitempty"`
	ArticleID     *string        `db:"article_id" json:"article_id,omitempty"`
	EditReason    *string        `db:"edit_reason" json:"edit_reason,omitempty"`
	AuthorID      string         `db:"author_id" json:"author_id"`
	Status        ReviewStatus   `db:"status" json:"status"`
	ReviewerID    *string        `db:"reviewer_id" json:"reviewer_id,omitempty"`
	AssignedAt    *time.Time     `db:"assigned_at" json:"assigned_at,omitempty"`
	LastUpdated   time.Time      `db:"last_updated" json:"last_updated"`
	PublishedAt   *time.Time     `db:"published_at" json:"published_at,omitempty"`
	IsRemoved     bool           `db:"is_removed" json:"is_removed"`
	DiscardReason *string        `db:"discard_reason" json:"discard_reason,omitempty"`
	Assets        pq.StringArray `db:"assets" json:"assets"`
	MirrorID      *string        `db:"mirror_id" json:"mirror_id,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// OwnedBy reports whether the item is currently assigned to the reviewer.
func (c *ContentItem) OwnedBy(reviewerID string) bool {
	return c.ReviewerID != nil && *c.ReviewerID == reviewerID
}

// ContentFilter constrains moderation listings. Removed items are always
// excluded regardless of the status filter.
type ContentFilter struct {
	Kind       ContentKind
	Status     []ReviewStatus
	AuthorID   string
	ReviewerID string
	Limit      int
	Offset     int
}

// SweepFilter selects items by age and status for scheduled sweeps.
type SweepFilter struct {
	Status        []ReviewStatus
	UpdatedBefore time.Time
	Limit         int
}
