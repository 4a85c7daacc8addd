package models

import "time"

// Comment is a single entry in a review feedback thread. IsReview marks
// moderator feedback, IsNote marks an author rebuttal note; top-level review
// feedback has no parent.
type Comment struct {
	ID              string    `db:"id" json:"id"`
	AuthorID        string    `db:"author_id" json:"author_id"`
	TargetContentID string    `db:"target_content_id" json:"target_content_id"`
	ParentCommentID *string   `db:"parent_comment_id" json:"parent_comment_id,omitempty"`
	Content         string    `db:"content" json:"content"`
	IsReview        bool      `db:"is_review" json:"is_review"`
	IsNote          bool      `db:"is_note" json:"is_note"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
