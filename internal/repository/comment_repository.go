package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/quillhub/moderation-api/internal/models"
)

// CommentRepository persists review feedback threads.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository constructs the repository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts a comment. Callers persist the comment before flipping the
// item status so a crash in between leaves a retryable state.
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = now
	}
	comment.UpdatedAt = comment.CreatedAt
	const query = `INSERT INTO comments
	(id, author_id, target_content_id, parent_comment_id, content, is_review, is_note, created_at, updated_at)
	VALUES (:id, :author_id, :target_content_id, :parent_comment_id, :content, :is_review, :is_note, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// ListByContent returns the feedback thread for an item, oldest first.
func (r *CommentRepository) ListByContent(ctx context.Context, contentID string) ([]models.Comment, error) {
	const query = `SELECT id, author_id, target_content_id, parent_comment_id, content,
       is_review, is_note, created_at, updated_at
	FROM comments WHERE target_content_id = $1 ORDER BY created_at ASC`
	var comments []models.Comment
	if err := r.db.SelectContext(ctx, &comments, query, contentID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}
