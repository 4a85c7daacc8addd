package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/quillhub/moderation-api/internal/models"
)

const contentColumns = `id, kind, title, body, audio_url, cover_url, article_id, edit_reason,
       author_id, status, reviewer_id, assigned_at, last_updated, published_at,
       is_removed, discard_reason, assets, mirror_id, created_at`

// ContentRepository persists reviewable content items. Every status change
// goes through a conditional update so concurrent transitions on the same
// item are serialised by the database, not by application reads.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository constructs the repository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// Create inserts a new content item in UNASSIGNED state.
func (r *ContentRepository) Create(ctx context.Context, item *models.ContentItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Status == "" {
		item.Status = models.StatusUnassigned
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.LastUpdated.IsZero() {
		item.LastUpdated = now
	}
	const query = `INSERT INTO content_items
	(id, kind, title, body, audio_url, cover_url, article_id, edit_reason, author_id,
	 status, reviewer_id, assigned_at, last_updated, published_at, is_removed,
	 discard_reason, assets, mirror_id, created_at)
	VALUES (:id, :kind, :title, :body, :audio_url, :cover_url, :article_id, :edit_reason, :author_id,
	 :status, :reviewer_id, :assigned_at, :last_updated, :published_at, :is_removed,
	 :discard_reason, :assets, :mirror_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create content item: %w", err)
	}
	return nil
}

// GetByID fetches an item by identifier. Removed items are still returned
// here; listing queries are the ones that hide them.
func (r *ContentRepository) GetByID(ctx context.Context, id string) (*models.ContentItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM content_items WHERE id = $1`, contentColumns)
	var item models.ContentItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns items matching the filter, newest activity first. Removed
// items never appear in moderation listings.
func (r *ContentRepository) List(ctx context.Context, filter models.ContentFilter) ([]models.ContentItem, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM content_items WHERE is_removed = FALSE", contentColumns))

	if filter.Kind != "" {
		args = append(args, filter.Kind)
		builder.WriteString(fmt.Sprintf(" AND kind = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		builder.WriteString(fmt.Sprintf(" AND status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		builder.WriteString(fmt.Sprintf(" AND author_id = $%d", len(args)))
	}
	if filter.ReviewerID != "" {
		args = append(args, filter.ReviewerID)
		builder.WriteString(fmt.Sprintf(" AND reviewer_id = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY last_updated DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var items []models.ContentItem
	if err := r.db.SelectContext(ctx, &items, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list content items: %w", err)
	}
	return items, nil
}

// ListStale returns non-removed items in the given statuses whose last
// activity is at or before the cutoff. Used by the sweep scheduler.
func (r *ContentRepository) ListStale(ctx context.Context, filter models.SweepFilter) ([]models.ContentItem, error) {
	if len(filter.Status) == 0 {
		return nil, nil
	}
	args := make([]interface{}, 0, len(filter.Status)+1)
	placeholders := make([]string, len(filter.Status))
	for i, status := range filter.Status {
		args = append(args, status)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	args = append(args, filter.UpdatedBefore)
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM content_items
	WHERE is_removed = FALSE AND status IN (%s) AND last_updated <= $%d
	ORDER BY last_updated ASC LIMIT %d`,
		contentColumns, strings.Join(placeholders, ","), len(args), limit)

	var items []models.ContentItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list stale content items: %w", err)
	}
	return items, nil
}

// Claim atomically assigns an UNASSIGNED item to a reviewer. The WHERE clause
// carries the exclusivity invariant: of two concurrent claims exactly one
// matches the row, the other sees zero rows affected and gets sql.ErrNoRows.
func (r *ContentRepository) Claim(ctx context.Context, id, reviewerID string, now time.Time) error {
	const query = `UPDATE content_items
	SET status = $3, reviewer_id = $2, assigned_at = $4, last_updated = $4
	WHERE id = $1 AND status = $5 AND is_removed = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, reviewerID, models.StatusInProgress, now, models.StatusUnassigned)
	if err != nil {
		return fmt.Errorf("claim content item: %w", err)
	}
	return requireRowAffected(result)
}

// TransitionParams groups the columns a review transition may touch.
type TransitionParams struct {
	ID            string
	FromStatus    []models.ReviewStatus
	ToStatus      models.ReviewStatus
	ReviewerID    *string
	ClearReviewer bool
	DiscardReason *string
	PublishedAt   *time.Time
	Now           time.Time
}

// buildTransitionQuery assembles the guarded status update. The query only
// matches when the row still holds one of the expected from-statuses, which
// is what keeps terminal states terminal under concurrent writers.
func buildTransitionQuery(params TransitionParams) (string, map[string]interface{}, error) {
	if len(params.FromStatus) == 0 {
		return "", nil, fmt.Errorf("transition requires expected from-status")
	}
	set := []string{"status = :to_status", "last_updated = :now"}
	if params.ClearReviewer {
		set = append(set, "reviewer_id = NULL", "assigned_at = NULL")
	} else if params.ReviewerID != nil {
		set = append(set, "reviewer_id = :reviewer_id")
	}
	if params.DiscardReason != nil {
		set = append(set, "discard_reason = :discard_reason")
	}
	if params.PublishedAt != nil {
		set = append(set, "published_at = :published_at")
	}

	from := make([]string, len(params.FromStatus))
	for i, status := range params.FromStatus {
		from[i] = fmt.Sprintf("'%s'", status)
	}
	query := fmt.Sprintf(`UPDATE content_items SET %s
	WHERE id = :id AND status IN (%s) AND is_removed = FALSE`,
		strings.Join(set, ", "), strings.Join(from, ","))

	args := map[string]interface{}{
		"id":             params.ID,
		"to_status":      params.ToStatus,
		"now":            params.Now,
		"reviewer_id":    params.ReviewerID,
		"discard_reason": params.DiscardReason,
		"published_at":   params.PublishedAt,
	}
	return query, args, nil
}

// UpdateTransition applies a guarded status change.
func (r *ContentRepository) UpdateTransition(ctx context.Context, params TransitionParams) error {
	query, args, err := buildTransitionQuery(params)
	if err != nil {
		return err
	}
	result, err := r.db.NamedExecContext(ctx, query, args)
	if err != nil {
		return fmt.Errorf("transition content item: %w", err)
	}
	return requireRowAffected(result)
}

// UpdateRevision stores the author's revised fields alongside the status flip
// produced by an AuthorRevise transition.
func (r *ContentRepository) UpdateRevision(ctx context.Context, id string, title, body *string, assets []string, now time.Time) error {
	set := []string{"last_updated = $2"}
	args := []interface{}{id, now}
	if title != nil {
		args = append(args, *title)
		set = append(set, fmt.Sprintf("title = $%d", len(args)))
	}
	if body != nil {
		args = append(args, *body)
		set = append(set, fmt.Sprintf("body = $%d", len(args)))
	}
	if assets != nil {
		args = append(args, pq.StringArray(assets))
		set = append(set, fmt.Sprintf("assets = $%d", len(args)))
	}
	query := fmt.Sprintf("UPDATE content_items SET %s WHERE id = $1 AND is_removed = FALSE", strings.Join(set, ", "))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update content revision: %w", err)
	}
	return requireRowAffected(result)
}

// PublishEdit merges an approved edit request into its target article and
// closes the request, both inside one transaction. If either row no longer
// matches its guard the whole publish rolls back and the caller sees
// sql.ErrNoRows, so a transition conflict cannot leave the article edited
// while the request stays open.
func (r *ContentRepository) PublishEdit(ctx context.Context, params TransitionParams, articleID, title, body string) error {
	query, args, err := buildTransitionQuery(params)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin publish edit: %w", err)
	}
	defer tx.Rollback()

	const articleQuery = `UPDATE content_items SET title = $2, body = $3, last_updated = $4
	WHERE id = $1 AND kind = $5 AND is_removed = FALSE`
	result, err := tx.ExecContext(ctx, articleQuery, articleID, title, body, params.Now, models.KindArticle)
	if err != nil {
		return fmt.Errorf("apply edit to article: %w", err)
	}
	if err := requireRowAffected(result); err != nil {
		return err
	}

	result, err = tx.NamedExecContext(ctx, query, args)
	if err != nil {
		return fmt.Errorf("transition edit request: %w", err)
	}
	if err := requireRowAffected(result); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit publish edit: %w", err)
	}
	return nil
}

// CountOpenEditRequests returns the number of non-terminal edit requests a
// user currently has. Best effort: the count and the subsequent insert are
// not one transaction.
func (r *ContentRepository) CountOpenEditRequests(ctx context.Context, authorID string) (int, error) {
	const query = `SELECT COUNT(*) FROM content_items
	WHERE kind = $1 AND author_id = $2 AND is_removed = FALSE AND status NOT IN ($3, $4)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, models.KindEditRequest, authorID,
		models.StatusPublished, models.StatusDiscarded); err != nil {
		return 0, fmt.Errorf("count open edit requests: %w", err)
	}
	return count, nil
}

func requireRowAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
