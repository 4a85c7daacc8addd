package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhub/moderation-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestContentGetByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "kind", "title", "body", "audio_url", "cover_url", "article_id", "edit_reason",
		"author_id", "status", "reviewer_id", "assigned_at", "last_updated", "published_at",
		"is_removed", "discard_reason", "assets", "mirror_id", "created_at",
	}).AddRow("c1", string(models.KindArticle), "Title", "Body", nil, nil, nil, nil,
		"author-1", string(models.StatusUnassigned), nil, nil, now, nil,
		false, nil, "{img/cover.png}", nil, now)

	mock.ExpectQuery("(?s)SELECT .+ FROM content_items WHERE id = \\$1").
		WithArgs("c1").
		WillReturnRows(rows)

	item, err := repo.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, models.KindArticle, item.Kind)
	assert.Equal(t, models.StatusUnassigned, item.Status)
	assert.Equal(t, []string{"img/cover.png"}, []string(item.Assets))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentClaimWinner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	now := time.Now()
	mock.ExpectExec("UPDATE content_items").
		WithArgs("c1", "mod-1", string(models.StatusInProgress), now, string(models.StatusUnassigned)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Claim(context.Background(), "c1", "mod-1", now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentClaimLoser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectExec("UPDATE content_items").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Claim(context.Background(), "c1", "mod-2", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentUpdateTransitionGuard(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	mock.ExpectExec("UPDATE content_items SET status = (.+) WHERE id = (.+) AND status IN").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateTransition(context.Background(), TransitionParams{
		ID:         "c1",
		FromStatus: []models.ReviewStatus{models.StatusInProgress, models.StatusReviewPending},
		ToStatus:   models.StatusAwaitingUser,
		Now:        time.Now(),
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentUpdateTransitionRequiresFromStatus(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	err := repo.UpdateTransition(context.Background(), TransitionParams{ID: "c1", ToStatus: models.StatusPublished})
	require.Error(t, err)
}

func TestContentPublishEditCommitsBothWrites(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE content_items SET title = (.+) WHERE id = (.+) AND kind = (.+)").
		WithArgs("article-9", "New title", "New body", now, string(models.KindArticle)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE content_items SET status = (.+) WHERE id = (.+) AND status IN").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.PublishEdit(context.Background(), TransitionParams{
		ID:          "edit-1",
		FromStatus:  []models.ReviewStatus{models.StatusInProgress},
		ToStatus:    models.StatusPublished,
		PublishedAt: &now,
		Now:         now,
	}, "article-9", "New title", "New body")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentPublishEditRollsBackOnTransitionConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE content_items SET title = (.+) WHERE id = (.+) AND kind = (.+)").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE content_items SET status = (.+) WHERE id = (.+) AND status IN").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.PublishEdit(context.Background(), TransitionParams{
		ID:         "edit-1",
		FromStatus: []models.ReviewStatus{models.StatusInProgress},
		ToStatus:   models.StatusPublished,
		Now:        now,
	}, "article-9", "New title", "New body")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentCountOpenEditRequests(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	rows := sqlmock.NewRows([]string{"count"}).AddRow(2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM content_items")).
		WithArgs(string(models.KindEditRequest), "author-1", string(models.StatusPublished), string(models.StatusDiscarded)).
		WillReturnRows(rows)

	count, err := repo.CountOpenEditRequests(context.Background(), "author-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentListStale(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContentRepository(db)

	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "kind", "title", "body", "audio_url", "cover_url", "article_id", "edit_reason",
		"author_id", "status", "reviewer_id", "assigned_at", "last_updated", "published_at",
		"is_removed", "discard_reason", "assets", "mirror_id", "created_at",
	}).AddRow("c1", string(models.KindArticle), "Stale", "Body", nil, nil, nil, nil,
		"author-1", string(models.StatusInProgress), "mod-1", now, now, nil,
		false, nil, "{}", nil, now)

	mock.ExpectQuery("(?s)SELECT .+ FROM content_items\\s+WHERE is_removed = FALSE AND status IN .+ AND last_updated <= \\$2").
		WithArgs(string(models.StatusInProgress), cutoff).
		WillReturnRows(rows)

	items, err := repo.ListStale(context.Background(), models.SweepFilter{
		Status:        []models.ReviewStatus{models.StatusInProgress},
		UpdatedBefore: cutoff,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "c1", items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
