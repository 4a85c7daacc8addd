package dto

import "github.com/quillhub/moderation-api/internal/models"

// SubmitArticleRequest is the intake payload for a long-form article.
type SubmitArticleRequest struct {
	Title  string   `json:"title" binding:"required"`
	Body   string   `json:"body" binding:"required"`
	Assets []string `json:"assets"`
}

// SubmitPodcastRequest is the intake payload for an audio podcast.
type SubmitPodcastRequest struct {
	Title    string   `json:"title" binding:"required"`
	AudioURL string   `json:"audio_url" binding:"required"`
	CoverURL string   `json:"cover_url"`
	Assets   []string `json:"assets"`
}

// SubmitEditRequestRequest proposes changes to an existing article.
type SubmitEditRequestRequest struct {
	ArticleID  string   `json:"article_id" binding:"required"`
	Title      string   `json:"title" binding:"required"`
	Body       string   `json:"body" binding:"required"`
	EditReason string   `json:"edit_reason" binding:"required"`
	Assets     []string `json:"assets"`
}

// ContentQuery filters moderation listings.
type ContentQuery struct {
	Kind   models.ContentKind
	Status []models.ReviewStatus
	Limit  int
	Offset int
}
