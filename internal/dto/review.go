package dto

// FeedbackRequest carries moderator feedback sent to the author.
type FeedbackRequest struct {
	Text string `json:"text" binding:"required"`
}

// ReviseRequest carries the author's updated content for a claimed item.
type ReviseRequest struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Note   string   `json:"note"`
	Assets []string `json:"assets"`
}

// DiscardRequest carries the moderator's discard reason.
type DiscardRequest struct {
	Reason string `json:"reason" binding:"required"`
}
