package service

import (
	"fmt"

	"github.com/quillhub/moderation-api/internal/models"
	appErrors "github.com/quillhub/moderation-api/pkg/errors"
)

// ReviewAction enumerates the moderation transitions.
type ReviewAction string

const (
	ActionClaim          ReviewAction = "CLAIM"
	ActionSubmitFeedback ReviewAction = "SUBMIT_FEEDBACK"
	ActionAuthorRevise   ReviewAction = "AUTHOR_REVISE"
	ActionPublish        ReviewAction = "PUBLISH"
	ActionDiscard        ReviewAction = "DISCARD"
	ActionUnassign       ReviewAction = "UNASSIGN"
)

// Actor identifies who is driving a transition. System is set for
// sweep-triggered transitions, which bypass ownership guards.
type Actor struct {
	ID     string
	Role   models.UserRole
	System bool
}

// EffectType labels a side effect owed after a committed transition.
type EffectType string

const (
	EffectNotify     EffectType = "NOTIFY"
	EffectEmail      EffectType = "EMAIL"
	EffectAssets     EffectType = "DELETE_ASSETS"
	EffectMirror     EffectType = "DELETE_MIRROR"
	EffectContribute EffectType = "CONTRIBUTE"
)

// Email template names consumed by the mailer port.
const (
	TemplateFeedback = "review_feedback"
	TemplatePublish  = "content_published"
	TemplateDiscard  = "content_discarded"
)

// Effect describes one side effect. Effects are executed by the caller after
// the atomic write succeeds; their failure never rolls the transition back.
type Effect struct {
	Type      EffectType
	UserID    string
	Title     string
	Body      string
	Template  string
	AssetKeys []string
	MirrorID  string
	Kind      models.ContributionKind
	Metadata  map[string]string
}

// Payload carries action-specific inputs into a transition decision.
type Payload struct {
	FeedbackText  string
	DiscardReason string
	AuthorBlocked bool
}

// Transition is the decided outcome of a review action. FromStatus records
// every status the decision is valid from, so the store-level conditional
// update can re-check exactly what the machine assumed.
type Transition struct {
	FromStatus    []models.ReviewStatus
	ToStatus      models.ReviewStatus
	SetReviewer   *string
	ClearReviewer bool
	DiscardReason *string
	SetPublished  bool
	Effects       []Effect
}

// Decide is the pure review state machine. It inspects an in-memory snapshot
// of the item and either returns the transition to apply plus the side
// effects owed, or a typed rejection. It performs no I/O.
func Decide(item *models.ContentItem, action ReviewAction, actor Actor, payload Payload) (*Transition, error) {
	if item == nil {
		return nil, appErrors.ErrNotFound
	}
	if item.IsRemoved {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "content has been removed")
	}
	if item.Status.Terminal() {
		return nil, appErrors.ErrAlreadyTerminal
	}

	switch action {
	case ActionClaim:
		return decideClaim(item, actor, payload)
	case ActionSubmitFeedback:
		return decideFeedback(item, actor, payload)
	case ActionAuthorRevise:
		return decideRevise(item, actor)
	case ActionPublish:
		return decidePublish(item, actor)
	case ActionDiscard:
		return decideDiscard(item, actor, payload)
	case ActionUnassign:
		return decideUnassign(item, actor)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown review action: %s", action))
	}
}

func decideClaim(item *models.ContentItem, actor Actor, payload Payload) (*Transition, error) {
	if !actor.Role.IsModerator() {
		return nil, appErrors.ErrForbidden
	}
	if payload.AuthorBlocked {
		return nil, appErrors.ErrAuthorBlocked
	}
	if item.Status != models.StatusUnassigned {
		return nil, appErrors.Clone(appErrors.ErrConflict, "content is already assigned")
	}
	reviewer := actor.ID
	return &Transition{
		FromStatus:  []models.ReviewStatus{models.StatusUnassigned},
		ToStatus:    models.StatusInProgress,
		SetReviewer: &reviewer,
		Effects: []Effect{{
			Type:   EffectNotify,
			UserID: item.AuthorID,
			Title:  "Your submission is under review",
			Body:   fmt.Sprintf("A moderator started reviewing %q.", item.Title),
		}},
	}, nil
}

func decideFeedback(item *models.ContentItem, actor Actor, payload Payload) (*Transition, error) {
	if item.Kind == models.KindPodcast {
		// Podcasts have no author revision loop.
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "podcasts do not support review feedback")
	}
	if !item.OwnedBy(actor.ID) {
		return nil, appErrors.ErrNotOwner
	}
	if item.Status != models.StatusInProgress && item.Status != models.StatusReviewPending {
		return nil, appErrors.ErrInvalidState
	}
	return &Transition{
		FromStatus: []models.ReviewStatus{models.StatusInProgress, models.StatusReviewPending},
		ToStatus:   models.StatusAwaitingUser,
		Effects: []Effect{
			{
				Type:   EffectNotify,
				UserID: item.AuthorID,
				Title:  "Review feedback on your submission",
				Body:   fmt.Sprintf("A moderator left feedback on %q.", item.Title),
			},
			{
				Type:     EffectEmail,
				UserID:   item.AuthorID,
				Template: TemplateFeedback,
				Metadata: map[string]string{"content_id": item.ID, "title": item.Title, "feedback": payload.FeedbackText},
			},
		},
	}, nil
}

func decideRevise(item *models.ContentItem, actor Actor) (*Transition, error) {
	if item.Kind == models.KindPodcast {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "podcasts do not support author revision")
	}
	if actor.ID != item.AuthorID {
		return nil, appErrors.ErrForbidden
	}
	switch item.Status {
	case models.StatusAwaitingUser:
		// Claimed item: hand it back to the same reviewer.
		t := &Transition{
			FromStatus: []models.ReviewStatus{models.StatusAwaitingUser},
			ToStatus:   models.StatusReviewPending,
		}
		if item.ReviewerID != nil {
			t.Effects = append(t.Effects, Effect{
				Type:   EffectNotify,
				UserID: *item.ReviewerID,
				Title:  "Author updated a submission",
				Body:   fmt.Sprintf("The author revised %q; it is ready for another look.", item.Title),
			})
		}
		return t, nil
	case models.StatusUnassigned:
		// Never claimed: stays unassigned, resubmission restarts the sweep clock.
		return &Transition{
			FromStatus: []models.ReviewStatus{models.StatusUnassigned},
			ToStatus:   models.StatusUnassigned,
		}, nil
	default:
		return nil, appErrors.ErrInvalidState
	}
}

func decidePublish(item *models.ContentItem, actor Actor) (*Transition, error) {
	if !item.OwnedBy(actor.ID) {
		return nil, appErrors.ErrNotOwner
	}
	if item.Status != models.StatusInProgress && item.Status != models.StatusReviewPending {
		return nil, appErrors.ErrInvalidState
	}
	return &Transition{
		FromStatus:   []models.ReviewStatus{models.StatusInProgress, models.StatusReviewPending},
		ToStatus:     models.StatusPublished,
		SetPublished: true,
		Effects: []Effect{
			{Type: EffectContribute, UserID: item.AuthorID, Kind: contributionKindFor(item.Kind)},
			{Type: EffectContribute, UserID: mustReviewer(item), Kind: models.ContributionReview},
			{
				Type:   EffectNotify,
				UserID: item.AuthorID,
				Title:  "Your submission is live",
				Body:   fmt.Sprintf("%q has been published.", item.Title),
			},
			{
				Type:     EffectEmail,
				UserID:   item.AuthorID,
				Template: TemplatePublish,
				Metadata: map[string]string{"content_id": item.ID, "title": item.Title},
			},
		},
	}, nil
}

func decideDiscard(item *models.ContentItem, actor Actor, payload Payload) (*Transition, error) {
	if !actor.System && !actor.Role.IsModerator() {
		return nil, appErrors.ErrForbidden
	}
	if item.ReviewerID != nil && !actor.System && actor.Role != models.RoleAdmin && !item.OwnedBy(actor.ID) {
		return nil, appErrors.ErrNotOwner
	}
	reason := payload.DiscardReason
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "discard reason is required")
	}
	t := &Transition{
		FromStatus: []models.ReviewStatus{
			models.StatusUnassigned, models.StatusInProgress,
			models.StatusReviewPending, models.StatusAwaitingUser,
		},
		ToStatus:      models.StatusDiscarded,
		ClearReviewer: true,
		DiscardReason: &reason,
		Effects: []Effect{
			{
				Type:   EffectNotify,
				UserID: item.AuthorID,
				Title:  "Your submission was discarded",
				Body:   fmt.Sprintf("%q was discarded: %s", item.Title, reason),
			},
			{
				Type:     EffectEmail,
				UserID:   item.AuthorID,
				Template: TemplateDiscard,
				Metadata: map[string]string{"content_id": item.ID, "title": item.Title, "reason": reason},
			},
		},
	}
	if len(item.Assets) > 0 {
		t.Effects = append([]Effect{{Type: EffectAssets, AssetKeys: append([]string(nil), item.Assets...)}}, t.Effects...)
	}
	if item.MirrorID != nil && *item.MirrorID != "" {
		t.Effects = append(t.Effects, Effect{Type: EffectMirror, MirrorID: *item.MirrorID})
	}
	return t, nil
}

func decideUnassign(item *models.ContentItem, actor Actor) (*Transition, error) {
	if item.Status != models.StatusInProgress && item.Status != models.StatusAwaitingUser {
		return nil, appErrors.ErrInvalidState
	}
	if !actor.System && actor.Role != models.RoleAdmin && !item.OwnedBy(actor.ID) {
		return nil, appErrors.ErrNotOwner
	}
	return &Transition{
		FromStatus:    []models.ReviewStatus{models.StatusInProgress, models.StatusAwaitingUser},
		ToStatus:      models.StatusUnassigned,
		ClearReviewer: true,
		Effects: []Effect{{
			Type:   EffectNotify,
			UserID: item.AuthorID,
			Title:  "Moderator unassigned",
			Body:   fmt.Sprintf("The moderator reviewing %q stepped away; it is back in the queue.", item.Title),
		}},
	}, nil
}

func contributionKindFor(kind models.ContentKind) models.ContributionKind {
	switch kind {
	case models.KindPodcast:
		return models.ContributionPodcast
	case models.KindEditRequest:
		return models.ContributionEdit
	default:
		return models.ContributionWrite
	}
}

func mustReviewer(item *models.ContentItem) string {
	if item.ReviewerID == nil {
		return ""
	}
	return *item.ReviewerID
}
