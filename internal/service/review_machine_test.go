package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhub/moderation-api/internal/models"
	appErrors "github.com/quillhub/moderation-api/pkg/errors"
)

func reviewItem(kind models.ContentKind, status models.ReviewStatus, reviewerID string) *models.ContentItem {
	item := &models.ContentItem{
		ID:       "content-1",
		Kind:     kind,
		Title:    "A title",
		AuthorID: "author-1",
		Status:   status,
	}
	if reviewerID != "" {
		item.ReviewerID = &reviewerID
	}
	return item
}

var (
	moderator = Actor{ID: "mod-1", Role: models.RoleModerator}
	otherMod  = Actor{ID: "mod-2", Role: models.RoleModerator}
	admin     = Actor{ID: "admin-1", Role: models.RoleAdmin}
	author    = Actor{ID: "author-1", Role: models.RoleUser}
)

func TestDecideTransitionTable(t *testing.T) {
	cases := []struct {
		name     string
		item     *models.ContentItem
		action   ReviewAction
		actor    Actor
		payload  Payload
		wantTo   models.ReviewStatus
		wantCode string
	}{
		{
			name:   "claim unassigned article",
			item:   reviewItem(models.KindArticle, models.StatusUnassigned, ""),
			action: ActionClaim,
			actor:  moderator,
			wantTo: models.StatusInProgress,
		},
		{
			name:     "claim already assigned",
			item:     reviewItem(models.KindArticle, models.StatusInProgress, "mod-1"),
			action:   ActionClaim,
			actor:    otherMod,
			wantCode: appErrors.ErrConflict.Code,
		},
		{
			name:     "claim by regular user",
			item:     reviewItem(models.KindArticle, models.StatusUnassigned, ""),
			action:   ActionClaim,
			actor:    author,
			wantCode: appErrors.ErrForbidden.Code,
		},
		{
			name:     "claim blocked author",
			item:     reviewItem(models.KindArticle, models.StatusUnassigned, ""),
			action:   ActionClaim,
			actor:    moderator,
			payload:  Payload{AuthorBlocked: true},
			wantCode: appErrors.ErrAuthorBlocked.Code,
		},
		{
			name:    "feedback in progress",
			item:    reviewItem(models.KindArticle, models.StatusInProgress, "mod-1"),
			action:  ActionSubmitFeedback,
			actor:   moderator,
			payload: Payload{FeedbackText: "needs work"},
			wantTo:  models.StatusAwaitingUser,
		},
		{
			name:    "feedback after revision",
			item:    reviewItem(models.KindArticle, models.StatusReviewPending, "mod-1"),
			action:  ActionSubmitFeedback,
			actor:   moderator,
			payload: Payload{FeedbackText: "closer now"},
			wantTo:  models.StatusAwaitingUser,
		},
		{
			name:     "feedback by non owner",
			item:     reviewItem(models.KindArticle, models.StatusInProgress, "mod-1"),
			action:   ActionSubmitFeedback,
			actor:    otherMod,
			wantCode: appErrors.ErrNotOwner.Code,
		},
		{
			name:     "feedback on podcast",
			item:     reviewItem(models.KindPodcast, models.StatusInProgress, "mod-1"),
			action:   ActionSubmitFeedback,
			actor:    moderator,
			wantCode: appErrors.ErrInvalidState.Code,
		},
		{
			name:   "author revises awaiting item",
			item:   reviewItem(models.KindArticle, models.StatusAwaitingUser, "mod-1"),
			action: ActionAuthorRevise,
			actor:  author,
			wantTo: models.StatusReviewPending,
		},
		{
			name:   "author revises unclaimed item",
			item:   reviewItem(models.KindArticle, models.StatusUnassigned, ""),
			action: ActionAuthorRevise,
			actor:  author,
			wantTo: models.StatusUnassigned,
		},
		{
			name:     "revision by stranger",
			item:     reviewItem(models.KindArticle, models.StatusAwaitingUser, "mod-1"),
			action:   ActionAuthorRevise,
			actor:    Actor{ID: "someone-else", Role: models.RoleUser},
			wantCode: appErrors.ErrForbidden.Code,
		},
		{
			name:     "revise on podcast",
			item:     reviewItem(models.KindPodcast, models.StatusAwaitingUser, "mod-1"),
			action:   ActionAuthorRevise,
			actor:    author,
			wantCode: appErrors.ErrInvalidState.Code,
		},
		{
			name:   "publish in progress",
			item:   reviewItem(models.KindArticle, models.StatusInProgress, "mod-1"),
			action: ActionPublish,
			actor:  moderator,
			wantTo: models.StatusPublished,
		},
		{
			name:   "publish after revision",
			item:   reviewItem(models.KindArticle, models.StatusReviewPending, "mod-1"),
			action: ActionPublish,
			actor:  moderator,
			wantTo: models.StatusPublished,
		},
		{
			name:     "publish by non owner",
			item:     reviewItem(models.KindArticle, models.StatusInProgress, "mod-1"),
			action:   ActionPublish,
			actor:    otherMod,
			wantCode: appErrors.ErrNotOwner.Code,
		},
		{
			name:     "publish while awaiting author",
			item:     reviewItem(models.KindArticle, models.StatusAwaitingUser, "mod-1"),
			action:   ActionPublish,
			actor:    moderator,
			wantCode: appErrors.ErrInvalidState.Code,
		},
		{
			name:    "discard claimed item",
			item:    reviewItem(models.KindArticle, models.StatusInProgress, "mod-1"),
			action:  ActionDiscard,
			actor:   moderator,
			payload: Payload{DiscardReason: "plagiarism"},
			wantTo:  models.StatusDiscarded,
		},
		{
			name:    "discard unclaimed item as admin",
			item:    reviewItem(models.KindPodcast, models.StatusUnassigned, ""),
			action:  ActionDiscard,
			actor:   admin,
			payload: Payload{DiscardReason: "spam"},
			wantTo:  models.StatusDiscarded,
		},
		{
			name:     "discard without reason",
			item:     reviewItem(models.KindArticle, models.StatusInProgress, "mod-1"),
			action:   ActionDiscard,
			actor:    moderator,
			wantCode: appErrors.ErrValidation.Code,
		},
		{
			name:     "discard someone else's claim",
			item:     reviewItem(models.KindArticle, models.StatusInProgress, "mod-1"),
			action:   ActionDiscard,
			actor:    otherMod,
			payload:  Payload{DiscardReason: "spam"},
			wantCode: appErrors.ErrNotOwner.Code,
		},
		{
			name:   "unassign own claim",
			item:   reviewItem(models.KindArticle, models.StatusInProgress, "mod-1"),
			action: ActionUnassign,
			actor:  moderator,
			wantTo: models.StatusUnassigned,
		},
		{
			name:   "unassign by admin",
			item:   reviewItem(models.KindArticle, models.StatusAwaitingUser, "mod-1"),
			action: ActionUnassign,
			actor:  admin,
			wantTo: models.StatusUnassigned,
		},
		{
			name:     "unassign someone else's claim",
			item:     reviewItem(models.KindArticle, models.StatusInProgress, "mod-1"),
			action:   ActionUnassign,
			actor:    otherMod,
			wantCode: appErrors.ErrNotOwner.Code,
		},
		{
			name:     "unassign unclaimed item",
			item:     reviewItem(models.KindArticle, models.StatusUnassigned, ""),
			action:   ActionUnassign,
			actor:    moderator,
			wantCode: appErrors.ErrInvalidState.Code,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			transition, err := Decide(tc.item, tc.action, tc.actor, tc.payload)
			if tc.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tc.wantCode, appErrors.FromError(err).Code)
				assert.Nil(t, transition)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, transition)
			assert.Equal(t, tc.wantTo, transition.ToStatus)
			assert.Contains(t, transition.FromStatus, tc.item.Status)
		})
	}
}

func TestDecideTerminalStatesAreStable(t *testing.T) {
	actions := []ReviewAction{ActionClaim, ActionSubmitFeedback, ActionAuthorRevise, ActionPublish, ActionDiscard, ActionUnassign}
	for _, status := range []models.ReviewStatus{models.StatusPublished, models.StatusDiscarded} {
		for _, action := range actions {
			item := reviewItem(models.KindArticle, status, "mod-1")
			_, err := Decide(item, action, admin, Payload{DiscardReason: "any"})
			require.Error(t, err, "action %s from %s", action, status)
			assert.Equal(t, appErrors.ErrAlreadyTerminal.Code, appErrors.FromError(err).Code)
		}
	}
}

func TestDecideRemovedItemIsHidden(t *testing.T) {
	item := reviewItem(models.KindArticle, models.StatusUnassigned, "")
	item.IsRemoved = true
	_, err := Decide(item, ActionClaim, moderator, Payload{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDecideSystemActorBypassesOwnership(t *testing.T) {
	item := reviewItem(models.KindArticle, models.StatusInProgress, "mod-1")
	transition, err := Decide(item, ActionUnassign, SystemActor, Payload{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnassigned, transition.ToStatus)
	assert.True(t, transition.ClearReviewer)

	item = reviewItem(models.KindArticle, models.StatusUnassigned, "")
	transition, err = Decide(item, ActionDiscard, SystemActor, Payload{DiscardReason: "stale"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDiscarded, transition.ToStatus)
}

func TestDecidePublishEffects(t *testing.T) {
	item := reviewItem(models.KindArticle, models.StatusInProgress, "mod-1")
	transition, err := Decide(item, ActionPublish, moderator, Payload{})
	require.NoError(t, err)
	require.True(t, transition.SetPublished)

	var authorCredit, reviewerCredit bool
	for _, effect := range transition.Effects {
		if effect.Type != EffectContribute {
			continue
		}
		if effect.UserID == "author-1" && effect.Kind == models.ContributionWrite {
			authorCredit = true
		}
		if effect.UserID == "mod-1" && effect.Kind == models.ContributionReview {
			reviewerCredit = true
		}
	}
	assert.True(t, authorCredit, "author should be credited a write contribution")
	assert.True(t, reviewerCredit, "reviewer should be credited a review contribution")
}

func TestDecideFeedbackEmailCarriesText(t *testing.T) {
	item := reviewItem(models.KindArticle, models.StatusInProgress, "mod-1")
	transition, err := Decide(item, ActionSubmitFeedback, moderator, Payload{FeedbackText: "needs citations"})
	require.NoError(t, err)

	var email *Effect
	for i := range transition.Effects {
		if transition.Effects[i].Type == EffectEmail {
			email = &transition.Effects[i]
		}
	}
	require.NotNil(t, email, "feedback should email the author")
	assert.Equal(t, TemplateFeedback, email.Template)
	assert.Equal(t, "needs citations", email.Metadata["feedback"])
	assert.Equal(t, item.Title, email.Metadata["title"])
}

func TestDecideDiscardCleansUpAssetsAndMirror(t *testing.T) {
	item := reviewItem(models.KindPodcast, models.StatusInProgress, "mod-1")
	item.Assets = []string{"audio/episode.mp3", "covers/episode.png"}
	mirrorID := "mirror-42"
	item.MirrorID = &mirrorID

	transition, err := Decide(item, ActionDiscard, moderator, Payload{DiscardReason: "copyright"})
	require.NoError(t, err)

	require.NotEmpty(t, transition.Effects)
	assert.Equal(t, EffectAssets, transition.Effects[0].Type)
	assert.Equal(t, []string{"audio/episode.mp3", "covers/episode.png"}, transition.Effects[0].AssetKeys)

	last := transition.Effects[len(transition.Effects)-1]
	assert.Equal(t, EffectMirror, last.Type)
	assert.Equal(t, "mirror-42", last.MirrorID)
}
