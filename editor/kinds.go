package editor

import (
	"context"

	"rankwell/apperrors"
	"rankwell/auth"
	"rankwell/draft"
	"rankwell/repository"
	"rankwell/validation"
	"rankwell/wizard"
)

type (
	ListingEditor = Editor[*draft.ListingDraft, draft.ListingPatch]
	PostEditor    = Editor[*draft.PostDraft, draft.PostPatch]
)

// NewListingEditor edits business listings. Owners edit their own listings;
// admins may edit any.
func NewListingEditor(listings *repository.Listings, saver *draft.Autosaver) *ListingEditor {
	return New(Kind[*draft.ListingDraft, draft.ListingPatch]{
		Steps: wizard.ListingSteps,
		Key:   draft.ListingKey,
		New:   draft.NewListingDraft,
		Seed: func(ctx context.Context, s *auth.Session, id string) (*draft.ListingDraft, error) {
			l, err := listings.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if l.UserID != s.UserID && !s.IsAdmin() {
				return nil, apperrors.ErrAdminRequired
			}
			return draft.ListingDraftFrom(l), nil
		},
		Apply:    func(d *draft.ListingDraft, p draft.ListingPatch) { d.Apply(p) },
		Validate: validation.ValidateListingStep,
	}, saver)
}

func NewPostEditor(posts *repository.Posts, saver *draft.Autosaver) *PostEditor {
	return New(Kind[*draft.PostDraft, draft.PostPatch]{
		Steps: wizard.PostSteps,
		Key:   draft.PostKey,
		New:   draft.NewPostDraft,
		Seed: func(ctx context.Context, _ *auth.Session, id string) (*draft.PostDraft, error) {
			p, err := posts.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}
			return draft.PostDraftFrom(p), nil
		},
		Apply:     func(d *draft.PostDraft, p draft.PostPatch) { d.Apply(p) },
		Validate:  validation.ValidatePostStep,
		Authorize: auth.RequireAdminRole,
	}, saver)
}
