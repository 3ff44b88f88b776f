// Package moderation gates listing visibility behind an admin decision.
//
//	pending  --approve--> approved
//	pending  --reject---> rejected
//	rejected --approve--> approved
//
// An approved listing cannot be rejected; approving is allowed from any state.
package moderation

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"rankwell/apperrors"
	"rankwell/auth"
	"rankwell/cache"
	"rankwell/metrics"
	"rankwell/models"
	"rankwell/repository"
	"rankwell/validation"
)

type Service struct {
	listings *repository.Listings
	cache    cache.Invalidator
	log      *zap.Logger
	now      func() time.Time
}

func NewService(listings *repository.Listings, c cache.Invalidator, log *zap.Logger) *Service {
	return &Service{listings: listings, cache: c, log: log, now: time.Now}
}

// CanReject reports whether reject is a legal transition from status.
func CanReject(status models.ApprovalStatus) bool {
	return status == models.StatusPending
}

func (s *Service) Approve(ctx context.Context, sess *auth.Session, id string) (*models.BusinessListing, error) {
	if err := auth.RequireAdminRole(sess); err != nil {
		return nil, err
	}
	l, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	approver := sess.UserID
	err = s.listings.UpdateFields(ctx, id, map[string]interface{}{
		"approval_status":  models.StatusApproved,
		"rejection_reason": nil,
		"approved_by":      approver,
		"approved_at":      now,
	})
	if err != nil {
		return nil, err
	}
	l.ApprovalStatus = models.StatusApproved
	l.RejectionReason = nil
	l.ApprovedBy = &approver
	l.ApprovedAt = &now

	s.changed(id, "approve")
	return l, nil
}

func (s *Service) Reject(ctx context.Context, sess *auth.Session, id, reason string) (*models.BusinessListing, error) {
	if err := auth.RequireAdminRole(sess); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError(apperrors.Violation{Field: "reason", Message: "Please provide a rejection reason"})
	}
	l, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanReject(l.ApprovalStatus) {
		return nil, apperrors.ErrTransitionNotAllowed
	}

	now := s.now()
	approver := sess.UserID
	err = s.listings.UpdateFields(ctx, id, map[string]interface{}{
		"approval_status":  models.StatusRejected,
		"rejection_reason": reason,
		"approved_by":      approver,
		"approved_at":      now,
	})
	if err != nil {
		return nil, err
	}
	l.ApprovalStatus = models.StatusRejected
	l.RejectionReason = &reason
	l.ApprovedBy = &approver
	l.ApprovedAt = &now

	s.changed(id, "reject")
	return l, nil
}

func (s *Service) ToggleFeatured(ctx context.Context, sess *auth.Session, id string) (*models.BusinessListing, error) {
	return s.toggle(ctx, sess, id, "is_featured", "feature", func(l *models.BusinessListing) *bool { return &l.IsFeatured })
}

func (s *Service) TogglePublished(ctx context.Context, sess *auth.Session, id string) (*models.BusinessListing, error) {
	return s.toggle(ctx, sess, id, "is_published", "publish", func(l *models.BusinessListing) *bool { return &l.IsPublished })
}

func (s *Service) toggle(ctx context.Context, sess *auth.Session, id, column, action string, field func(*models.BusinessListing) *bool) (*models.BusinessListing, error) {
	if err := auth.RequireAdminRole(sess); err != nil {
		return nil, err
	}
	l, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := field(l)
	*v = !*v
	if column == "is_published" && *v {
		if err := s.ensureSlugFree(ctx, l.Slug, id); err != nil {
			return nil, err
		}
	}
	if err := s.listings.UpdateFields(ctx, id, map[string]interface{}{column: *v}); err != nil {
		return nil, err
	}
	s.changed(id, action)
	return l, nil
}

// QuickEdit updates the handful of fields editable inline from the admin table.
func (s *Service) QuickEdit(ctx context.Context, sess *auth.Session, id string, q validation.QuickEdit) (*models.BusinessListing, error) {
	if err := auth.RequireAdminRole(sess); err != nil {
		return nil, err
	}
	if v := validation.ValidateQuickEdit(&q); len(v) > 0 {
		return nil, apperrors.NewValidationError(v...)
	}
	l, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q.IsPublished && !l.IsPublished {
		if err := s.ensureSlugFree(ctx, l.Slug, id); err != nil {
			return nil, err
		}
	}
	err = s.listings.UpdateFields(ctx, id, map[string]interface{}{
		"title":        q.Title,
		"category":     q.Category,
		"phone":        q.Phone,
		"city":         q.City,
		"address":      q.Address,
		"is_published": q.IsPublished,
		"is_featured":  q.IsFeatured,
	})
	if err != nil {
		return nil, err
	}
	l.Title, l.Category, l.Phone, l.City, l.Address = q.Title, q.Category, q.Phone, q.City, q.Address
	l.IsPublished, l.IsFeatured = q.IsPublished, q.IsFeatured

	s.changed(id, "edit")
	return l, nil
}

func (s *Service) Delete(ctx context.Context, sess *auth.Session, id string) error {
	if err := auth.RequireAdminRole(sess); err != nil {
		return err
	}
	if err := s.listings.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(id, "delete")
	return nil
}

// ensureSlugFree rejects publishing a listing whose slug another published
// listing already holds.
func (s *Service) ensureSlugFree(ctx context.Context, slug, id string) error {
	taken, err := s.listings.SlugTaken(ctx, slug, id)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.NewValidationError(apperrors.Violation{Field: "slug", Message: "This slug is already in use by a published listing"})
	}
	return nil
}

func (s *Service) changed(id, action string) {
	metrics.ModerationTransitions.WithLabelValues(action).Inc()
	s.log.Info("listing moderated", zap.String("id", id), zap.String("action", action))
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(cache.GroupListings, cache.GroupSitemap); err != nil {
		s.log.Warn("cache invalidation failed", zap.Error(err))
	}
}
