package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"rankwell/apperrors"
	"rankwell/auth"
	"rankwell/models"
	"rankwell/repository"
	"rankwell/validation"
)

type fakeCache struct{ calls int }

func (f *fakeCache) Invalidate(groups ...string) error {
	f.calls++
	return nil
}

var admin = &auth.Session{UserID: "admin-1", Roles: []string{models.RoleAdmin}}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.BusinessListing{}))
	return db
}

func setup(t *testing.T) (*Service, *gorm.DB, *fakeCache) {
	db := setupTestDB(t)
	c := &fakeCache{}
	svc := NewService(repository.NewListings(db), c, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc, db, c
}

func createListing(t *testing.T, db *gorm.DB, status models.ApprovalStatus) *models.BusinessListing {
	l := &models.BusinessListing{UserID: "owner", Category: "services", Title: "Plumber Pro", Slug: "plumber-pro", ApprovalStatus: status}
	require.NoError(t, db.Create(l).Error)
	return l
}

func reload(t *testing.T, db *gorm.DB, id string) models.BusinessListing {
	var l models.BusinessListing
	require.NoError(t, db.First(&l, "id = ?", id).Error)
	return l
}

func TestReject_BlankReasonLeavesPending(t *testing.T) {
	svc, db, c := setup(t)
	l := createListing(t, db, models.StatusPending)

	_, err := svc.Reject(context.Background(), admin, l.ID, "")
	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, models.StatusPending, reload(t, db, l.ID).ApprovalStatus)
	assert.Zero(t, c.calls)

	_, err = svc.Reject(context.Background(), admin, l.ID, "   ")
	assert.True(t, errors.As(err, &verr))
}

func TestReject_FromPending(t *testing.T) {
	svc, db, c := setup(t)
	l := createListing(t, db, models.StatusPending)

	_, err := svc.Reject(context.Background(), admin, l.ID, "blurry photos")
	require.NoError(t, err)

	got := reload(t, db, l.ID)
	assert.Equal(t, models.StatusRejected, got.ApprovalStatus)
	require.NotNil(t, got.RejectionReason)
	assert.Equal(t, "blurry photos", *got.RejectionReason)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, "admin-1", *got.ApprovedBy)
	assert.Equal(t, 1, c.calls)
}

func TestReject_NotAllowedFromApprovedOrRejected(t *testing.T) {
	svc, db, _ := setup(t)
	approved := createListing(t, db, models.StatusApproved)
	rejected := createListing(t, db, models.StatusRejected)

	_, err := svc.Reject(context.Background(), admin, approved.ID, "changed my mind")
	assert.ErrorIs(t, err, apperrors.ErrTransitionNotAllowed)
	assert.Equal(t, models.StatusApproved, reload(t, db, approved.ID).ApprovalStatus)

	_, err = svc.Reject(context.Background(), admin, rejected.ID, "again")
	assert.ErrorIs(t, err, apperrors.ErrTransitionNotAllowed)
}

func TestApprove_ClearsReason(t *testing.T) {
	svc, db, _ := setup(t)
	l := createListing(t, db, models.StatusPending)
	_, err := svc.Reject(context.Background(), admin, l.ID, "missing phone")
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), admin, l.ID)
	require.NoError(t, err)
	assert.Nil(t, approved.RejectionReason)

	got := reload(t, db, l.ID)
	assert.Equal(t, models.StatusApproved, got.ApprovalStatus)
	assert.Nil(t, got.RejectionReason)
	require.NotNil(t, got.ApprovedAt)
	assert.True(t, got.ApprovedAt.Equal(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)))
}

func TestTransitionsRequireAdmin(t *testing.T) {
	svc, db, _ := setup(t)
	l := createListing(t, db, models.StatusPending)
	user := &auth.Session{UserID: "owner"}

	_, err := svc.Approve(context.Background(), user, l.ID)
	assert.ErrorIs(t, err, apperrors.ErrAdminRequired)
	_, err = svc.Reject(context.Background(), nil, l.ID, "x")
	assert.ErrorIs(t, err, apperrors.ErrAuthRequired)
	assert.ErrorIs(t, svc.Delete(context.Background(), user, l.ID), apperrors.ErrAuthRequired)
}

func TestApprove_Missing(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.Approve(context.Background(), admin, "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestToggles(t *testing.T) {
	svc, db, _ := setup(t)
	l := createListing(t, db, models.StatusApproved)

	got, err := svc.ToggleFeatured(context.Background(), admin, l.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFeatured)
	assert.True(t, reload(t, db, l.ID).IsFeatured)

	_, err = svc.ToggleFeatured(context.Background(), admin, l.ID)
	require.NoError(t, err)
	assert.False(t, reload(t, db, l.ID).IsFeatured)

	_, err = svc.TogglePublished(context.Background(), admin, l.ID)
	require.NoError(t, err)
	assert.True(t, reload(t, db, l.ID).IsPublished)
}

func TestQuickEdit(t *testing.T) {
	svc, db, _ := setup(t)
	l := createListing(t, db, models.StatusApproved)

	_, err := svc.QuickEdit(context.Background(), admin, l.ID, validation.QuickEdit{Title: "x"})
	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr))

	q := validation.QuickEdit{
		Title:       "Plumber Pro Lahore",
		Category:    "services",
		Phone:       "0300 1234567",
		City:        "Lahore",
		Address:     "22 Canal Road, Lahore",
		IsPublished: true,
	}
	_, err = svc.QuickEdit(context.Background(), admin, l.ID, q)
	require.NoError(t, err)

	got := reload(t, db, l.ID)
	assert.Equal(t, "Plumber Pro Lahore", got.Title)
	assert.Equal(t, "0300 1234567", got.Phone)
	assert.True(t, got.IsPublished)
	assert.Equal(t, "plumber-pro", got.Slug)
}

func createPublishedTwin(t *testing.T, db *gorm.DB) (published, hidden *models.BusinessListing) {
	published = createListing(t, db, models.StatusApproved)
	require.NoError(t, db.Model(published).Update("is_published", true).Error)
	hidden = createListing(t, db, models.StatusApproved)
	return published, hidden
}

func countPublished(t *testing.T, db *gorm.DB, slug string) int64 {
	var n int64
	require.NoError(t, db.Model(&models.BusinessListing{}).Where("slug = ? AND is_published = ?", slug, true).Count(&n).Error)
	return n
}

func TestTogglePublished_SlugAlreadyPublished(t *testing.T) {
	svc, db, c := setup(t)
	_, hidden := createPublishedTwin(t, db)

	_, err := svc.TogglePublished(context.Background(), admin, hidden.ID)
	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "slug", verr.Violations[0].Field)
	assert.False(t, reload(t, db, hidden.ID).IsPublished)
	assert.Equal(t, int64(1), countPublished(t, db, "plumber-pro"))
	assert.Zero(t, c.calls)
}

func TestTogglePublished_UnpublishIgnoresSlug(t *testing.T) {
	svc, db, _ := setup(t)
	published, _ := createPublishedTwin(t, db)

	_, err := svc.TogglePublished(context.Background(), admin, published.ID)
	require.NoError(t, err)
	assert.False(t, reload(t, db, published.ID).IsPublished)
}

func TestQuickEdit_PublishSlugAlreadyPublished(t *testing.T) {
	svc, db, _ := setup(t)
	_, hidden := createPublishedTwin(t, db)

	_, err := svc.QuickEdit(context.Background(), admin, hidden.ID, validation.QuickEdit{
		Title:       "Plumber Pro Again",
		Category:    "services",
		Phone:       "0300 1234567",
		City:        "Lahore",
		Address:     "22 Canal Road, Lahore",
		IsPublished: true,
	})
	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "slug", verr.Violations[0].Field)

	got := reload(t, db, hidden.ID)
	assert.False(t, got.IsPublished)
	assert.Equal(t, "Plumber Pro", got.Title)
	assert.Equal(t, int64(1), countPublished(t, db, "plumber-pro"))
}

func TestDelete(t *testing.T) {
	svc, db, _ := setup(t)
	l := createListing(t, db, models.StatusRejected)

	require.NoError(t, svc.Delete(context.Background(), admin, l.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), admin, l.ID), apperrors.ErrNotFound)
}
