package submission

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"rankwell/apperrors"
	"rankwell/auth"
	"rankwell/draft"
	"rankwell/models"
	"rankwell/repository"
	"rankwell/storage"
	"rankwell/wizard"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\nimage")
	jpegBytes = []byte("\xff\xd8\xff\xe0image")
	webpBytes = []byte("RIFF\x00\x00\x00\x00WEBPVP8 image")
)

type fakeBucket struct {
	uploads []string
	err     error
}

func (f *fakeBucket) Upload(_ context.Context, bucket, objectPath string, _ []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploads = append(f.uploads, bucket+"/"+objectPath)
	return objectPath, nil
}

func (f *fakeBucket) PublicURL(bucket, objectPath string) string {
	return "https://cdn.test/" + bucket + "/" + objectPath
}

type fakeCache struct {
	groups []string
}

func (f *fakeCache) Invalidate(groups ...string) error {
	f.groups = append(f.groups, groups...)
	return nil
}

type fixture struct {
	db       *gorm.DB
	bucket   *fakeBucket
	cache    *fakeCache
	drafts   *draft.MemoryStore
	pipeline *Pipeline
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.BusinessListing{}, &models.BlogPost{}))
	return db
}

func setup(t *testing.T) *fixture {
	db := setupTestDB(t)
	f := &fixture{db: db, bucket: &fakeBucket{}, cache: &fakeCache{}, drafts: draft.NewMemoryStore()}
	f.pipeline = NewPipeline(repository.NewListings(db), repository.NewPosts(db), f.bucket, f.drafts, f.cache, zap.NewNop())
	return f
}

var (
	owner = &auth.Session{UserID: "owner-1", Email: "owner@example.com", Roles: []string{}}
	other = &auth.Session{UserID: "other-1", Email: "other@example.com", Roles: []string{}}
	admin = &auth.Session{UserID: "admin-1", Email: "admin@example.com", Roles: []string{models.RoleAdmin}}
)

func completeListing() *draft.ListingDraft {
	d := draft.NewListingDraft()
	d.Category = "restaurants"
	d.SetTitle("Cafe Blue Lahore")
	d.SetDescription(strings.Repeat("Great coffee and cake. ", 4))
	d.Address = "12 Main Boulevard, Gulberg"
	d.SetCity("Lahore")
	d.Phone = "+92 300 1234567"
	d.Amenities = "WiFi, Parking, WiFi, "
	d.Keywords = "cafe, coffee"
	d.IsPublished = true
	return d
}

func completePost() *draft.PostDraft {
	d := draft.NewPostDraft()
	d.SetTitle("Ranking in Google Maps")
	d.Category = "Local SEO"
	d.SetContent("# Why maps matter\n\n" + strings.TrimSpace(strings.Repeat("word ", 450)))
	d.AddTag("maps")
	d.Published = true
	return d
}

func saveDraft(t *testing.T, f *fixture, key string) {
	snap := draft.Snapshot[*draft.ListingDraft]{Draft: draft.NewListingDraft(), Wizard: wizard.State{CurrentStep: 4}}
	require.NoError(t, draft.SaveSnapshot(context.Background(), f.drafts, key, snap))
}

func TestSubmitListing_RequiresSession(t *testing.T) {
	f := setup(t)
	_, err := f.pipeline.SubmitListing(context.Background(), nil, completeListing(), nil)
	assert.ErrorIs(t, err, apperrors.ErrAuthRequired)
}

func TestSubmitListing_ValidatesWholeDraft(t *testing.T) {
	f := setup(t)
	d := completeListing()
	d.HasImagePreview = true

	_, err := f.pipeline.SubmitListing(context.Background(), owner, d, nil)

	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "featuredImageAlt", verr.First().Field)
	assert.Empty(t, f.bucket.uploads)
}

func TestSubmitListing_CreatesPendingAndClearsDraft(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	key := draft.ListingKey(owner.UserID, "")
	saveDraft(t, f, key)

	d := completeListing()
	d.FeaturedImageAlt = "Storefront"
	listing, err := f.pipeline.SubmitListing(ctx, owner, d, &Asset{Filename: "front.PNG", Data: pngBytes})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, listing.ApprovalStatus)
	assert.Equal(t, owner.UserID, listing.UserID)
	assert.Equal(t, "cafe-blue-lahore", listing.Slug)
	assert.Equal(t, []string{"WiFi", "Parking"}, listing.Amenities)
	assert.Equal(t, []string{"cafe", "coffee"}, listing.Keywords)
	assert.Equal(t, "Cafe Blue Lahore - Lahore", listing.MetaTitle)
	require.Len(t, f.bucket.uploads, 1)
	assert.True(t, strings.HasPrefix(listing.FeaturedImage, "https://cdn.test/listing-images/"))
	assert.True(t, strings.HasSuffix(listing.FeaturedImage, ".png"))
	assert.Equal(t, "Storefront", listing.FeaturedAlt)

	_, err = f.drafts.Load(ctx, key)
	assert.ErrorIs(t, err, draft.ErrNotFound)
	assert.Contains(t, f.cache.groups, "listings")

	var count int64
	f.db.Model(&models.BusinessListing{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSubmitListing_UploadFailureWritesNothing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	key := draft.ListingKey(owner.UserID, "")
	saveDraft(t, f, key)
	f.bucket.err = errors.New("bucket unavailable")

	d := completeListing()
	d.FeaturedImageAlt = "Storefront"
	_, err := f.pipeline.SubmitListing(ctx, owner, d, &Asset{Filename: "a.jpg", Data: jpegBytes})

	assert.ErrorIs(t, err, apperrors.ErrAssetUploadFailed)
	var count int64
	f.db.Model(&models.BusinessListing{}).Count(&count)
	assert.Zero(t, count)
	_, err = f.drafts.Load(ctx, key)
	assert.NoError(t, err)
}

func TestSubmitListing_RejectsNonImageUpload(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	key := draft.ListingKey(owner.UserID, "")
	saveDraft(t, f, key)

	d := completeListing()
	d.FeaturedImageAlt = "Storefront"
	for _, a := range []*Asset{
		{Filename: "evil.html", Data: []byte("<html><script>alert(1)</script></html>")},
		{Filename: "logo.svg", Data: []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`)},
		{Filename: "looks.png", Data: []byte("not really a png")},
	} {
		_, err := f.pipeline.SubmitListing(ctx, owner, d, a)
		assert.ErrorIs(t, err, apperrors.ErrAssetUploadFailed, a.Filename)
		assert.ErrorIs(t, err, storage.ErrUnsupportedImage, a.Filename)
	}

	assert.Empty(t, f.bucket.uploads)
	var count int64
	f.db.Model(&models.BusinessListing{}).Count(&count)
	assert.Zero(t, count)
	_, err := f.drafts.Load(ctx, key)
	assert.NoError(t, err)
}

func TestSubmitListing_AssetTooLarge(t *testing.T) {
	f := setup(t)
	d := completeListing()
	d.FeaturedImageAlt = "Storefront"
	big := bytes.Repeat([]byte{1}, MaxAssetSize+1)

	_, err := f.pipeline.SubmitListing(context.Background(), owner, d, &Asset{Filename: "a.jpg", Data: big})

	assert.ErrorIs(t, err, apperrors.ErrAssetUploadFailed)
	assert.ErrorIs(t, err, ErrAssetTooLarge)
	assert.Empty(t, f.bucket.uploads)
}

func TestSubmitListing_SlugMustBeUniqueAmongPublished(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.pipeline.SubmitListing(ctx, owner, completeListing(), nil)
	require.NoError(t, err)

	_, err = f.pipeline.SubmitListing(ctx, other, completeListing(), nil)
	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "slug", verr.First().Field)
}

func TestSubmitListing_UpdateKeepsModerationState(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	created, err := f.pipeline.SubmitListing(ctx, owner, completeListing(), nil)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(created).Updates(map[string]interface{}{"approval_status": models.StatusApproved, "views_count": 12}).Error)

	var stored models.BusinessListing
	require.NoError(t, f.db.First(&stored, "id = ?", created.ID).Error)
	edit := draft.ListingDraftFrom(&stored)
	edit.SetTitle("Cafe Blue Gulberg")

	_, err = f.pipeline.SubmitListing(ctx, other, edit, nil)
	assert.ErrorIs(t, err, apperrors.ErrAdminRequired)

	updated, err := f.pipeline.SubmitListing(ctx, owner, edit, nil)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Cafe Blue Gulberg", updated.Title)
	assert.Equal(t, "cafe-blue-lahore", updated.Slug)
	assert.Equal(t, models.StatusApproved, updated.ApprovalStatus)
	assert.Equal(t, int64(12), updated.ViewsCount)

	var count int64
	f.db.Model(&models.BusinessListing{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSubmitPost_RequiresAdmin(t *testing.T) {
	f := setup(t)
	_, err := f.pipeline.SubmitPost(context.Background(), owner, completePost(), nil)
	assert.ErrorIs(t, err, apperrors.ErrAdminRequired)
}

func TestSubmitPost_DerivesExcerptAndReadTime(t *testing.T) {
	f := setup(t)
	post, err := f.pipeline.SubmitPost(context.Background(), admin, completePost(), nil)
	require.NoError(t, err)

	assert.Equal(t, "ranking-in-google-maps", post.Slug)
	assert.Equal(t, "Why maps matter", post.Excerpt)
	assert.Equal(t, 3, post.ReadTime)
	assert.Equal(t, admin.UserID, post.AuthorID)
	assert.Equal(t, []string{"maps"}, post.Tags)
	assert.Contains(t, f.cache.groups, "blog")
}

func TestSubmitPost_ExplicitOverridesWin(t *testing.T) {
	f := setup(t)
	d := completePost()
	d.SetExcerpt("Hand written summary")
	d.SetReadTime(9)
	d.SetSlug("maps-guide")

	post, err := f.pipeline.SubmitPost(context.Background(), admin, d, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hand written summary", post.Excerpt)
	assert.Equal(t, 9, post.ReadTime)
	assert.Equal(t, "maps-guide", post.Slug)
}

func TestSubmitPost_SlugUniqueGlobally(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d := completePost()
	d.Published = false
	_, err := f.pipeline.SubmitPost(ctx, admin, d, nil)
	require.NoError(t, err)

	_, err = f.pipeline.SubmitPost(ctx, admin, completePost(), nil)
	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "slug", verr.First().Field)
}

func TestSubmitPost_UploadsToBlogBucket(t *testing.T) {
	f := setup(t)
	d := completePost()
	d.FeaturedImageAlt = "Map pins"
	post, err := f.pipeline.SubmitPost(context.Background(), admin, d, &Asset{Filename: "pins.webp", Data: webpBytes})
	require.NoError(t, err)
	require.Len(t, f.bucket.uploads, 1)
	assert.True(t, strings.HasPrefix(f.bucket.uploads[0], storage.BlogImages+"/"))
	assert.Equal(t, "Map pins", post.FeaturedImageAlt)
}
