// Package submission turns a finished wizard draft into a stored listing or post.
//
// A submission validates the whole draft, uploads the optional image, composes the
// record and writes it once. Any failure stops the pipeline and leaves the draft in
// the draft store so the author can retry.
package submission

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"rankwell/apperrors"
	"rankwell/auth"
	"rankwell/cache"
	"rankwell/derive"
	"rankwell/draft"
	"rankwell/metrics"
	"rankwell/models"
	"rankwell/repository"
	"rankwell/storage"
	"rankwell/validation"
)

const MaxAssetSize = 5 << 20

var ErrAssetTooLarge = fmt.Errorf("image must be %d MiB or smaller", MaxAssetSize>>20)

// Asset is an image selected in the wizard that has not been uploaded yet.
type Asset struct {
	Filename string
	Data     []byte
}

type Pipeline struct {
	listings *repository.Listings
	posts    *repository.Posts
	blobs    storage.Provider
	drafts   draft.Store
	cache    cache.Invalidator
	log      *zap.Logger
}

func NewPipeline(listings *repository.Listings, posts *repository.Posts, blobs storage.Provider, drafts draft.Store, c cache.Invalidator, log *zap.Logger) *Pipeline {
	return &Pipeline{listings: listings, posts: posts, blobs: blobs, drafts: drafts, cache: c, log: log}
}

func (p *Pipeline) SubmitListing(ctx context.Context, s *auth.Session, d *draft.ListingDraft, asset *Asset) (listing *models.BusinessListing, err error) {
	defer func() { metrics.Submissions.WithLabelValues("listing", metrics.Outcome(err)).Inc() }()

	if err := auth.RequireUser(s); err != nil {
		return nil, err
	}
	if v := validation.ValidateListing(d); len(v) > 0 {
		return nil, apperrors.NewValidationError(v...)
	}

	var existing *models.BusinessListing
	if d.ID != "" {
		existing, err = p.listings.FindByID(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		if existing.UserID != s.UserID && !s.IsAdmin() {
			return nil, apperrors.ErrAdminRequired
		}
	}

	slug := d.Slug
	if slug == "" {
		slug = derive.Slugify(d.Title)
	}
	taken, err := p.listings.SlugTaken(ctx, slug, d.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.NewValidationError(apperrors.Violation{Field: "slug", Message: "This slug is already in use"})
	}

	imageURL := d.FeaturedImageURL
	if asset != nil {
		imageURL, err = p.upload(ctx, storage.ListingImages, asset)
		if err != nil {
			return nil, err
		}
	}

	listing = composeListing(d, existing, slug, imageURL)
	if existing == nil {
		listing.UserID = s.UserID
		err = p.listings.Create(ctx, listing)
	} else {
		err = p.listings.Save(ctx, listing)
	}
	if err != nil {
		p.log.Error("listing write failed", zap.String("user_id", s.UserID), zap.Error(err))
		return nil, err
	}

	p.finish(ctx, draft.ListingKey(s.UserID, d.ID), cache.GroupListings, cache.GroupSitemap)
	p.log.Info("listing submitted", zap.String("id", listing.ID), zap.Bool("update", existing != nil))
	return listing, nil
}

func composeListing(d *draft.ListingDraft, existing *models.BusinessListing, slug, imageURL string) *models.BusinessListing {
	l := &models.BusinessListing{}
	if existing != nil {
		copied := *existing
		l = &copied
	}
	metaTitle := d.MetaTitle
	if metaTitle == "" {
		metaTitle = derive.MetaTitle(d.Title, d.City)
	}
	metaDescription := d.MetaDescription
	if metaDescription == "" {
		metaDescription = derive.MetaDescription(d.Description)
	}
	alt := d.FeaturedImageAlt
	if imageURL == "" {
		alt = ""
	}

	l.Category = d.Category
	l.Title = strings.TrimSpace(d.Title)
	l.Slug = slug
	l.Description = d.Description
	l.Address = d.Address
	l.City = d.City
	l.State = d.State
	l.PostalCode = d.PostalCode
	l.Phone = d.Phone
	l.Email = d.Email
	l.Website = d.Website
	l.WhatsappNumber = d.WhatsappNumber
	l.FeaturedImage = imageURL
	l.FeaturedAlt = alt
	l.PriceRange = d.PriceRange
	l.Amenities = derive.SplitList(d.Amenities)
	l.Keywords = derive.SplitList(d.Keywords)
	l.MetaTitle = metaTitle
	l.MetaDescription = metaDescription
	l.IsPublished = d.IsPublished
	if existing == nil {
		l.ApprovalStatus = models.StatusPending
	}
	return l
}

// SubmitPost stores a blog post. Posts are written by admins only.
func (p *Pipeline) SubmitPost(ctx context.Context, s *auth.Session, d *draft.PostDraft, asset *Asset) (post *models.BlogPost, err error) {
	defer func() { metrics.Submissions.WithLabelValues("post", metrics.Outcome(err)).Inc() }()

	if err := auth.RequireAdminRole(s); err != nil {
		return nil, err
	}
	if v := validation.ValidatePost(d); len(v) > 0 {
		return nil, apperrors.NewValidationError(v...)
	}

	var existing *models.BlogPost
	if d.ID != "" {
		if existing, err = p.posts.FindByID(ctx, d.ID); err != nil {
			return nil, err
		}
	}

	slug := d.Slug
	if slug == "" {
		slug = derive.Slugify(d.Title)
	}
	taken, err := p.posts.SlugTaken(ctx, slug, d.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.NewValidationError(apperrors.Violation{Field: "slug", Message: "This slug is already in use"})
	}

	imageURL := d.FeaturedImageURL
	if asset != nil {
		if imageURL, err = p.upload(ctx, storage.BlogImages, asset); err != nil {
			return nil, err
		}
	}

	post = composePost(d, existing, slug, imageURL)
	if existing == nil {
		post.AuthorID = s.UserID
		err = p.posts.Create(ctx, post)
	} else {
		err = p.posts.Save(ctx, post)
	}
	if err != nil {
		p.log.Error("post write failed", zap.String("user_id", s.UserID), zap.Error(err))
		return nil, err
	}

	p.finish(ctx, draft.PostKey(s.UserID, d.ID), cache.GroupBlog, cache.GroupSitemap)
	p.log.Info("post submitted", zap.String("id", post.ID), zap.Bool("update", existing != nil))
	return post, nil
}

func composePost(d *draft.PostDraft, existing *models.BlogPost, slug, imageURL string) *models.BlogPost {
	p := &models.BlogPost{}
	if existing != nil {
		copied := *existing
		p = &copied
	}
	excerpt := d.Excerpt
	if excerpt == "" {
		excerpt = derive.Excerpt(d.Content)
	}
	readTime := d.ReadTime
	if readTime < 1 {
		readTime = derive.ReadTime(d.Content)
	}
	alt := d.FeaturedImageAlt
	if imageURL == "" {
		alt = ""
	}
	tags := append([]string{}, d.Tags...)

	p.Title = strings.TrimSpace(d.Title)
	p.Slug = slug
	p.Category = d.Category
	p.Content = d.Content
	p.Excerpt = excerpt
	p.FeaturedImageURL = imageURL
	p.FeaturedImageAlt = alt
	p.MetaDescription = d.MetaDescription
	p.Tags = tags
	p.ReadTime = readTime
	p.IsFeatured = d.IsFeatured
	p.Published = d.Published
	return p
}

func (p *Pipeline) upload(ctx context.Context, bucket string, asset *Asset) (string, error) {
	if len(asset.Data) > MaxAssetSize {
		return "", &apperrors.AssetUploadError{Err: ErrAssetTooLarge}
	}
	name, err := storage.ImageObjectName(asset.Data)
	if err != nil {
		p.log.Info("image refused", zap.String("filename", asset.Filename), zap.Error(err))
		return "", &apperrors.AssetUploadError{Err: err}
	}
	stored, err := p.blobs.Upload(ctx, bucket, name, asset.Data)
	if err != nil {
		p.log.Warn("image upload failed", zap.String("bucket", bucket), zap.Error(err))
		return "", &apperrors.AssetUploadError{Err: err}
	}
	return p.blobs.PublicURL(bucket, stored), nil
}

// finish runs after the record is stored. Failures here are logged only; the
// submission itself already succeeded.
func (p *Pipeline) finish(ctx context.Context, draftKey string, groups ...string) {
	if err := p.drafts.Delete(ctx, draftKey); err != nil {
		p.log.Warn("clearing draft failed", zap.String("key", draftKey), zap.Error(err))
	}
	if p.cache != nil {
		if err := p.cache.Invalidate(groups...); err != nil {
			p.log.Warn("cache invalidation failed", zap.Strings("groups", groups), zap.Error(err))
		}
	}
}
