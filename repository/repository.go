// Package repository is the gorm-backed record store for listings and posts.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"rankwell/apperrors"
	"rankwell/models"
)

type Listings struct {
	db *gorm.DB
}

func NewListings(db *gorm.DB) *Listings {
	return &Listings{db: db}
}

func (r *Listings) DB() *gorm.DB { return r.db }

func (r *Listings) Create(ctx context.Context, l *models.BusinessListing) error {
	return apperrors.Persistence("create listing", r.db.WithContext(ctx).Create(l).Error)
}

// Save writes every column of l; the caller owns the full record.
func (r *Listings) Save(ctx context.Context, l *models.BusinessListing) error {
	return apperrors.Persistence("update listing", r.db.WithContext(ctx).Save(l).Error)
}

// UpdateFields writes only the given columns.
func (r *Listings) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.BusinessListing{ID: id}).Updates(fields)
	if res.Error != nil {
		return apperrors.Persistence("update listing", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *Listings) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.BusinessListing{ID: id})
	if res.Error != nil {
		return apperrors.Persistence("delete listing", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *Listings) FindByID(ctx context.Context, id string) (*models.BusinessListing, error) {
	var l models.BusinessListing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, notFound("find listing", err)
	}
	return &l, nil
}

// SlugTaken reports whether another published listing already uses slug.
func (r *Listings) SlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.BusinessListing{}).
		Where("slug = ? AND is_published = ?", slug, true)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, apperrors.Persistence("check listing slug", err)
	}
	return count > 0, nil
}

type Posts struct {
	db *gorm.DB
}

func NewPosts(db *gorm.DB) *Posts {
	return &Posts{db: db}
}

func (r *Posts) Create(ctx context.Context, p *models.BlogPost) error {
	return apperrors.Persistence("create post", r.db.WithContext(ctx).Create(p).Error)
}

func (r *Posts) Save(ctx context.Context, p *models.BlogPost) error {
	return apperrors.Persistence("update post", r.db.WithContext(ctx).Save(p).Error)
}

func (r *Posts) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.BlogPost{ID: id})
	if res.Error != nil {
		return apperrors.Persistence("delete post", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *Posts) FindByID(ctx context.Context, id string) (*models.BlogPost, error) {
	var p models.BlogPost
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound("find post", err)
	}
	return &p, nil
}

// SlugTaken reports whether any other post uses slug, published or not.
func (r *Posts) SlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.BlogPost{}).Where("slug = ?", slug)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, apperrors.Persistence("check post slug", err)
	}
	return count > 0, nil
}

func notFound(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	return apperrors.Persistence(op, err)
}
