// Package query holds the read side: public directory and blog feeds, and the
// admin console's lists and counters.
package query

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"rankwell/apperrors"
	"rankwell/auth"
	"rankwell/catalog"
	"rankwell/models"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type ListingFilter struct {
	Category string
	Search   string
	Sort     string
}

// PublicListings returns listings that are both published and approved.
func (s *Service) PublicListings(ctx context.Context, f ListingFilter) ([]models.BusinessListing, error) {
	q := s.db.WithContext(ctx).Model(&models.BusinessListing{}).
		Where("is_published = ? AND approval_status = ?", true, models.StatusApproved)

	if f.Category != "" && f.Category != catalog.All {
		q = q.Where("category = ?", f.Category)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(city) LIKE ?)", like, like, like)
	}

	switch f.Sort {
	case catalog.SortOldest:
		q = q.Order("created_at ASC")
	case catalog.SortMostViewed:
		q = q.Order("views_count DESC").Order("created_at DESC")
	case catalog.SortFeatured:
		q = q.Order("is_featured DESC").Order("created_at DESC")
	default:
		q = q.Order("created_at DESC")
	}

	listings := []models.BusinessListing{}
	if err := q.Find(&listings).Error; err != nil {
		return nil, apperrors.Persistence("list listings", err)
	}
	return listings, nil
}

// PublicListing looks up a visible listing by slug. found is false for unknown,
// unpublished and unapproved slugs.
func (s *Service) PublicListing(ctx context.Context, slug string) (*models.BusinessListing, bool, error) {
	var l models.BusinessListing
	err := s.db.WithContext(ctx).
		Where("slug = ? AND is_published = ? AND approval_status = ?", slug, true, models.StatusApproved).
		Order("created_at DESC").
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Persistence("find listing", err)
	}
	return &l, true, nil
}

type AdminListingFilter struct {
	Status    string // pending | approved | rejected | all
	Published string // published | draft | all
	Category  string
	Search    string
}

func (s *Service) AdminListings(ctx context.Context, sess *auth.Session, f AdminListingFilter) ([]models.BusinessListing, error) {
	if err := auth.RequireAdminRole(sess); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Model(&models.BusinessListing{})

	if f.Status != "" && f.Status != catalog.All {
		q = q.Where("approval_status = ?", f.Status)
	}
	switch f.Published {
	case "published":
		q = q.Where("is_published = ?", true)
	case "draft":
		q = q.Where("is_published = ?", false)
	}
	if f.Category != "" && f.Category != catalog.All {
		q = q.Where("category = ?", f.Category)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(term)+"%")
	}

	listings := []models.BusinessListing{}
	if err := q.Order("created_at DESC").Find(&listings).Error; err != nil {
		return nil, apperrors.Persistence("list listings", err)
	}
	return listings, nil
}

type Stats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	Published  int64 `json:"published"`
	TotalViews int64 `json:"totalViews"`
}

func (s *Service) AdminStats(ctx context.Context, sess *auth.Session) (Stats, error) {
	var st Stats
	if err := auth.RequireAdminRole(sess); err != nil {
		return st, err
	}
	db := s.db.WithContext(ctx).Model(&models.BusinessListing{})

	err := db.Select(
		"COUNT(*) AS total, "+
			"COALESCE(SUM(CASE WHEN approval_status = ? THEN 1 ELSE 0 END), 0) AS pending, "+
			"COALESCE(SUM(CASE WHEN is_published = ? AND approval_status = ? THEN 1 ELSE 0 END), 0) AS published, "+
			"COALESCE(SUM(views_count), 0) AS total_views",
		models.StatusPending, true, models.StatusApproved,
	).Scan(&st).Error
	if err != nil {
		return Stats{}, apperrors.Persistence("listing stats", err)
	}
	return st, nil
}

// AdminCategories lists the distinct categories in use, sorted.
func (s *Service) AdminCategories(ctx context.Context, sess *auth.Session) ([]string, error) {
	if err := auth.RequireAdminRole(sess); err != nil {
		return nil, err
	}
	categories := []string{}
	err := s.db.WithContext(ctx).Model(&models.BusinessListing{}).
		Distinct("category").Order("category ASC").Pluck("category", &categories).Error
	if err != nil {
		return nil, apperrors.Persistence("listing categories", err)
	}
	return categories, nil
}

// BlogFeed returns published posts, featured first then newest.
func (s *Service) BlogFeed(ctx context.Context, category string) ([]models.BlogPost, error) {
	q := s.db.WithContext(ctx).Where("published = ?", true)
	if category != "" && category != catalog.All {
		q = q.Where("category = ?", category)
	}
	posts := []models.BlogPost{}
	if err := q.Order("is_featured DESC").Order("created_at DESC").Find(&posts).Error; err != nil {
		return nil, apperrors.Persistence("list posts", err)
	}
	return posts, nil
}

func (s *Service) BlogPost(ctx context.Context, slug string) (*models.BlogPost, bool, error) {
	var p models.BlogPost
	err := s.db.WithContext(ctx).Where("slug = ? AND published = ?", slug, true).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Persistence("find post", err)
	}
	return &p, true, nil
}

func (s *Service) AdminPosts(ctx context.Context, sess *auth.Session) ([]models.BlogPost, error) {
	if err := auth.RequireAdminRole(sess); err != nil {
		return nil, err
	}
	posts := []models.BlogPost{}
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&posts).Error; err != nil {
		return nil, apperrors.Persistence("list posts", err)
	}
	return posts, nil
}

// SitemapEntries returns the slugs of every publicly visible listing and post.
func (s *Service) SitemapEntries(ctx context.Context) (listings []models.BusinessListing, posts []models.BlogPost, err error) {
	db := s.db.WithContext(ctx)
	err = db.Select("slug", "updated_at").
		Where("is_published = ? AND approval_status = ?", true, models.StatusApproved).
		Order("updated_at DESC").Find(&listings).Error
	if err != nil {
		return nil, nil, apperrors.Persistence("sitemap listings", err)
	}
	err = db.Select("slug", "updated_at").Where("published = ?", true).
		Order("updated_at DESC").Find(&posts).Error
	if err != nil {
		return nil, nil, apperrors.Persistence("sitemap posts", err)
	}
	return listings, posts, nil
}
