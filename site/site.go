package site

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rankwell/apperrors"
	"rankwell/auth"
	"rankwell/blog"
	"rankwell/cache"
	"rankwell/catalog"
	"rankwell/draft"
	"rankwell/editor"
	"rankwell/query"
	"rankwell/submission"
)

type SiteModule struct {
	queries  *query.Service
	pipeline *submission.Pipeline
	wizard   *editor.Routes[*draft.ListingDraft, draft.ListingPatch]
	cache    *cache.FileCache
	domain   string
	log      *zap.Logger
}

func NewSiteModule(queries *query.Service, pipeline *submission.Pipeline, listingEditor *editor.ListingEditor, fc *cache.FileCache, domain string, log *zap.Logger) *SiteModule {
	s := &SiteModule{
		queries:  queries,
		pipeline: pipeline,
		cache:    fc,
		domain:   strings.TrimSuffix(domain, "/"),
		log:      log,
	}
	s.wizard = editor.NewRoutes(listingEditor, s.submitListing, submission.MaxAssetSize, log)
	return s
}

func (s *SiteModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/categories", s.categories)
	router.GET("/api/listings", s.cache.Middleware(cache.GroupListings), s.listListings)
	router.GET("/api/listings/:slug", s.showListing)
	router.GET("/sitemap.xml", s.cache.Middleware(cache.GroupSitemap), s.sitemap)

	s.wizard.Register(router.Group("/api/listings/wizard", auth.RequireAuth))
}

func (s *SiteModule) categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"listingCategories": catalog.ListingCategories,
		"priceRanges":       catalog.PriceRanges,
		"blogCategories":    catalog.BlogCategories,
		"sorts":             catalog.ListingSorts,
	})
}

func (s *SiteModule) listListings(c *gin.Context) {
	sort := c.DefaultQuery("sort", catalog.SortNewest)
	if !catalog.IsListingSort(sort) {
		sort = catalog.SortNewest
	}
	listings, err := s.queries.PublicListings(c.Request.Context(), query.ListingFilter{
		Category: c.DefaultQuery("category", catalog.All),
		Search:   c.Query("q"),
		Sort:     sort,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings, "count": len(listings)})
}

func (s *SiteModule) showListing(c *gin.Context) {
	l, found, err := s.queries.PublicListing(c.Request.Context(), c.Param("slug"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"kind": "not_found", "message": "Listing not found", "redirect": "/listings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listing":         l,
		"categoryLabel":   catalog.ListingCategoryLabel(l.Category),
		"descriptionHTML": blog.RenderMarkdown(l.Description),
	})
}

func (s *SiteModule) submitListing(ctx context.Context, sess *auth.Session, d *draft.ListingDraft, upload *editor.Upload) (any, error) {
	var asset *submission.Asset
	if upload != nil {
		asset = &submission.Asset{Filename: upload.Filename, Data: upload.Data}
	}
	return s.pipeline.SubmitListing(ctx, sess, d, asset)
}

func (s *SiteModule) sitemap(c *gin.Context) {
	listings, posts, err := s.queries.SitemapEntries(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	var sitemap strings.Builder
	sitemap.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sitemap.WriteString("\n")
	sitemap.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	sitemap.WriteString("\n")

	writeURL(&sitemap, s.domain+"/", time.Time{}, "daily", "1.0")
	writeURL(&sitemap, s.domain+"/listings", time.Time{}, "daily", "0.9")
	writeURL(&sitemap, s.domain+"/blog", time.Time{}, "daily", "0.8")

	for _, l := range listings {
		writeURL(&sitemap, s.domain+"/listings/"+l.Slug, l.UpdatedAt, "weekly", "0.7")
	}
	for _, p := range posts {
		writeURL(&sitemap, s.domain+"/blog/"+p.Slug, p.UpdatedAt, "monthly", "0.6")
	}

	sitemap.WriteString("</urlset>\n")

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, sitemap.String())
}

func writeURL(b *strings.Builder, loc string, lastmod time.Time, changefreq, priority string) {
	b.WriteString("  <url>\n")
	b.WriteString("    <loc>" + loc + "</loc>\n")
	if !lastmod.IsZero() {
		b.WriteString("    <lastmod>" + lastmod.Format(time.RFC3339) + "</lastmod>\n")
	}
	b.WriteString("    <changefreq>" + changefreq + "</changefreq>\n")
	b.WriteString("    <priority>" + priority + "</priority>\n")
	b.WriteString("  </url>\n")
}

func (s *SiteModule) fail(c *gin.Context, err error) {
	n := apperrors.Notify(err)
	if n.Status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(n.Status, n)
}
