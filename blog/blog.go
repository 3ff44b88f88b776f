package blog

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"rankwell/apperrors"
	"rankwell/cache"
	"rankwell/catalog"
	"rankwell/models"
	"rankwell/query"
)

type BlogModule struct {
	queries *query.Service
	cache   *cache.FileCache
	log     *zap.Logger
}

// Raw HTML is escaped: listing descriptions come from any signed-in user.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
)

func NewBlogModule(queries *query.Service, fc *cache.FileCache, log *zap.Logger) *BlogModule {
	return &BlogModule{queries: queries, cache: fc, log: log}
}

func (b *BlogModule) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/blog", b.cache.Middleware(cache.GroupBlog))
	{
		group.GET("", b.index)
		group.GET("/:slug", b.post)
	}
}

// RenderMarkdown converts markdown to HTML. On a render error the input is
// returned unchanged.
func RenderMarkdown(src string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return src
	}
	return buf.String()
}

type postSummary struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Slug             string   `json:"slug"`
	Category         string   `json:"category"`
	Excerpt          string   `json:"excerpt"`
	FeaturedImageURL string   `json:"featured_image_url,omitempty"`
	FeaturedImageAlt string   `json:"featured_image_alt,omitempty"`
	Tags             []string `json:"tags"`
	ReadTime         int      `json:"read_time"`
	IsFeatured       bool     `json:"is_featured"`
	CreatedAt        string   `json:"created_at"`
}

func summarize(p models.BlogPost) postSummary {
	return postSummary{
		ID:               p.ID,
		Title:            p.Title,
		Slug:             p.Slug,
		Category:         p.Category,
		Excerpt:          p.Excerpt,
		FeaturedImageURL: p.FeaturedImageURL,
		FeaturedImageAlt: p.FeaturedImageAlt,
		Tags:             p.Tags,
		ReadTime:         p.ReadTime,
		IsFeatured:       p.IsFeatured,
		CreatedAt:        p.CreatedAt.Format("2006-01-02"),
	}
}

func (b *BlogModule) index(c *gin.Context) {
	category := c.DefaultQuery("category", catalog.All)

	posts, err := b.queries.BlogFeed(c.Request.Context(), category)
	if err != nil {
		b.fail(c, err)
		return
	}

	summaries := make([]postSummary, 0, len(posts))
	for _, p := range posts {
		summaries = append(summaries, summarize(p))
	}
	c.JSON(http.StatusOK, gin.H{
		"posts":      summaries,
		"categories": catalog.BlogCategories,
		"category":   category,
	})
}

func (b *BlogModule) post(c *gin.Context) {
	p, found, err := b.queries.BlogPost(c.Request.Context(), c.Param("slug"))
	if err != nil {
		b.fail(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"kind": "not_found", "message": "Post not found", "redirect": "/blog"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"post":        p,
		"contentHTML": RenderMarkdown(p.Content),
	})
}

func (b *BlogModule) fail(c *gin.Context, err error) {
	n := apperrors.Notify(err)
	b.log.Error("blog request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(n.Status, n)
}
