package admin

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rankwell/apperrors"
	"rankwell/auth"
	"rankwell/cache"
	"rankwell/draft"
	"rankwell/editor"
	"rankwell/events"
	"rankwell/moderation"
	"rankwell/query"
	"rankwell/repository"
	"rankwell/submission"
	"rankwell/validation"
)

// Deps are the services the admin console works on.
type Deps struct {
	Queries    *query.Service
	Moderation *moderation.Service
	Pipeline   *submission.Pipeline
	Posts      *repository.Posts
	PostEditor *editor.PostEditor
	Hub        *events.Hub
	Cache      cache.Invalidator
}

type AdminModule struct {
	deps   Deps
	wizard *editor.Routes[*draft.PostDraft, draft.PostPatch]
	log    *zap.Logger
}

func NewAdminModule(deps Deps, log *zap.Logger) *AdminModule {
	a := &AdminModule{deps: deps, log: log}
	a.wizard = editor.NewRoutes(deps.PostEditor, a.submitPost, submission.MaxAssetSize, log)
	return a
}

func (a *AdminModule) RegisterRoutes(router *gin.Engine) {
	adminGroup := router.Group("/admin", auth.RequireAdmin)
	{
		adminGroup.GET("/listings", a.listListings)
		adminGroup.GET("/listings/stats", a.stats)
		adminGroup.GET("/listings/categories", a.categories)
		adminGroup.POST("/listings/:id/approve", a.approve)
		adminGroup.POST("/listings/:id/reject", a.reject)
		adminGroup.POST("/listings/:id/feature", a.toggleFeatured)
		adminGroup.POST("/listings/:id/publish", a.togglePublished)
		adminGroup.PATCH("/listings/:id", a.quickEdit)
		adminGroup.DELETE("/listings/:id", a.deleteListing)

		adminGroup.GET("/posts", a.listPosts)
		adminGroup.DELETE("/posts/:id", a.deletePost)

		adminGroup.GET("/changes", a.changes)
	}
	a.wizard.Register(adminGroup.Group("/posts/wizard"))
}

func (a *AdminModule) listListings(c *gin.Context) {
	listings, err := a.deps.Queries.AdminListings(c.Request.Context(), auth.Current(c), query.AdminListingFilter{
		Status:    c.DefaultQuery("status", "all"),
		Published: c.DefaultQuery("published", "all"),
		Category:  c.DefaultQuery("category", "all"),
		Search:    c.Query("q"),
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings, "count": len(listings)})
}

func (a *AdminModule) stats(c *gin.Context) {
	st, err := a.deps.Queries.AdminStats(c.Request.Context(), auth.Current(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (a *AdminModule) categories(c *gin.Context) {
	categories, err := a.deps.Queries.AdminCategories(c.Request.Context(), auth.Current(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (a *AdminModule) approve(c *gin.Context) {
	l, err := a.deps.Moderation.Approve(c.Request.Context(), auth.Current(c), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": l, "message": "Listing approved"})
}

func (a *AdminModule) reject(c *gin.Context) {
	var in struct {
		Reason string `json:"reason" form:"reason"`
	}
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "bad_request", "message": "Invalid request"})
		return
	}
	l, err := a.deps.Moderation.Reject(c.Request.Context(), auth.Current(c), c.Param("id"), in.Reason)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": l, "message": "Listing rejected"})
}

func (a *AdminModule) toggleFeatured(c *gin.Context) {
	l, err := a.deps.Moderation.ToggleFeatured(c.Request.Context(), auth.Current(c), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": l})
}

func (a *AdminModule) togglePublished(c *gin.Context) {
	l, err := a.deps.Moderation.TogglePublished(c.Request.Context(), auth.Current(c), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": l})
}

func (a *AdminModule) quickEdit(c *gin.Context) {
	var in validation.QuickEdit
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "bad_request", "message": "Invalid request"})
		return
	}
	l, err := a.deps.Moderation.QuickEdit(c.Request.Context(), auth.Current(c), c.Param("id"), in)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": l, "message": "Listing updated"})
}

func (a *AdminModule) deleteListing(c *gin.Context) {
	if err := a.deps.Moderation.Delete(c.Request.Context(), auth.Current(c), c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Listing deleted"})
}

func (a *AdminModule) listPosts(c *gin.Context) {
	posts, err := a.deps.Queries.AdminPosts(c.Request.Context(), auth.Current(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "count": len(posts)})
}

func (a *AdminModule) deletePost(c *gin.Context) {
	id := c.Param("id")
	if err := a.deps.Posts.Delete(c.Request.Context(), id); err != nil {
		a.fail(c, err)
		return
	}
	if a.deps.Cache != nil {
		if err := a.deps.Cache.Invalidate(cache.GroupBlog, cache.GroupSitemap); err != nil {
			a.log.Warn("cache invalidation failed", zap.Error(err))
		}
	}
	a.log.Info("post deleted", zap.String("id", id))
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

func (a *AdminModule) submitPost(ctx context.Context, s *auth.Session, d *draft.PostDraft, upload *editor.Upload) (any, error) {
	var asset *submission.Asset
	if upload != nil {
		asset = &submission.Asset{Filename: upload.Filename, Data: upload.Data}
	}
	return a.deps.Pipeline.SubmitPost(ctx, s, d, asset)
}

// changes streams row changes as server-sent events until the client goes away.
func (a *AdminModule) changes(c *gin.Context) {
	ch, release := a.deps.Hub.Subscribe()
	defer release()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case change, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("change", change)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func (a *AdminModule) fail(c *gin.Context, err error) {
	n := apperrors.Notify(err)
	if n.Status >= http.StatusInternalServerError {
		a.log.Error("admin request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(n.Status, n)
}
