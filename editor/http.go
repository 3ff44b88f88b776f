package editor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rankwell/apperrors"
	"rankwell/auth"
)

// Upload is an image attached to a submit request.
type Upload struct {
	Filename string
	Data     []byte
}

// SubmitFunc persists a finished draft and returns the stored record.
type SubmitFunc[D any] func(ctx context.Context, s *auth.Session, d D, upload *Upload) (any, error)

// Routes exposes one editor over HTTP under /:key, where key is "new" or a
// record id. The group is expected to carry the auth middleware.
type Routes[D any, P any] struct {
	editor   *Editor[D, P]
	submit   SubmitFunc[D]
	log      *zap.Logger
	maxImage int64
}

func NewRoutes[D any, P any](e *Editor[D, P], submit SubmitFunc[D], maxImage int64, log *zap.Logger) *Routes[D, P] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Routes[D, P]{editor: e, submit: submit, log: log, maxImage: maxImage}
}

func (r *Routes[D, P]) Register(g *gin.RouterGroup) {
	g.GET("/:key", r.open)
	g.PATCH("/:key", r.patch)
	g.DELETE("/:key", r.discard)
	g.POST("/:key/next", r.next)
	g.POST("/:key/back", r.back)
	g.POST("/:key/step/:n", r.goTo)
	g.POST("/:key/submit", r.submitDraft)
}

func (r *Routes[D, P]) open(c *gin.Context) {
	sess, err := r.editor.Open(c.Request.Context(), auth.Current(c), c.Param("key"))
	r.respond(c, sess, err)
}

func (r *Routes[D, P]) patch(c *gin.Context) {
	var p P
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "bad_request", "message": "Invalid request"})
		return
	}
	sess, err := r.editor.Patch(c.Request.Context(), auth.Current(c), c.Param("key"), p)
	r.respond(c, sess, err)
}

func (r *Routes[D, P]) discard(c *gin.Context) {
	if err := r.editor.Discard(c.Request.Context(), auth.Current(c), c.Param("key")); err != nil {
		r.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Routes[D, P]) next(c *gin.Context) {
	sess, err := r.editor.Next(c.Request.Context(), auth.Current(c), c.Param("key"))
	r.respond(c, sess, err)
}

func (r *Routes[D, P]) back(c *gin.Context) {
	sess, err := r.editor.Back(c.Request.Context(), auth.Current(c), c.Param("key"))
	r.respond(c, sess, err)
}

func (r *Routes[D, P]) goTo(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"kind": "bad_request", "message": "Invalid step"})
		return
	}
	sess, err := r.editor.GoTo(c.Request.Context(), auth.Current(c), c.Param("key"), n)
	r.respond(c, sess, err)
}

func (r *Routes[D, P]) submitDraft(c *gin.Context) {
	upload, err := r.readUpload(c)
	if err != nil {
		r.fail(c, err)
		return
	}

	s := auth.Current(c)
	var record any
	_, err = r.editor.Submit(c.Request.Context(), s, c.Param("key"), func(ctx context.Context, d D) error {
		var err error
		record, err = r.submit(ctx, s, d, upload)
		return err
	})
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"record": record, "redirect": "/dashboard"})
}

// readUpload returns the optional "image" part. A body that is not multipart
// simply has no image.
func (r *Routes[D, P]) readUpload(c *gin.Context) (*Upload, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, &apperrors.AssetUploadError{Err: err}
	}
	f, err := fh.Open()
	if err != nil {
		return nil, &apperrors.AssetUploadError{Err: err}
	}
	defer f.Close()

	// one byte past the limit is enough for the pipeline to reject it
	data, err := io.ReadAll(io.LimitReader(f, r.maxImage+1))
	if err != nil {
		return nil, &apperrors.AssetUploadError{Err: err}
	}
	return &Upload{Filename: fh.Filename, Data: data}, nil
}

func (r *Routes[D, P]) respond(c *gin.Context, sess *Session[D], err error) {
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (r *Routes[D, P]) fail(c *gin.Context, err error) {
	n := apperrors.Notify(err)
	if n.Status >= http.StatusInternalServerError {
		r.log.Error("wizard request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(n.Status, n)
}
