package cache

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
)

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware caches successful GET responses of a public route under group.
// The key is the full request URI, so query strings get their own entries.
func (fc *FileCache) Middleware(group string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.URL.RequestURI()
		if contentType, body, found := fc.Read(group, key); found {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, contentType, body)
			c.Abort()
			return
		}

		c.Header("X-Cache", "MISS")
		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBuffer(nil),
		}
		c.Writer = writer

		c.Next()

		if c.Writer.Status() == http.StatusOK && writer.body.Len() > 0 {
			_ = fc.Write(group, key, c.Writer.Header().Get("Content-Type"), writer.body.Bytes())
		}
	}
}
