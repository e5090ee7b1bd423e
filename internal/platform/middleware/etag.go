package middleware

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ETag buffers successful GET responses, tags them with a strong ETag over
// the body and answers a matching If-None-Match with 304. Responses are
// marked private since they depend on the caller's credentials.
func ETag() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}

			res := c.Response()
			original := res.Writer
			buf := &bufferedWriter{ResponseWriter: original, header: original.Header()}
			res.Writer = buf

			err := next(c)
			res.Writer = original
			if err != nil {
				return err
			}

			if buf.status == 0 {
				return nil
			}
			h := original.Header()
			if buf.status < 200 || buf.status >= 300 {
				original.WriteHeader(buf.status)
				_, werr := original.Write(buf.body.Bytes())
				return werr
			}

			sum := sha256.Sum256(buf.body.Bytes())
			tag := `"` + hex.EncodeToString(sum[:16]) + `"`
			h.Set("ETag", tag)
			h.Set("Cache-Control", "private, no-cache")
			h.Add("Vary", "Authorization")

			if matchesETag(c.Request().Header.Get("If-None-Match"), tag) {
				h.Del(echo.HeaderContentLength)
				original.WriteHeader(http.StatusNotModified)
				return nil
			}
			original.WriteHeader(buf.status)
			_, werr := original.Write(buf.body.Bytes())
			return werr
		}
	}
}

func matchesETag(header, tag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == tag {
			return true
		}
	}
	return false
}

// bufferedWriter holds the status and body until the ETag is known.
type bufferedWriter struct {
	http.ResponseWriter
	header http.Header
	status int
	body   bytes.Buffer
}

func (w *bufferedWriter) Header() http.Header { return w.header }

func (w *bufferedWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(b)
}

func (w *bufferedWriter) Flush() {}

func (w *bufferedWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return nil, nil, http.ErrNotSupported
}
