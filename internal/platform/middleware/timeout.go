package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout puts a deadline on each request context. Handlers must
// honour the context: queries abort and open transactions roll back when it
// expires. The handler writes into a buffer, so a request that outlives the
// deadline is answered with a 504 instead of whatever the handler produced.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))

			res := c.Response()
			original := res.Writer
			buf := &bufferedWriter{ResponseWriter: original, header: original.Header().Clone()}
			res.Writer = buf
			defer func() { res.Writer = original }()

			err := next(c)
			res.Writer = original

			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				res.Committed = false
				res.Status = http.StatusOK
				res.Size = 0
				return c.JSON(http.StatusGatewayTimeout, map[string]string{
					"message": "request processing exceeded the allowed time limit",
				})
			}

			h := original.Header()
			for k := range h {
				if _, ok := buf.header[k]; !ok {
					h.Del(k)
				}
			}
			for k, v := range buf.header {
				h[k] = v
			}
			if buf.status != 0 {
				original.WriteHeader(buf.status)
				if _, werr := original.Write(buf.body.Bytes()); werr != nil && err == nil {
					err = werr
				}
			}
			return err
		}
	}
}
