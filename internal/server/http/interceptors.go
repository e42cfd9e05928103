package httpserver

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Logging logs request metadata and records request metrics. Bodies are never logged.
func Logging(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// commit the error response so the status is known
				c.Error(err)
			}
			dur := time.Since(start)

			req := c.Request()
			route := c.Path()
			if route == "" || errors.Is(err, echo.ErrNotFound) || errors.Is(err, echo.ErrMethodNotAllowed) {
				route = "unmatched"
			}
			code := c.Response().Status

			httpRequests.WithLabelValues(req.Method, route, strconv.Itoa(code)).Inc()
			httpDuration.WithLabelValues(req.Method, route).Observe(dur.Seconds())

			log.Info("http",
				zap.String("method", req.Method),
				zap.String("route", route),
				zap.Int("code", code),
				zap.Duration("dur", dur),
				zap.String("ip", c.RealIP()),
			)
			return nil
		}
	}
}

// Recover turns a handler panic into a 500 and logs the stack.
func Recover(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic",
						zap.Any("reason", r),
						zap.ByteString("stack", debug.Stack()),
						zap.String("route", c.Path()),
					)
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(c)
		}
	}
}
