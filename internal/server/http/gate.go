package httpserver

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/and161185/taskkeeper/internal/errs"
	"github.com/and161185/taskkeeper/internal/model"
	"github.com/and161185/taskkeeper/internal/service"
)

// AccessGate resolves the bearer token to a user before any handler runs.
// Every rejection leaves as the same bare errs.ErrUnauthorized; the reason is
// only logged and counted.
func AccessGate(auth service.AuthService, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			raw := bearerToken(req.Header.Get(echo.HeaderAuthorization))

			u, err := auth.Authenticate(req.Context(), raw)
			if err != nil {
				var ae *errs.AuthError
				if !errors.As(err, &ae) {
					return err
				}
				authRejections.WithLabelValues(string(ae.Reason)).Inc()
				log.Debug("auth rejected",
					zap.String("reason", string(ae.Reason)),
					zap.String("route", c.Path()),
					zap.String("ip", c.RealIP()),
				)
				return errs.ErrUnauthorized
			}

			c.SetRequest(req.WithContext(WithUser(req.Context(), u)))
			return next(c)
		}
	}
}

// bearerToken extracts "<token>" from "Bearer <token>". Anything else yields "".
func bearerToken(h string) string {
	const prefix = "bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func currentUser(c echo.Context) (model.User, error) {
	u, ok := UserFromCtx(c.Request().Context())
	if !ok {
		return model.User{}, errs.ErrUnauthorized
	}
	return u, nil
}
