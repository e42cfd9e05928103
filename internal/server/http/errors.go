package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/and161185/taskkeeper/internal/convert"
	"github.com/and161185/taskkeeper/internal/errs"
)

// msgUnauthorized is the only body a 401 ever carries.
const msgUnauthorized = "not authorized"

// ErrorHandler maps domain errors to status codes and JSON bodies. Internal
// detail reaches the log only.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code, body := mapError(err, c)
		if code >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.Error(err),
				zap.String("method", c.Request().Method),
				zap.String("route", c.Path()),
			)
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			log.Warn("write error response", zap.Error(err))
		}
	}
}

func mapError(err error, c echo.Context) (int, convert.MessageResponse) {
	var ve *errs.ValidationError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &ve):
		msg := ve.Reason
		if ve.Field != "" {
			msg = ve.Field + " " + ve.Reason
		}
		return http.StatusBadRequest, convert.MessageResponse{Message: msg, Field: ve.Field}
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized, convert.MessageResponse{Message: msgUnauthorized}
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, convert.MessageResponse{Message: "not found"}
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict, convert.MessageResponse{Message: "email already registered"}
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests, convert.MessageResponse{Message: "too many attempts, try again later"}
	case errors.Is(err, errs.ErrTransient):
		return http.StatusServiceUnavailable, convert.MessageResponse{Message: "service temporarily unavailable"}
	case errors.Is(err, echo.ErrNotFound):
		return http.StatusNotFound, convert.MessageResponse{Message: "route " + c.Request().URL.Path + " not found"}
	case errors.As(err, &he):
		if he.Code >= http.StatusInternalServerError {
			return http.StatusInternalServerError, convert.MessageResponse{Message: "internal error"}
		}
		msg, ok := he.Message.(string)
		if !ok || msg == "" {
			msg = http.StatusText(he.Code)
		}
		return he.Code, convert.MessageResponse{Message: msg}
	default:
		return http.StatusInternalServerError, convert.MessageResponse{Message: "internal error"}
	}
}
