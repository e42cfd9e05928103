package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/and161185/taskkeeper/internal/convert"
	"github.com/and161185/taskkeeper/internal/errs"
	"github.com/and161185/taskkeeper/internal/service"
)

// bind runs echo's binder. Its 400s carry decoder internals, so they are
// replaced by a plain validation error; 413 and 415 pass through.
func bind(c echo.Context, dst any) error {
	err := c.Bind(dst)
	if err == nil {
		return nil
	}
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code != http.StatusBadRequest {
		return he
	}
	return errs.Validation("", "request body must be valid JSON")
}

// Health reports liveness.
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, convert.HealthResponse{Status: "ok", Timestamp: s.now().UTC()})
}

// --- Auth ---

// Register creates an account and signs it in.
func (s *Server) Register(c echo.Context) error {
	var req convert.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tok, u, err := s.auth.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, convert.ToAuthResponse(tok, u))
}

// Login authenticates by email and password.
func (s *Server) Login(c echo.Context) error {
	var req convert.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tok, u, err := s.auth.Login(c.Request().Context(), req.Email, req.Password, c.RealIP())
	if err != nil {
		loginAttempts.WithLabelValues(loginOutcome(err)).Inc()
		return err
	}
	loginAttempts.WithLabelValues("ok").Inc()
	return c.JSON(http.StatusOK, convert.ToAuthResponse(tok, u))
}

func loginOutcome(err error) string {
	switch {
	case errors.Is(err, errs.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, errs.ErrUnauthorized):
		return "bad_credentials"
	case errors.Is(err, errs.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}

// Me returns the caller's identity.
func (s *Server) Me(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.UserEnvelope{User: convert.ToUserResponse(u)})
}

// UpdateProfile replaces name, bio and avatar.
func (s *Server) UpdateProfile(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	var req convert.ProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	upd, err := s.auth.UpdateProfile(c.Request().Context(), u.ID, convert.FromProfileRequest(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.UserEnvelope{User: convert.ToUserResponse(upd), Message: "Profile updated successfully."})
}

// ChangePassword swaps the caller's password. Previously issued tokens stop working.
func (s *Server) ChangePassword(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	var req convert.PasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.auth.ChangePassword(c.Request().Context(), u.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.MessageResponse{Message: "Password changed successfully."})
}

// --- Tasks ---

// ListTasks returns one filtered page of the caller's tasks.
func (s *Server) ListTasks(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := s.tasks.List(c.Request().Context(), u.ID, service.Criteria{
		Status:   c.QueryParam("status"),
		Priority: c.QueryParam("priority"),
		Search:   c.QueryParam("search"),
		Sort:     c.QueryParam("sort"),
		Page:     c.QueryParam("page"),
		Limit:    c.QueryParam("limit"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.ToTaskListResponse(page))
}

// TaskStats counts the caller's tasks per status.
func (s *Server) TaskStats(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	st, err := s.tasks.Stats(c.Request().Context(), u.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.StatsResponse{Stats: st})
}

// CreateTask stores a new task owned by the caller.
func (s *Server) CreateTask(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	var req convert.TaskRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	fields, err := convert.FromTaskRequest(req)
	if err != nil {
		return err
	}
	t, err := s.tasks.Create(c.Request().Context(), u.ID, fields)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, convert.TaskEnvelope{Task: convert.ToTaskResponse(t), Message: "Task created."})
}

// UpdateTask replaces every editable field of one of the caller's tasks.
func (s *Server) UpdateTask(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := service.ParseTaskID(c.Param("id"))
	if err != nil {
		return err
	}
	var req convert.TaskRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	fields, err := convert.FromTaskRequest(req)
	if err != nil {
		return err
	}
	t, err := s.tasks.Update(c.Request().Context(), u.ID, id, fields)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.TaskEnvelope{Task: convert.ToTaskResponse(t), Message: "Task updated."})
}

// DeleteTask removes one of the caller's tasks.
func (s *Server) DeleteTask(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := service.ParseTaskID(c.Param("id"))
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(c.Request().Context(), u.ID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convert.MessageResponse{Message: "Task deleted."})
}
