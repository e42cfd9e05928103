// Package convert maps domain models to and from the JSON wire types of the
// HTTP API. Response types never carry a password credential.
package convert

import (
	"strings"
	"time"

	"github.com/and161185/taskkeeper/internal/errs"
	"github.com/and161185/taskkeeper/internal/model"
)

// --- requests (client -> server) ---

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileRequest struct {
	Name   string `json:"name"`
	Bio    string `json:"bio"`
	Avatar string `json:"avatar"`
}

type PasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// TaskRequest is the body of create and update. It has no owner field, so
// an owner smuggled into the body is dropped by the decoder.
type TaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
}

// dueDateLayouts are tried in order.
var dueDateLayouts = []string{time.RFC3339Nano, "2006-01-02"}

// FromProfileRequest converts r to a model.Profile.
func FromProfileRequest(r ProfileRequest) model.Profile {
	return model.Profile{Name: r.Name, Bio: r.Bio, Avatar: r.Avatar}
}

// FromTaskRequest converts r to editable task fields. An empty or null due
// date clears it.
func FromTaskRequest(r TaskRequest) (model.TaskFields, error) {
	f := model.TaskFields{
		Title:       r.Title,
		Description: r.Description,
		Status:      model.Status(r.Status),
		Priority:    model.Priority(r.Priority),
	}
	if r.DueDate == nil || strings.TrimSpace(*r.DueDate) == "" {
		return f, nil
	}
	raw := strings.TrimSpace(*r.DueDate)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			f.DueDate = &t
			return f, nil
		}
	}
	return model.TaskFields{}, errs.Validation("dueDate", "must be an RFC 3339 timestamp or YYYY-MM-DD date")
}

// ToTaskRequest is the inverse of FromTaskRequest, used by the CLI.
func ToTaskRequest(f model.TaskFields) TaskRequest {
	r := TaskRequest{
		Title:       f.Title,
		Description: f.Description,
		Status:      string(f.Status),
		Priority:    string(f.Priority),
	}
	if f.DueDate != nil {
		s := f.DueDate.UTC().Format(time.RFC3339)
		r.DueDate = &s
	}
	return r
}

// --- responses (server -> client) ---

type UserResponse struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Bio       string    `json:"bio"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserEnvelope struct {
	User    UserResponse `json:"user"`
	Message string       `json:"message,omitempty"`
}

type TaskResponse struct {
	ID          string     `json:"_id"`
	User        string     `json:"user"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type TaskEnvelope struct {
	Task    TaskResponse `json:"task"`
	Message string       `json:"message,omitempty"`
}

type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
}

type TaskListResponse struct {
	Tasks      []TaskResponse `json:"tasks"`
	Pagination Pagination     `json:"pagination"`
}

type StatsResponse struct {
	Stats model.TaskStats `json:"stats"`
}

// MessageResponse is the body of every error and of bodiless successes.
type MessageResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ToUserResponse drops the credential and version.
func ToUserResponse(u model.User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Bio:       u.Bio,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}

// ToAuthResponse pairs a token with its user.
func ToAuthResponse(t model.Tokens, u model.User) AuthResponse {
	return AuthResponse{Token: t.AccessToken, User: ToUserResponse(u)}
}

func ToTaskResponse(t model.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID.String(),
		User:        t.UserID.String(),
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// ToTaskListResponse converts a page. Tasks is never null on the wire.
func ToTaskListResponse(p model.TaskPage) TaskListResponse {
	out := TaskListResponse{
		Tasks:      make([]TaskResponse, 0, len(p.Tasks)),
		Pagination: Pagination{Total: p.Total, Page: p.Page, Pages: p.Pages},
	}
	for _, t := range p.Tasks {
		out.Tasks = append(out.Tasks, ToTaskResponse(t))
	}
	return out
}
