// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects an issued access token.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time
}

// User represents a registered account. PwdHash never leaves the server.
type User struct {
	ID        uuid.UUID // PK
	Email     string    // unique, lower-cased
	Name      string
	Bio       string
	Avatar    string
	PwdHash   []byte // bcrypt
	CredVer   int64  // bumped on password change; embedded in tokens
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile holds the user-editable identity fields.
type Profile struct {
	Name   string `validate:"required,nonul,max=50"`
	Bio    string `validate:"nonul,max=200"`
	Avatar string `validate:"nonul,max=500"`
}

// Status is the task workflow state.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Priority is the task importance.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is a single unit of work owned by exactly one user.
type Task struct {
	ID          uuid.UUID
	UserID      uuid.UUID // owner, FK -> users.id
	Title       string
	Description string
	Status      Status
	Priority    Priority
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskFields is the client-editable part of a task. It deliberately has no owner.
type TaskFields struct {
	Title       string   `validate:"required,nonul,max=100"`
	Description string   `validate:"nonul,max=500"`
	Status      Status   `validate:"omitempty,oneof=todo in-progress done"`
	Priority    Priority `validate:"omitempty,oneof=low medium high"`
	DueDate     *time.Time
}

// SortField is a whitelisted task ordering column.
type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
	SortDueDate   SortField = "dueDate"
	SortPriority  SortField = "priority"
	SortTitle     SortField = "title"
	SortStatus    SortField = "status"
)

// Sort is an ordering over one field.
type Sort struct {
	Field SortField
	Desc  bool
}

// TaskFilter is the normalized listing criteria, always applied with an owner.
type TaskFilter struct {
	Status   Status   // empty = any
	Priority Priority // empty = any
	Search   string   // case-insensitive substring over title or description
	Sort     Sort
	Page     int // >= 1
	Limit    int // page size
}

// Offset returns the number of rows to skip.
func (f TaskFilter) Offset() int { return (f.Page - 1) * f.Limit }

// TaskPage is one page of a listing.
type TaskPage struct {
	Tasks []Task
	Total int64
	Page  int
	Pages int
}

// TaskStats counts an owner's tasks per status. Total covers every owned task.
type TaskStats struct {
	Todo       int64 `json:"todo"`
	InProgress int64 `json:"in-progress"`
	Done       int64 `json:"done"`
	Total      int64 `json:"total"`
}
