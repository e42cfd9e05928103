// Package memory implements the repository interfaces in process memory.
// It backs the server's -storage=memory mode and end-to-end tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/taskkeeper/internal/errs"
	"github.com/and161185/taskkeeper/internal/model"
)

// Store holds users and tasks. The zero value is not usable; call New.
type Store struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]model.User
	byEmail map[string]uuid.UUID
	tasks   map[uuid.UUID]model.Task
	now     func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:   map[uuid.UUID]model.User{},
		byEmail: map[string]uuid.UUID{},
		tasks:   map[uuid.UUID]model.Task{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Users returns the store as a UserRepository.
func (s *Store) Users() *Users { return &Users{s: s} }

// Tasks returns the store as a TaskRepository.
func (s *Store) Tasks() *Tasks { return &Tasks{s: s} }

// Users implements repository.UserRepository.
type Users struct{ s *Store }

// Create inserts u; duplicate email yields errs.ErrAlreadyExists.
func (r *Users) Create(_ context.Context, u *model.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[u.Email]; taken {
		return errs.ErrAlreadyExists
	}
	now := s.now()
	u.CredVer = 0
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	cp.PwdHash = append([]byte(nil), u.PwdHash...)
	s.users[u.ID] = cp
	s.byEmail[u.Email] = u.ID
	return nil
}

// GetByID loads a user by ID.
func (r *Users) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

// GetByEmail loads a user by email.
func (r *Users) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	id, ok := r.s.byEmail[email]
	r.s.mu.RUnlock()
	if !ok {
		return nil, errs.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// UpdateProfile replaces name, bio and avatar.
func (r *Users) UpdateProfile(_ context.Context, id uuid.UUID, p model.Profile) (*model.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	u.Name, u.Bio, u.Avatar = p.Name, p.Bio, p.Avatar
	u.UpdatedAt = s.now()
	s.users[id] = u
	return &u, nil
}

// UpdatePassword swaps the hash if the credential version still matches.
func (r *Users) UpdatePassword(_ context.Context, id uuid.UUID, hash []byte, expectVer int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.CredVer != expectVer {
		return errs.ErrNotFound
	}
	u.PwdHash = append([]byte(nil), hash...)
	u.CredVer++
	u.UpdatedAt = s.now()
	s.users[id] = u
	return nil
}

// Tasks implements repository.TaskRepository.
type Tasks struct{ s *Store }

// Create inserts t.
func (r *Tasks) Create(_ context.Context, t *model.Task) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	cp := *t
	cp.DueDate = copyTime(t.DueDate)
	s.tasks[t.ID] = cp
	return nil
}

// List filters, sorts and pages the owner's tasks.
func (r *Tasks) List(_ context.Context, userID uuid.UUID, f model.TaskFilter) ([]model.Task, int64, error) {
	r.s.mu.RLock()
	matched := make([]model.Task, 0)
	for _, t := range r.s.tasks {
		if t.UserID == userID && matches(t, f) {
			matched = append(matched, t)
		}
	}
	r.s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return less(matched[i], matched[j], f.Sort) })

	total := int64(len(matched))
	from := f.Offset()
	if from >= len(matched) {
		return []model.Task{}, total, nil
	}
	to := from + f.Limit
	if to > len(matched) {
		to = len(matched)
	}
	return matched[from:to], total, nil
}

// CountByStatus groups the owner's tasks by status.
func (r *Tasks) CountByStatus(_ context.Context, userID uuid.UUID) (map[string]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := map[string]int64{}
	for _, t := range r.s.tasks {
		if t.UserID == userID {
			out[string(t.Status)]++
		}
	}
	return out, nil
}

// Update replaces the editable fields of an owned task.
func (r *Tasks) Update(_ context.Context, userID, id uuid.UUID, f model.TaskFields) (*model.Task, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return nil, errs.ErrNotFound
	}
	t.Title, t.Description, t.Status, t.Priority = f.Title, f.Description, f.Status, f.Priority
	t.DueDate = copyTime(f.DueDate)
	t.UpdatedAt = s.now()
	s.tasks[id] = t
	return &t, nil
}

// Delete removes an owned task.
func (r *Tasks) Delete(_ context.Context, userID, id uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != userID {
		return errs.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func matches(t model.Task, f model.TaskFilter) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	return true
}

var (
	priorityRank = map[model.Priority]int{model.PriorityLow: 0, model.PriorityMedium: 1, model.PriorityHigh: 2}
	statusRank   = map[model.Status]int{model.StatusTodo: 0, model.StatusInProgress: 1, model.StatusDone: 2}
)

func rank[K comparable](m map[K]int, k K) int {
	if r, ok := m[k]; ok {
		return r
	}
	return len(m)
}

// less orders a before b; nil due dates always sort last, ids break ties.
func less(a, b model.Task, s model.Sort) bool {
	var c int
	switch s.Field {
	case model.SortUpdatedAt:
		c = a.UpdatedAt.Compare(b.UpdatedAt)
	case model.SortDueDate:
		switch {
		case a.DueDate == nil && b.DueDate == nil:
		case a.DueDate == nil:
			return false
		case b.DueDate == nil:
			return true
		default:
			c = a.DueDate.Compare(*b.DueDate)
		}
	case model.SortTitle:
		c = strings.Compare(a.Title, b.Title)
	case model.SortPriority:
		c = rank(priorityRank, a.Priority) - rank(priorityRank, b.Priority)
	case model.SortStatus:
		c = rank(statusRank, a.Status) - rank(statusRank, b.Status)
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if c == 0 {
		c = strings.Compare(a.ID.String(), b.ID.String())
	}
	if s.Desc {
		return c > 0
	}
	return c < 0
}
