package memory

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/taskkeeper/internal/errs"
	"github.com/and161185/taskkeeper/internal/model"
	"github.com/and161185/taskkeeper/internal/repository"
)

var (
	_ repository.UserRepository = (*Users)(nil)
	_ repository.TaskRepository = (*Tasks)(nil)
)

// steppingClock advances one second per call so creation order is deterministic.
func steppingClock(s *Store) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	s.now = func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func addTask(t *testing.T, r *Tasks, owner uuid.UUID, title string, st model.Status, pr model.Priority) model.Task {
	t.Helper()
	tk := model.Task{ID: uuid.Must(uuid.NewV4()), UserID: owner, Title: title, Status: st, Priority: pr}
	require.NoError(t, r.Create(context.Background(), &tk))
	return tk
}

func TestUsers_CreateGetDuplicate(t *testing.T) {
	t.Parallel()

	r := New().Users()
	ctx := context.Background()
	u := &model.User{ID: uuid.Must(uuid.NewV4()), Email: "a@example.com", Name: "A", PwdHash: []byte("h")}

	require.NoError(t, r.Create(ctx, u))
	require.False(t, u.CreatedAt.IsZero())

	dup := &model.User{ID: uuid.Must(uuid.NewV4()), Email: "a@example.com"}
	require.ErrorIs(t, r.Create(ctx, dup), errs.ErrAlreadyExists)

	got, err := r.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = r.GetByID(ctx, uuid.Must(uuid.NewV4()))
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUsers_UpdatePassword_VersionCheck(t *testing.T) {
	t.Parallel()

	r := New().Users()
	ctx := context.Background()
	u := &model.User{ID: uuid.Must(uuid.NewV4()), Email: "a@example.com", PwdHash: []byte("old")}
	require.NoError(t, r.Create(ctx, u))

	require.NoError(t, r.UpdatePassword(ctx, u.ID, []byte("new"), 0))
	require.ErrorIs(t, r.UpdatePassword(ctx, u.ID, []byte("newer"), 0), errs.ErrNotFound)

	got, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, []byte("new"), got.PwdHash)
	require.Equal(t, int64(1), got.CredVer)
}

func TestTasks_ListFilterSortPage(t *testing.T) {
	t.Parallel()

	s := New()
	steppingClock(s)
	r := s.Tasks()
	ctx := context.Background()
	alice := uuid.Must(uuid.NewV4())
	bob := uuid.Must(uuid.NewV4())

	first := addTask(t, r, alice, "Buy milk", model.StatusTodo, model.PriorityLow)
	addTask(t, r, alice, "Write report", model.StatusDone, model.PriorityHigh)
	last := addTask(t, r, alice, "call MOM", model.StatusTodo, model.PriorityMedium)
	addTask(t, r, bob, "Buy milk", model.StatusTodo, model.PriorityLow)

	all, total, err := r.List(ctx, alice, model.TaskFilter{Sort: model.Sort{Field: model.SortCreatedAt, Desc: true}, Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Equal(t, last.ID, all[0].ID)
	require.Equal(t, first.ID, all[2].ID)
	for _, tk := range all {
		require.Equal(t, alice, tk.UserID)
	}

	todo, total, err := r.List(ctx, alice, model.TaskFilter{Status: model.StatusTodo, Search: "mom", Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, last.ID, todo[0].ID)

	byPrio, _, err := r.List(ctx, alice, model.TaskFilter{Sort: model.Sort{Field: model.SortPriority, Desc: true}, Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Equal(t, model.PriorityHigh, byPrio[0].Priority)
	require.Equal(t, model.PriorityLow, byPrio[2].Priority)

	page2, total, err := r.List(ctx, alice, model.TaskFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, page2, 1)

	beyond, _, err := r.List(ctx, alice, model.TaskFilter{Page: 5, Limit: 2})
	require.NoError(t, err)
	require.NotNil(t, beyond)
	require.Empty(t, beyond)
}

func TestTasks_DueDateSortNilsLast(t *testing.T) {
	t.Parallel()

	s := New()
	r := s.Tasks()
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	d1 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 1, 0)

	none := addTask(t, r, owner, "none", model.StatusTodo, model.PriorityLow)
	for _, d := range []time.Time{d2, d1} {
		tk := model.Task{ID: uuid.Must(uuid.NewV4()), UserID: owner, Title: "dated", DueDate: &d}
		require.NoError(t, r.Create(ctx, &tk))
	}

	for _, desc := range []bool{false, true} {
		got, _, err := r.List(ctx, owner, model.TaskFilter{Sort: model.Sort{Field: model.SortDueDate, Desc: desc}, Page: 1, Limit: 10})
		require.NoError(t, err)
		require.Len(t, got, 3)
		require.Equal(t, none.ID, got[2].ID)
	}
}

func TestTasks_OwnerScopedMutations(t *testing.T) {
	t.Parallel()

	s := New()
	r := s.Tasks()
	ctx := context.Background()
	alice := uuid.Must(uuid.NewV4())
	bob := uuid.Must(uuid.NewV4())
	tk := addTask(t, r, alice, "mine", model.StatusTodo, model.PriorityLow)

	_, err := r.Update(ctx, bob, tk.ID, model.TaskFields{Title: "stolen"})
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.ErrorIs(t, r.Delete(ctx, bob, tk.ID), errs.ErrNotFound)

	got, err := r.Update(ctx, alice, tk.ID, model.TaskFields{Title: "renamed", Status: model.StatusDone, Priority: model.PriorityHigh})
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Title)

	counts, err := r.CountByStatus(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"done": 1}, counts)

	require.NoError(t, r.Delete(ctx, alice, tk.ID))
	require.ErrorIs(t, r.Delete(ctx, alice, tk.ID), errs.ErrNotFound)
}
