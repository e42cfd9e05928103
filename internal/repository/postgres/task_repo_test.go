package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/and161185/taskkeeper/internal/errs"
	"github.com/and161185/taskkeeper/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var taskColumns = []string{"id", "user_id", "title", "description", "status", "priority", "due_date", "created_at", "updated_at"}

func TestTaskRepo_Create(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTaskRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()
	due := now.Add(48 * time.Hour)

	tk := &model.Task{
		ID:       uuid.Must(uuid.NewV4()),
		UserID:   uuid.Must(uuid.NewV4()),
		Title:    "write tests",
		Status:   model.StatusTodo,
		Priority: model.PriorityHigh,
		DueDate:  &due,
	}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO tasks (id, user_id, title, description, status, priority, due_date) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at, updated_at`)).
		WithArgs(tk.ID, tk.UserID, tk.Title, "", "todo", "high", tk.DueDate).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	require.NoError(t, r.Create(ctx, tk))
	require.Equal(t, now, tk.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepo_Create_BadEncodingIsValidation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTaskRepo(db)
	tk := &model.Task{ID: uuid.Must(uuid.NewV4()), UserID: uuid.Must(uuid.NewV4()), Title: "a\x00b", Status: model.StatusTodo, Priority: model.PriorityLow}

	mock.ExpectQuery(`INSERT INTO tasks`).
		WithArgs(tk.ID, tk.UserID, tk.Title, "", "todo", "low", tk.DueDate).
		WillReturnError(&pgconn.PgError{Code: "22021"})
	err := r.Create(context.Background(), tk)
	require.ErrorIs(t, err, errs.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepo_List_FiltersAndPagination(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTaskRepo(db)
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	now := time.Now().UTC()

	f := model.TaskFilter{
		Status: model.StatusTodo,
		Search: "50%_off",
		Sort:   model.Sort{Field: model.SortCreatedAt, Desc: true},
		Page:   2,
		Limit:  20,
	}
	where := `user_id=$1 AND status=$2 AND (title ILIKE $3 OR description ILIKE $3)`
	pattern := `%50\%\_off%`

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM tasks WHERE ` + where)).
		WithArgs(owner, "todo", pattern).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(21)))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, title, description, status, priority, due_date, created_at, updated_at FROM tasks WHERE ` + where +
		` ORDER BY created_at DESC NULLS LAST, id DESC LIMIT $4 OFFSET $5`)).
		WithArgs(owner, "todo", pattern, 20, 20).
		WillReturnRows(pgxmock.NewRows(taskColumns).
			AddRow(uuid.Must(uuid.NewV4()), owner, "buy 50%_off", "", "todo", "low", nil, now, now))

	tasks, total, err := r.List(ctx, owner, f)
	require.NoError(t, err)
	require.Equal(t, int64(21), total)
	require.Len(t, tasks, 1)
	require.Equal(t, model.PriorityLow, tasks[0].Priority)
	require.Nil(t, tasks[0].DueDate)
	require.Equal(t, owner, tasks[0].UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepo_List_EmptySkipsSelect(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTaskRepo(db)
	owner := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM tasks WHERE user_id=$1 AND priority=$2`)).
		WithArgs(owner, "high").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))

	tasks, total, err := r.List(context.Background(), owner, model.TaskFilter{Priority: model.PriorityHigh, Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Zero(t, total)
	require.NotNil(t, tasks)
	require.Empty(t, tasks)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepo_List_CountError(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTaskRepo(db)
	owner := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(owner).
		WillReturnError(errors.New("boom"))
	_, _, err := r.List(context.Background(), owner, model.TaskFilter{Page: 1, Limit: 20})
	require.Error(t, err)
}

func TestTaskRepo_CountByStatus(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTaskRepo(db)
	owner := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, COUNT(*) FROM tasks WHERE user_id=$1 GROUP BY status`)).
		WithArgs(owner).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("todo", int64(2)).
			AddRow("in-progress", int64(1)).
			AddRow("archived", int64(4)))

	got, err := r.CountByStatus(context.Background(), owner)
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"todo": 2, "in-progress": 1, "archived": 4}, got)
}

func TestTaskRepo_Update_OwnedAndForeign(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTaskRepo(db)
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	id := uuid.Must(uuid.NewV4())
	now := time.Now().UTC()
	f := model.TaskFields{Title: "new", Status: model.StatusDone, Priority: model.PriorityMedium}
	upd := regexp.QuoteMeta(`UPDATE tasks SET title=$3, description=$4, status=$5, priority=$6, due_date=$7, updated_at=now() WHERE id=$1 AND user_id=$2 RETURNING`)

	mock.ExpectQuery(upd).
		WithArgs(id, owner, "new", "", "done", "medium", f.DueDate).
		WillReturnRows(pgxmock.NewRows(taskColumns).
			AddRow(id, owner, "new", "", "done", "medium", nil, now, now))
	got, err := r.Update(ctx, owner, id, f)
	require.NoError(t, err)
	require.Equal(t, model.StatusDone, got.Status)

	mock.ExpectQuery(upd).
		WithArgs(id, owner, "new", "", "done", "medium", f.DueDate).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Update(ctx, owner, id, f)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestTaskRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTaskRepo(db)
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	id := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`DELETE FROM tasks WHERE id=\$1 AND user_id=\$2`).
		WithArgs(id, owner).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(ctx, owner, id))

	mock.ExpectExec(`DELETE FROM tasks WHERE id=\$1 AND user_id=\$2`).
		WithArgs(id, owner).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.Delete(ctx, owner, id), errs.ErrNotFound)

	mock.ExpectExec(`DELETE FROM tasks`).
		WithArgs(id, owner).
		WillReturnError(context.DeadlineExceeded)
	require.ErrorIs(t, r.Delete(ctx, owner, id), errs.ErrTransient)
}

func Test_orderBy(t *testing.T) {
	t.Parallel()

	cases := map[model.Sort]string{
		{Field: model.SortCreatedAt, Desc: true}: "created_at DESC NULLS LAST, id DESC",
		{Field: model.SortDueDate}:               "due_date ASC NULLS LAST, id ASC",
		{Field: model.SortTitle, Desc: true}:     "title DESC NULLS LAST, id DESC",
		{Field: "bogus"}:                         "created_at ASC NULLS LAST, id ASC",
	}
	for in, want := range cases {
		if got := orderBy(in); got != want {
			t.Fatalf("orderBy(%+v)=%q want %q", in, got, want)
		}
	}
}

func Test_escapeLike(t *testing.T) {
	t.Parallel()

	if got := escapeLike(`a%b_c\d`); got != `a\%b\_c\\d` {
		t.Fatalf("escapeLike=%q", got)
	}
}
