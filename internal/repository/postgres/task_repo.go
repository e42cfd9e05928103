package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/taskkeeper/internal/errs"
	"github.com/and161185/taskkeeper/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// TaskRepo implements TaskRepository using PostgreSQL.
type TaskRepo struct{ db *DB }

// NewTaskRepo constructs a task repository.
func NewTaskRepo(db *DB) *TaskRepo { return &TaskRepo{db: db} }

const taskCols = `id, user_id, title, description, status, priority, due_date, created_at, updated_at`

func scanTask(row pgx.Row) (*model.Task, error) {
	var (
		t        model.Task
		status   string
		priority string
		due      pgtype.Timestamptz
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &status, &priority, &due, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = model.Status(status)
	t.Priority = model.Priority(priority)
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	return &t, nil
}

// Create inserts a task row owned by t.UserID.
func (r *TaskRepo) Create(ctx context.Context, t *model.Task) error {
	const q = `
INSERT INTO tasks (id, user_id, title, description, status, priority, due_date)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at, updated_at`
	err := r.db.Pool.QueryRow(ctx, q, t.ID, t.UserID, t.Title, t.Description, string(t.Status), string(t.Priority), t.DueDate).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	return storageErr(err)
}

// List counts and fetches one page of the owner's tasks matching f.
func (r *TaskRepo) List(ctx context.Context, userID uuid.UUID, f model.TaskFilter) ([]model.Task, int64, error) {
	where, args := taskWhere(userID, f)

	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, storageErr(err)
	}
	if total == 0 {
		return []model.Task{}, 0, nil
	}

	n := len(args)
	q := `SELECT ` + taskCols + ` FROM tasks WHERE ` + where +
		` ORDER BY ` + orderBy(f.Sort) +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, f.Limit, f.Offset())

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, storageErr(err)
	}
	defer rows.Close()

	out := make([]model.Task, 0, f.Limit)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, storageErr(err)
		}
		out = append(out, *t)
	}
	return out, total, storageErr(rows.Err())
}

// CountByStatus groups the owner's tasks by status.
func (r *TaskRepo) CountByStatus(ctx context.Context, userID uuid.UUID) (map[string]int64, error) {
	const q = `SELECT status, COUNT(*) FROM tasks WHERE user_id=$1 GROUP BY status`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, storageErr(err)
		}
		out[status] = n
	}
	return out, storageErr(rows.Err())
}

// Update replaces all editable columns of one owned task.
func (r *TaskRepo) Update(ctx context.Context, userID, id uuid.UUID, f model.TaskFields) (*model.Task, error) {
	const q = `
UPDATE tasks
SET title=$3, description=$4, status=$5, priority=$6, due_date=$7, updated_at=now()
WHERE id=$1 AND user_id=$2
RETURNING ` + taskCols
	t, err := scanTask(r.db.Pool.QueryRow(ctx, q, id, userID, f.Title, f.Description, string(f.Status), string(f.Priority), f.DueDate))
	if err != nil {
		return nil, rowErr(err)
	}
	return t, nil
}

// Delete removes one owned task.
func (r *TaskRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	const q = `DELETE FROM tasks WHERE id=$1 AND user_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, id, userID)
	if err != nil {
		return storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// taskWhere builds the conjunctive filter; user_id is always $1.
func taskWhere(userID uuid.UUID, f model.TaskFilter) (string, []any) {
	conds := []string{"user_id=$1"}
	args := []any{userID}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status=$%d", len(args)))
	}
	if f.Priority != "" {
		args = append(args, string(f.Priority))
		conds = append(conds, fmt.Sprintf("priority=$%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
	}
	return strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func orderBy(s model.Sort) string {
	var col string
	switch s.Field {
	case model.SortUpdatedAt:
		col = "updated_at"
	case model.SortDueDate:
		col = "due_date"
	case model.SortTitle:
		col = "title"
	case model.SortPriority:
		col = "CASE priority WHEN 'low' THEN 0 WHEN 'medium' THEN 1 WHEN 'high' THEN 2 ELSE 3 END"
	case model.SortStatus:
		col = "CASE status WHEN 'todo' THEN 0 WHEN 'in-progress' THEN 1 WHEN 'done' THEN 2 ELSE 3 END"
	default:
		col = "created_at"
	}
	dir := " ASC"
	if s.Desc {
		dir = " DESC"
	}
	return col + dir + " NULLS LAST, id" + dir
}
