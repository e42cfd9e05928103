// Package migrate applies embedded SQL migrations on startup.
package migrate

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/and161185/taskkeeper/migrations"
)

// Up runs all pending migrations from the embedded filesystem.
func Up(ctx context.Context, dsn string, log *zap.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(zapGooseLogger{log.Sugar()})
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

// zapGooseLogger adapts zap to goose.Logger.
type zapGooseLogger struct{ s *zap.SugaredLogger }

func (l zapGooseLogger) Fatalf(format string, v ...any) { l.s.Fatalf(format, v...) }
func (l zapGooseLogger) Printf(format string, v ...any) { l.s.Infof(format, v...) }
