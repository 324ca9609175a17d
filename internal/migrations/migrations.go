package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"

	"twopc_backend/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var files embed.FS

const dir = "."

// Names lists the migration files in apply order
func Names() ([]string, error) {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Apply brings the schema up to the newest migration and returns the
// resulting version. Versions already recorded in goose_db_version are
// skipped.
func Apply(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	goose.SetBaseFS(files)
	goose.SetLogger(gooseLogger{logger.With("component", "db migration")})
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, errors.Wrap(err, "goose dialect")
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.Up(db, dir); err != nil {
		return 0, errors.Wrap(err, "migrate schema")
	}
	version, err := goose.GetDBVersion(db)
	return version, errors.Wrap(err, "schema version")
}

// gooseLogger routes goose output through the service logger
type gooseLogger struct {
	l *slog.Logger
}

func (g gooseLogger) Print(v ...interface{})   { g.l.Info(fmt.Sprint(v...)) }
func (g gooseLogger) Println(v ...interface{}) { g.l.Info(fmt.Sprint(v...)) }

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.l.Info(fmt.Sprintf(format, v...))
}

func (g gooseLogger) Fatal(v ...interface{}) {
	g.l.Error(fmt.Sprint(v...))
	os.Exit(1)
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.l.Error(fmt.Sprintf(format, v...))
	os.Exit(1)
}
