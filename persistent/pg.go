package persistent

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	_ "github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

const testEnvDsnKey = "PGDB_DSN"

func PgOpen(ctx context.Context, pgDsn string, verbose bool) (*bun.DB, error) {
	sqldb, err := sql.Open("pg", pgDsn)
	if err != nil {
		return nil, fmt.Errorf("open pg database: %w", err)
	}
	if err = sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("ping pg database: %w", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	if verbose {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db, nil
}

// CreateSchema creates the tables of all bun models.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	models := []interface{}{
		(*Profile)(nil),
	}
	for _, model := range models {
		_, err := db.NewCreateTable().IfNotExists().Model(model).Exec(ctx)
		if err != nil {
			return fmt.Errorf("create table %T: %w", model, err)
		}
	}
	_, err := db.NewCreateIndex().IfNotExists().
		Model((*Profile)(nil)).
		Index("profile_last_access_time_idx").
		Column("last_access_time").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create last access time index: %w", err)
	}
	return nil
}

// Integration tests share one database started by testenv, its dsn is
// passed down through the environment.

func PgOpenTest(ctx context.Context) (*bun.DB, error) {
	return PgOpen(ctx, TestEnvDsn(), os.Getenv("DB_VERBOSE") == "true")
}

func TestEnvDsn() string {
	return os.Getenv(testEnvDsnKey)
}

func SetTestEnvDsn(dsn string) {
	os.Setenv(testEnvDsnKey, dsn)
}
