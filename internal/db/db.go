package db

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"study-stream/internal/config"
)

// ConnectDB opens the study database from the configured DSN.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))), nil
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// InitDB creates the study tables when missing and seeds a default school
// with one subject on first run, so a fresh install has somewhere to put
// documents.
func InitDB(ctx context.Context, db *bun.DB) error {
	entities := []interface{}{
		(*School)(nil),
		(*Subject)(nil),
		(*Document)(nil),
		(*Note)(nil),
		(*Message)(nil),
	}
	for _, entity := range entities {
		if _, err := db.NewCreateTable().Model(entity).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return seedDefaults(ctx, db)
}

func seedDefaults(ctx context.Context, db *bun.DB) error {
	count, err := db.NewSelect().Model((*School)(nil)).Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	log.Info().Msg("Creating default school with one subject")
	repo := NewStudyRepo(db)
	school := &School{Name: "My College", SchoolType: 1}
	if err := repo.CreateSchool(ctx, school); err != nil {
		return err
	}
	return repo.CreateSubject(ctx, &Subject{SchoolID: school.ID, ClassName: "My First Class"})
}
