package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/botkeeper/botkeeper/internal/common"
	"github.com/botkeeper/botkeeper/internal/dbx"
	"github.com/botkeeper/botkeeper/internal/server/migrations"
	"github.com/botkeeper/botkeeper/internal/server/records"
)

// PostgresStore keeps one JSONB document row per record. The whole-collection
// contract is preserved: Save rewrites the table inside one transaction and
// Load reads all rows in stored order.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a pgx connection, applies the embedded goose
// migrations and returns the store.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.runMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return s, nil
}

// NewPostgresStoreWithDB wraps an existing handle without running
// migrations. Used by tests.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	return goose.UpContext(ctx, s.db, ".")
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Load(ctx context.Context) ([]records.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT doc FROM user_records ORDER BY pos")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	users := []records.User{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
		}
		var user records.User
		if err := json.Unmarshal(doc, &user); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrCorruptStore, err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	return users, nil
}

func (s *PostgresStore) Save(ctx context.Context, users []records.User) error {
	docs := make([][]byte, len(users))
	for i, u := range users {
		doc, err := json.Marshal(u)
		if err != nil {
			return err
		}
		docs[i] = doc
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM user_records"); err != nil {
			return err
		}
		for i, u := range users {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO user_records (pos, email, doc) VALUES ($1, $2, $3)",
				i, u.Email, docs[i])
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return nil
}
