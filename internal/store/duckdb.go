package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
)

// DuckDBBackend stores every collection as a row of a single DuckDB table.
type DuckDBBackend struct {
	db  *sql.DB
	sq  squirrel.StatementBuilderType
	now func() time.Time
}

// NewDuckDBBackend opens (or creates) the database at path. An empty path or
// ":memory:" gives an in-memory database.
func NewDuckDBBackend(path string) (*DuckDBBackend, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	// DuckDB allows a single writer; keep all access on one connection.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			data TEXT,
			updated_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()

		return nil, fmt.Errorf("failed to create collections table: %w", err)
	}

	return &DuckDBBackend{
		db:  db,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		now: time.Now,
	}, nil
}

func (b *DuckDBBackend) Get(c Collection) ([]byte, bool, error) {
	selectQuery := b.sq.
		Select("data").
		From("collections").
		Where(squirrel.Eq{"name": string(c)}).
		RunWith(b.db)

	var data string

	err := selectQuery.QueryRow().Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("failed to query %s: %w", c, err)
	}

	return []byte(data), true, nil
}

// Put replaces the collection row inside a transaction.
func (b *DuckDBBackend) Put(c Collection, data []byte) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	deleteQuery := b.sq.
		Delete("collections").
		Where(squirrel.Eq{"name": string(c)}).
		RunWith(tx)

	if _, err := deleteQuery.Exec(); err != nil {
		tx.Rollback()

		return fmt.Errorf("failed to delete %s: %w", c, err)
	}

	insertQuery := b.sq.
		Insert("collections").
		Columns("name", "data", "updated_at").
		Values(string(c), string(data), b.now()).
		RunWith(tx)

	if _, err := insertQuery.Exec(); err != nil {
		tx.Rollback()

		return fmt.Errorf("failed to insert %s: %w", c, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (b *DuckDBBackend) Close() error {
	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil

	return err
}
