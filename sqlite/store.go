package sqlite

import (
	"context"
	"database/sql"

	"github.com/hoshinonyaruko/snake-in-browser/structs"
)

// Store keeps game sessions in a sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and prepares its tables.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite 只允许一个写连接；内存数据库每个连接都是独立的库
	db.SetMaxOpenConns(1)

	if err := InitializeDatabase(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Save(ctx context.Context, rec structs.SessionRecord) error {
	return SaveSession(ctx, s.db, rec)
}

func (s *Store) Load(ctx context.Context) ([]structs.SessionRecord, error) {
	return LoadSessions(ctx, s.db)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return DeleteSession(ctx, s.db, id)
}

func (s *Store) Close() error {
	return s.db.Close()
}
