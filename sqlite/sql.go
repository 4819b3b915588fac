package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hoshinonyaruko/snake-in-browser/structs"
	_ "github.com/mattn/go-sqlite3"
)

const createSessionsTableSQL = `
CREATE TABLE IF NOT EXISTS Sessions (
    ID TEXT PRIMARY KEY,
    GridSize INTEGER,
    Body TEXT,
    Direction TEXT,
    Moving TEXT,
    Food INTEGER,
    Score INTEGER,
    Status TEXT,
    UpdatedAt INTEGER
);
`

const createSessionsIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_session_updated ON Sessions (UpdatedAt);
`

func executeSQL(ctx context.Context, db *sql.DB, sqlStatement string) error {
	if _, err := db.ExecContext(ctx, sqlStatement); err != nil {
		return fmt.Errorf("executing SQL statement %q: %w", sqlStatement, err)
	}
	return nil
}

// InitializeDatabase creates the tables if they do not exist yet.
func InitializeDatabase(ctx context.Context, db *sql.DB) error {
	if err := executeSQL(ctx, db, createSessionsTableSQL); err != nil {
		return err
	}
	return executeSQL(ctx, db, createSessionsIndexSQL)
}

// SaveSession 保存（或覆盖）一局游戏的状态
func SaveSession(ctx context.Context, db *sql.DB, rec structs.SessionRecord) error {
	bodyData, err := json.Marshal(rec.State.Body)
	if err != nil {
		return err
	}

	// 开启事务
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO Sessions (ID, GridSize, Body, Direction, Moving, Food, Score, Status, UpdatedAt) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		rec.ID, rec.State.Size, string(bodyData), string(rec.State.Direction), string(rec.State.Moving),
		rec.State.Food, rec.State.Score, string(rec.State.Status), rec.UpdatedAt)
	if err != nil {
		tx.Rollback()
		return err
	}

	// 提交事务
	return tx.Commit()
}

// LoadSessions returns every stored session, most recently updated first.
func LoadSessions(ctx context.Context, db *sql.DB) ([]structs.SessionRecord, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT ID, GridSize, Body, Direction, Moving, Food, Score, Status, UpdatedAt FROM Sessions ORDER BY UpdatedAt DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []structs.SessionRecord
	for rows.Next() {
		var (
			rec                       structs.SessionRecord
			bodyData                  string
			direction, moving, status string
		)
		if err := rows.Scan(&rec.ID, &rec.State.Size, &bodyData, &direction, &moving,
			&rec.State.Food, &rec.State.Score, &status, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		// 反序列化蛇身
		if err := json.Unmarshal([]byte(bodyData), &rec.State.Body); err != nil {
			return nil, fmt.Errorf("session %s body: %w", rec.ID, err)
		}
		rec.State.Direction = structs.Direction(direction)
		rec.State.Moving = structs.Direction(moving)
		rec.State.Status = structs.Status(status)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteSession removes a stored session. Deleting a missing id is not an error.
func DeleteSession(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, "DELETE FROM Sessions WHERE ID = ?", id)
	return err
}
