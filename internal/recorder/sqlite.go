package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// MaxRecent верхняя граница выборки истории
const MaxRecent = 100

// SQLiteRecorder хранит историю расчетов в SQLite
type SQLiteRecorder struct {
	db *sql.DB
}

// NewSQLiteRecorder открывает (или создает) базу и применяет миграции
func NewSQLiteRecorder(dbPath string, logger *slog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite допускает одного писателя
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS calculations (
			id         TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			calc_type  TEXT NOT NULL,
			params     TEXT NOT NULL,
			result     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_calculations_created ON calculations(created_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordCalculation сохраняет расчет; пустые ID и CreatedAt заполняются
func (r *SQLiteRecorder) RecordCalculation(ctx context.Context, c Calculation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO calculations (id, created_at, calc_type, params, result) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.CreatedAt.UnixMilli(), c.Type, string(c.Params), string(c.Result),
	)
	if err != nil {
		return fmt.Errorf("insert calculation: %w", err)
	}
	return nil
}

// Recent возвращает последние расчеты, новые первыми
func (r *SQLiteRecorder) Recent(ctx context.Context, limit int) ([]Calculation, error) {
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at, calc_type, params, result FROM calculations
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query calculations: %w", err)
	}
	defer rows.Close()

	out := make([]Calculation, 0, limit)
	for rows.Next() {
		var (
			c              Calculation
			createdAt      int64
			params, result string
		)
		if err := rows.Scan(&c.ID, &createdAt, &c.Type, &params, &result); err != nil {
			return nil, fmt.Errorf("scan calculation: %w", err)
		}
		c.CreatedAt = time.UnixMilli(createdAt)
		c.Params = []byte(params)
		c.Result = []byte(result)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
