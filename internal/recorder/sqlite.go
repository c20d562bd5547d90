package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder 将数据源调用流水写入SQLite
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder 打开（或创建）数据库并建表
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL模式，读写并发更友好
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO][Recorder] sqlite已打开: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fetch_log (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			capability TEXT NOT NULL,
			symbol     TEXT,
			provider   TEXT NOT NULL,
			success    INTEGER NOT NULL,
			rows       INTEGER,
			err_msg    TEXT,
			elapsed_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_ts ON fetch_log(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_symbol ON fetch_log(symbol)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordFetch 记录一次数据源尝试
func (r *SQLiteRecorder) RecordFetch(a *FetchAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	success := 0
	if a.Success {
		success = 1
	}
	_, err := r.db.Exec(`INSERT INTO fetch_log
		(timestamp, capability, symbol, provider, success, rows, err_msg, elapsed_ms)
		VALUES (?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), a.Capability, a.Symbol, a.Provider,
		success, a.Rows, a.ErrMsg, a.ElapsedMS,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO][Recorder] 关闭sqlite")
	return r.db.Close()
}
