// Package database owns the SQLite connection and the migration runner.
//
// The pure-Go modernc.org/sqlite driver registers itself as "sqlite" through
// a blank import, so no CGO is needed.
//
// Migrations are plain .sql files embedded into the binary (see embed.go).
// They run on every start; schema_migrations records which files were
// applied, so a restart only executes new ones.
//
// Repositories never see *DB. They receive DB.Conn (or a *sql.Tx from
// WithTx / WithReadTx) through the TxQuerier interface.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/akinalp/emocircle/pkg/logger"

	_ "modernc.org/sqlite"
)

// recoverableErrors are migration failures that can be skipped safely, e.g.
// re-running a half-applied ALTER TABLE ADD COLUMN.
var recoverableErrors = []string{
	"duplicate column name",
}

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB wraps the connection pool. *sql.DB is safe for concurrent use.
//
// *sql.DB is a pool, not a single connection: database/sql opens and reuses
// connections as goroutines need them. With WAL many of them read at once,
// while SQLite still admits one writer at a time.
type DB struct {
	Conn *sql.DB
	log  *slog.Logger
}

// New opens the SQLite database at dbPath and applies pending migrations.
//
// Pragmas: foreign keys on (off by default in SQLite), WAL for concurrent
// readers, and a busy timeout so concurrent writers wait instead of failing
// with SQLITE_BUSY.
func New(dbPath string, migrationsFS fs.FS, log *slog.Logger) (*DB, error) {
	log = logger.For(log, "database")

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if dbPath == MemoryPath {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	} else {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == MemoryPath {
		// Each connection to :memory: is a separate database; pin the pool to one.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{Conn: conn, log: log}

	if err := db.runMigrations(migrationsFS); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("connected and migrations applied", "path", dbPath)
	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.Conn.Close()
}

// Ping checks the database is reachable; used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.Conn.PingContext(ctx)
}

// runMigrations executes the .sql files of migrationsFS in lexical order
// (001_init.sql, 002_..., ...). Applied files are recorded in
// schema_migrations so each runs exactly once.
//
// A file is recorded only after all its statements succeeded. A failure
// leaves it unrecorded, and the next start retries it from the top; that is
// why ADD COLUMN duplicates are treated as recoverable.
func (db *DB) runMigrations(migrationsFS fs.FS) error {
	if _, err := db.Conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	sort.Strings(sqlFiles)

	applied := make(map[string]bool)
	rows, err := db.Conn.Query("SELECT filename FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate migration rows: %w", err)
	}

	for _, file := range sqlFiles {
		if applied[file] {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		if err := db.execStatements(file, string(content)); err != nil {
			return err
		}

		if _, err := db.Conn.Exec(
			"INSERT INTO schema_migrations (filename) VALUES (?)", file,
		); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", file, err)
		}

		db.log.Info("migration applied", "file", file)
	}

	return nil
}

// execStatements runs a migration statement by statement, skipping the
// recoverable failures listed above.
func (db *DB) execStatements(filename, content string) error {
	statements := splitStatements(content)

	for i, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		if _, err := db.Conn.Exec(stmt); err != nil {
			errMsg := err.Error()
			recoverable := false
			for _, pattern := range recoverableErrors {
				if strings.Contains(errMsg, pattern) {
					recoverable = true
					break
				}
			}

			if recoverable {
				db.log.Warn("migration statement skipped", "file", filename, "statement", i+1, "error", errMsg)
				continue
			}

			return fmt.Errorf("failed to execute migration %s (statement %d): %w", filename, i+1, err)
		}
	}

	return nil
}

// splitStatements splits SQL on semicolons, ignoring semicolons inside
// single-quoted literals, where a doubled single quote is an escaped quote.
// Line comments are dropped so a semicolon inside "-- ..." does not split a
// statement.
func splitStatements(sql string) []string {
	var statements []string
	var current strings.Builder
	inString := false

	for i := 0; i < len(sql); i++ {
		ch := sql[i]

		if !inString && ch == '-' && i+1 < len(sql) && sql[i+1] == '-' {
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			current.WriteByte('\n')
			continue
		}

		if ch == '\'' {
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				current.WriteByte(ch)
				current.WriteByte(sql[i+1])
				i++
				continue
			}
			inString = !inString
		}

		if ch == ';' && !inString {
			s := strings.TrimSpace(current.String())
			if s != "" {
				statements = append(statements, s)
			}
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	s := strings.TrimSpace(current.String())
	if s != "" {
		statements = append(statements, s)
	}

	return statements
}
