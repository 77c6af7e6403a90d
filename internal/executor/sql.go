package executor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	pg_query "github.com/pganalyze/pg_query_go/v6"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
	DriverLibSQL   = "libsql"
)

// SQL applies payloads as SQL statements against one database.
//
// The payload goes to ExecContext unchanged, so a script may hold several
// statements where the driver allows it (both lib/pq without arguments and
// go-sqlite3 do).
type SQL struct {
	db     *sql.DB
	driver string
	owned  bool
}

// OpenSQL opens a target database. The connection is established lazily on
// the first Execute.
func OpenSQL(driver, dsn string) (*SQL, error) {
	switch driver {
	case DriverPostgres, DriverSQLite, DriverLibSQL:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q (want %s, %s or %s)",
			driver, DriverPostgres, DriverSQLite, DriverLibSQL)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s target: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return &SQL{db: db, driver: driver, owned: true}, nil
}

// NewSQL wraps a database the caller owns. Close leaves it open.
func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db}
}

// Execute runs text. Blank payloads succeed without touching the database.
func (s *SQL) Execute(ctx context.Context, text string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return true, nil
	}
	if _, err := s.db.ExecContext(ctx, text); err != nil {
		return false, fmt.Errorf("sql: %w", err)
	}
	return true, nil
}

// Check parses text as PostgreSQL without touching the database. Only
// postgres targets are checked; other dialects always pass.
func (s *SQL) Check(text string) error {
	if s.driver != DriverPostgres {
		return nil
	}
	return CheckPostgres(text)
}

// CheckPostgres reports a syntax error in text, parsed with the PostgreSQL
// parser. Blank text is valid.
func CheckPostgres(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if _, err := pg_query.Parse(text); err != nil {
		return fmt.Errorf("sql: syntax: %w", err)
	}
	return nil
}

// Driver returns the driver name, or "" for a wrapped database.
func (s *SQL) Driver() string {
	return s.driver
}

// Close closes the database if OpenSQL opened it.
func (s *SQL) Close() error {
	if !s.owned || s.db == nil {
		return nil
	}
	return s.db.Close()
}
