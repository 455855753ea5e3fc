package fetch

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

// Driver identifies a concrete fetcher implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // seeded rows only (tests / inline projects)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// DefaultConnection is the connection name the env-configured fetchers
// register their single database under.
const DefaultConnection = "default"

// Open selects a fetcher backend using environment variables. Defaults to
// sqlite when unset.
//
//	PARAMCORE_FETCH_DRIVER: memory|sqlite|postgres (default sqlite)
//	PARAMCORE_SQLITE_PATH: path to sqlite file (default ./paramcore.db)
//	PARAMCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func Open() (Fetcher, error) {
	driver := os.Getenv("PARAMCORE_FETCH_DRIVER")
	if driver == "" {
		driver = string(DriverSQLite)
	}
	switch Driver(driver) {
	case DriverMemory:
		return NewMemoryFetcher(), nil
	case DriverSQLite:
		path := os.Getenv("PARAMCORE_SQLITE_PATH")
		if path == "" {
			path = "paramcore.db"
		}
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		f := NewSQLFetcher()
		f.AddConnection(DefaultConnection, db)
		return f, nil
	case DriverPostgres:
		dsn := os.Getenv("PARAMCORE_POSTGRES_DSN")
		if dsn == "" {
			return nil, fmt.Errorf("PARAMCORE_POSTGRES_DSN required for postgres fetcher")
		}
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		f := NewSQLFetcher()
		f.AddConnection(DefaultConnection, db)
		return f, nil
	default:
		return nil, fmt.Errorf("unknown fetch driver %s", driver)
	}
}
