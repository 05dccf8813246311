package db

import (
	"database/sql/driver"
	"strings"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
)

// sqliteLower is a Unicode-aware replacement for SQLite's LOWER, which only
// folds ASCII letters.
const sqliteLower = "unicode_lower"

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction(sqliteLower, 1, unicodeLower); err != nil {
		panic(err)
	}
}

func unicodeLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// IsPostgres reports whether db was opened with the PostgreSQL driver.
func IsPostgres(db *sqlx.DB) bool {
	return db.DriverName() == "pgx"
}

// Lower returns the SQL function that lower-cases text the way
// strings.ToLower does. PostgreSQL's LOWER already folds Unicode.
func Lower(db *sqlx.DB) string {
	if IsPostgres(db) {
		return "LOWER"
	}
	return sqliteLower
}
