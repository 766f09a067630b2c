package database

import (
	"strconv"
	"strings"

	"vaultindex/internal/database/migrations"
)

// dialect covers the SQL differences between the supported engines. Queries
// are written with '?' placeholders and rebound per dialect.
type dialect struct {
	name       string
	driverName string
	numbered   bool   // $1, $2, ... instead of ?
	likeOp     string // case-insensitive LIKE
}

var (
	sqliteDialect = dialect{
		name:       migrations.SQLite,
		driverName: "sqlite3",
		likeOp:     "LIKE", // ASCII case-insensitive by default
	}
	postgresDialect = dialect{
		name:       migrations.Postgres,
		driverName: "pgx",
		numbered:   true,
		likeOp:     "ILIKE",
	}
)

func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// likePattern builds a substring pattern, escaping LIKE metacharacters with '\'.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
