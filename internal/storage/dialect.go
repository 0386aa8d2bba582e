package storage

import (
	"strconv"
	"strings"
)

// dialect captures the few places where SQLite and PostgreSQL disagree
type dialect struct {
	name      string
	timestamp string // column type for timestamps
	greatest  string // two-argument maximum function
	numbered  bool   // $1 placeholders instead of ?
}

var (
	sqliteDialect = dialect{
		name:      "sqlite",
		timestamp: "TIMESTAMP",
		greatest:  "MAX",
	}
	postgresDialect = dialect{
		name:      "postgres",
		timestamp: "TIMESTAMPTZ",
		greatest:  "GREATEST",
		numbered:  true,
	}
)

// rebind rewrites ? placeholders for the dialect. Queries in this package
// never contain literal question marks.
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
