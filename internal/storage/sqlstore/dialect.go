package sqlstore

import (
	"fmt"
	"strings"
	"time"
)

type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

// sqlite keeps timestamps as fixed-width UTC text so they sort lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z"

func (d Dialect) quote(id string) string {
	if d == MySQL {
		return "`" + id + "`"
	}
	return `"` + id + `"`
}

func (d Dialect) colType(c column) string {
	switch {
	case c.name == "id" && d == MySQL:
		return "VARCHAR(64) NOT NULL PRIMARY KEY"
	case c.name == "id":
		return "TEXT NOT NULL PRIMARY KEY"
	}
	switch c.kind {
	case kInt:
		if d == MySQL {
			return "BIGINT NULL"
		}
		return "INTEGER"
	case kJSON:
		if d == MySQL {
			return "JSON NULL"
		}
		return "TEXT"
	case kTime:
		if d == MySQL {
			return "DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)"
		}
		return "TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%f000Z', 'now'))"
	}
	if d == MySQL {
		return "TEXT NULL"
	}
	return "TEXT"
}

func (d Dialect) timeValue(t time.Time) any {
	if d == SQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

// upsertSuffix updates only cols on an id conflict.
func (d Dialect) upsertSuffix(cols []string) string {
	var b strings.Builder
	if d == MySQL {
		b.WriteString(" ON DUPLICATE KEY UPDATE ")
		if len(cols) == 0 {
			b.WriteString("`id` = `id`")
			return b.String()
		}
		for i, c := range cols {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s = VALUES(%s)", d.quote(c), d.quote(c))
		}
		return b.String()
	}
	if len(cols) == 0 {
		return ` ON CONFLICT("id") DO NOTHING`
	}
	b.WriteString(` ON CONFLICT("id") DO UPDATE SET `)
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = excluded.%s", d.quote(c), d.quote(c))
	}
	return b.String()
}

func (d Dialect) createTable(t *table) string {
	defs := make([]string, 0, len(t.cols))
	for _, c := range t.cols {
		defs = append(defs, "  "+d.quote(c.name)+" "+d.colType(c))
	}
	suffix := ""
	if d == MySQL {
		suffix = " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)%s", d.quote(t.name), strings.Join(defs, ",\n"), suffix)
}

func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case MySQL, SQLite:
		return Dialect(s), nil
	}
	return "", fmt.Errorf("unsupported sql dialect %q", s)
}
