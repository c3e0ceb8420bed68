package sqlconnector

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

// Dialect describes how one SQL provider spells queries.
type Dialect struct {
	// Name is the provider name used in configuration.
	Name string

	// Driver is the database/sql driver name.
	Driver string

	// Returning reports whether INSERT ... RETURNING is available.
	Returning bool

	placeholder func(int) string
	quote       func(string) string
	nullsOrder  bool
	noOffset    string
	emptyInsert string
	types       map[value.Kind]string
	autoinc     func(col string, kind value.Kind) string
}

// Placeholder returns the bind marker for the n-th argument, starting at 1.
func (d *Dialect) Placeholder(n int) string { return d.placeholder(n) }

// Quote quotes an identifier.
func (d *Dialect) Quote(name string) string { return d.quote(name) }

var (
	// SQLite is the dialect of mattn/go-sqlite3.
	SQLite = &Dialect{
		Name:        "sqlite",
		Driver:      "sqlite3",
		Returning:   true,
		placeholder: func(int) string { return "?" },
		quote:       quoteDouble,
		noOffset:    "LIMIT -1",
		emptyInsert: "DEFAULT VALUES",
		types: map[value.Kind]string{
			value.KindBoolean:  "BOOLEAN",
			value.KindInt:      "INTEGER",
			value.KindBigInt:   "BIGINT",
			value.KindFloat:    "REAL",
			value.KindDecimal:  "DECIMAL",
			value.KindString:   "TEXT",
			value.KindEnum:     "TEXT",
			value.KindDateTime: "DATETIME",
		},
		autoinc: func(col string, _ value.Kind) string {
			return col + " INTEGER PRIMARY KEY AUTOINCREMENT"
		},
	}

	// Postgres is the dialect of lib/pq.
	Postgres = &Dialect{
		Name:        "postgresql",
		Driver:      "postgres",
		Returning:   true,
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		quote:       pq.QuoteIdentifier,
		nullsOrder:  true,
		emptyInsert: "DEFAULT VALUES",
		types: map[value.Kind]string{
			value.KindBoolean:  "BOOLEAN",
			value.KindInt:      "INTEGER",
			value.KindBigInt:   "BIGINT",
			value.KindFloat:    "DOUBLE PRECISION",
			value.KindDecimal:  "DECIMAL(65,30)",
			value.KindString:   "TEXT",
			value.KindEnum:     "TEXT",
			value.KindDateTime: "TIMESTAMP(3)",
		},
		autoinc: func(col string, kind value.Kind) string {
			if kind == value.KindBigInt {
				return col + " BIGSERIAL PRIMARY KEY"
			}
			return col + " SERIAL PRIMARY KEY"
		},
	}

	// MySQL is the dialect of go-sql-driver/mysql.
	MySQL = &Dialect{
		Name:        "mysql",
		Driver:      "mysql",
		placeholder: func(int) string { return "?" },
		quote:       quoteBacktick,
		noOffset:    "LIMIT 18446744073709551615",
		emptyInsert: "() VALUES ()",
		types: map[value.Kind]string{
			value.KindBoolean:  "BOOLEAN",
			value.KindInt:      "INT",
			value.KindBigInt:   "BIGINT",
			value.KindFloat:    "DOUBLE",
			value.KindDecimal:  "DECIMAL(65,30)",
			value.KindString:   "VARCHAR(191)",
			value.KindEnum:     "VARCHAR(191)",
			value.KindDateTime: "DATETIME(3)",
		},
		autoinc: func(col string, kind value.Kind) string {
			if kind == value.KindBigInt {
				return col + " BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY"
			}
			return col + " INT NOT NULL AUTO_INCREMENT PRIMARY KEY"
		},
	}
)

// DialectFor returns the dialect of a datasource provider.
func DialectFor(provider string) (*Dialect, error) {
	switch provider {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgresql", "postgres":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func quoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
