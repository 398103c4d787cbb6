package repository

import (
	"strconv"
	"strings"
	"time"
)

const pingTimeout = 5 * time.Second

// Dialect describes the differences between the SQL backends SQLStore runs on.
type Dialect struct {
	Name            string
	DriverName      string
	Schema          []string
	Numbered        bool // $1, $2 placeholders instead of ?
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// rebind rewrites ? placeholders into the dialect's placeholder style.
func (d Dialect) rebind(query string) string {
	if !d.Numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// SQLiteDialect uses the pure Go modernc.org/sqlite driver.
var SQLiteDialect = Dialect{
	Name:       "sqlite",
	DriverName: "sqlite",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS stands (
			stid TEXT PRIMARY KEY,
			serial_number TEXT NOT NULL UNIQUE,
			address TEXT NOT NULL DEFAULT '',
			balance INTEGER NOT NULL DEFAULT 0,
			currency INTEGER NOT NULL DEFAULT 1,
			is_active INTEGER NOT NULL DEFAULT 1,
			latitude REAL NOT NULL DEFAULT 0,
			longitude REAL NOT NULL DEFAULT 0,
			message TEXT NOT NULL DEFAULT '',
			price1 INTEGER NOT NULL DEFAULT 0,
			price2 INTEGER NOT NULL DEFAULT 0,
			owner_uid TEXT NOT NULL DEFAULT '',
			candles_on INTEGER NOT NULL DEFAULT 0,
			total_candles INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			trzid TEXT PRIMARY KEY,
			stid TEXT NOT NULL,
			amount INTEGER NOT NULL,
			candles INTEGER NOT NULL DEFAULT 0,
			content TEXT NOT NULL DEFAULT '',
			is_confirmed INTEGER NOT NULL DEFAULT 0,
			is_online INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_stid ON transactions(stid)`,
	},
	MaxOpenConns: 1, // SQLite only supports 1 writer
	MaxIdleConns: 1,
}

// PostgresDialect uses github.com/lib/pq.
var PostgresDialect = Dialect{
	Name:       "postgres",
	DriverName: "postgres",
	Numbered:   true,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS stands (
			stid TEXT PRIMARY KEY,
			serial_number TEXT NOT NULL UNIQUE,
			address TEXT NOT NULL DEFAULT '',
			balance BIGINT NOT NULL DEFAULT 0,
			currency INTEGER NOT NULL DEFAULT 1,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
			longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
			message TEXT NOT NULL DEFAULT '',
			price1 BIGINT NOT NULL DEFAULT 0,
			price2 BIGINT NOT NULL DEFAULT 0,
			owner_uid TEXT NOT NULL DEFAULT '',
			candles_on INTEGER NOT NULL DEFAULT 0,
			total_candles INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			trzid TEXT PRIMARY KEY,
			stid TEXT NOT NULL,
			amount BIGINT NOT NULL,
			candles INTEGER NOT NULL DEFAULT 0,
			content TEXT NOT NULL DEFAULT '',
			is_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
			is_online BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_stid ON transactions(stid)`,
	},
	MaxOpenConns:    25,
	MaxIdleConns:    10,
	ConnMaxLifetime: 5 * time.Minute,
}

// MySQLDialect uses github.com/go-sql-driver/mysql. The DSN must carry
// parseTime=true and clientFoundRows=true.
var MySQLDialect = Dialect{
	Name:       "mysql",
	DriverName: "mysql",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS stands (
			stid VARCHAR(64) PRIMARY KEY,
			serial_number VARCHAR(128) NOT NULL UNIQUE,
			address VARCHAR(255) NOT NULL DEFAULT '',
			balance BIGINT NOT NULL DEFAULT 0,
			currency INT NOT NULL DEFAULT 1,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			latitude DOUBLE NOT NULL DEFAULT 0,
			longitude DOUBLE NOT NULL DEFAULT 0,
			message VARCHAR(1024) NOT NULL DEFAULT '',
			price1 BIGINT NOT NULL DEFAULT 0,
			price2 BIGINT NOT NULL DEFAULT 0,
			owner_uid VARCHAR(128) NOT NULL DEFAULT '',
			candles_on INT NOT NULL DEFAULT 0,
			total_candles INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			trzid VARCHAR(64) PRIMARY KEY,
			stid VARCHAR(64) NOT NULL,
			amount BIGINT NOT NULL,
			candles INT NOT NULL DEFAULT 0,
			content VARCHAR(1024) NOT NULL DEFAULT '',
			is_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
			is_online BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME(6) NOT NULL,
			INDEX idx_transactions_stid (stid)
		)`,
	},
	MaxOpenConns:    10,
	MaxIdleConns:    5,
	ConnMaxLifetime: 5 * time.Minute,
}
