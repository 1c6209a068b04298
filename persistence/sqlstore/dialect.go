package sqlstore

import (
	// registers the "mysql" driver
	_ "github.com/go-sql-driver/mysql"
	// registers the "sqlite" driver
	_ "modernc.org/sqlite"
)

type dialect struct {
	driver    string
	schema    []string
	pragmas   []string
	upsert    string
	insertNew string
}

var sqliteDialect = dialect{
	driver: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS trigger_state (
			state_key TEXT PRIMARY KEY,
			value BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trigger_lease (
			lease_key TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
	},
	pragmas: []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	},
	upsert:    "INSERT INTO trigger_state(state_key, value) VALUES(?, ?) ON CONFLICT(state_key) DO UPDATE SET value = excluded.value",
	insertNew: "INSERT OR IGNORE INTO trigger_lease(lease_key, owner, expires_at) VALUES(?, ?, ?)",
}

var mysqlDialect = dialect{
	driver: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS trigger_state (
			state_key VARCHAR(255) PRIMARY KEY,
			value LONGBLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trigger_lease (
			lease_key VARCHAR(255) PRIMARY KEY,
			owner VARCHAR(64) NOT NULL,
			expires_at BIGINT NOT NULL
		)`,
	},
	upsert:    "INSERT INTO trigger_state(state_key, value) VALUES(?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)",
	insertNew: "INSERT IGNORE INTO trigger_lease(lease_key, owner, expires_at) VALUES(?, ?, ?)",
}
