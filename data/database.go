package data

import (
	"fmt"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // Драйвер PostgreSQL, регистрируется для побочных эффектов
	_ "github.com/mattn/go-sqlite3" // Драйвер SQLite, импортируется для побочных эффектов (регистрации драйвера)
)

const sqliteDefaultParams = "_busy_timeout=5000&_foreign_keys=on"

// sqliteDSN дописывает параметры подключения SQLite, если их не задали в конфигурации.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}
	return dsn + "?" + sqliteDefaultParams
}

// openDB подключается к БД, проверяет соединение и применяет схему.
func openDB(driver, dsn, schema, name string) (*sqlx.DB, error) {
	if driver == "sqlite3" {
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", name, err)
	}
	if driver == "sqlite3" {
		// SQLite допускает одного писателя; одно соединение исключает SQLITE_BUSY между своими же запросами.
		db.SetMaxOpenConns(1)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", name, err)
	}
	log.Printf("Successfully connected to the %s database (%s).", name, driver)

	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute %s schema: %w", name, err)
	}
	log.Printf("%s database schema applied successfully.", name)
	return db, nil
}

// OpenMainDB открывает основную БД с таблицей Tasks.
func OpenMainDB(driver, dsn string) (*sqlx.DB, error) {
	return openDB(driver, dsn, GetMainSchema(), "main")
}

// OpenAuthDB открывает БД аутентификации с таблицей Users.
func OpenAuthDB(driver, dsn string) (*sqlx.DB, error) {
	return openDB(driver, dsn, GetAuthSchema(), "auth")
}
