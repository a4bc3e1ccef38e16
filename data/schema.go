package data

// Схема написана так, чтобы выполняться и в SQLite, и в PostgreSQL:
// TEXT-идентификаторы (uuid), BOOLEAN, TIMESTAMP.

const usersSchema = `
CREATE TABLE IF NOT EXISTS Users (
    Id TEXT PRIMARY KEY,
    Email TEXT NOT NULL UNIQUE,
    DisplayName TEXT NOT NULL,
    PasswordHash TEXT NOT NULL,
    CreatedAt TIMESTAMP NOT NULL,
    UpdatedAt TIMESTAMP NOT NULL
);
`

const tasksSchema = `
CREATE TABLE IF NOT EXISTS Tasks (
    Id TEXT PRIMARY KEY,
    UserId TEXT NOT NULL, -- Users.Id из AuthDB. Прямой FK не ставим между разными БД.
    Title TEXT NOT NULL DEFAULT '',
    Description TEXT NOT NULL DEFAULT '',
    Url TEXT NOT NULL DEFAULT '',
    DueDate TEXT NOT NULL DEFAULT '',
    DueTime TEXT NOT NULL DEFAULT '',
    Priority TEXT NOT NULL DEFAULT '',
    Flag BOOLEAN NOT NULL DEFAULT FALSE,
    Completed BOOLEAN NOT NULL DEFAULT FALSE,
    PhotoRef TEXT NOT NULL DEFAULT '',
    CreatedAt TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS IX_Tasks_UserId_CreatedAt ON Tasks (UserId, CreatedAt);
CREATE INDEX IF NOT EXISTS IX_Tasks_UserId_Completed ON Tasks (UserId, Completed);
`

// GetAuthSchema возвращает схему БД аутентификации (только Users).
func GetAuthSchema() string {
	return usersSchema
}

// GetMainSchema возвращает схему основной БД (задачи).
func GetMainSchema() string {
	return tasksSchema
}
