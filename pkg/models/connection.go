package models

import (
	"time"

	"github.com/google/uuid"
)

// DatabaseType enumerates supported target database engines.
type DatabaseType string

const (
	DatabasePostgres DatabaseType = "postgres"
	DatabaseMySQL    DatabaseType = "mysql"
	DatabaseSQLite   DatabaseType = "sqlite"
	DatabaseMSSQL    DatabaseType = "mssql"
)

// Valid reports whether the database type is one of the supported engines.
func (t DatabaseType) Valid() bool {
	switch t {
	case DatabasePostgres, DatabaseMySQL, DatabaseSQLite, DatabaseMSSQL:
		return true
	}
	return false
}

// Connection is a named credential set for an external target database.
// The workflow reads it to build a live SQL execution context; generated
// queries run against this database, never against the application store.
type Connection struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Host        string       `json:"host"`
	Port        int          `json:"port"`
	Database    string       `json:"database"`
	Username    string       `json:"username"`
	Password    string       `json:"-"`
	Type        DatabaseType `json:"type"`
	Active      bool         `json:"active"`
	Description string       `json:"description,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
