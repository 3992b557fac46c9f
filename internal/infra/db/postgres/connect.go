package postgres

import (
    "context"
    "database/sql"
    _ "embed"
    "fmt"
    "time"

    _ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
    db, err := sql.Open("postgres", dsn)
    if err != nil {
        return nil, err
    }
    db.SetMaxOpenConns(25)
    db.SetMaxIdleConns(10)
    db.SetConnMaxLifetime(30 * time.Minute)
    db.SetConnMaxIdleTime(5 * time.Minute)

    ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    if err := db.PingContext(ctx2); err != nil {
        db.Close()
        return nil, fmt.Errorf("ping postgres: %w", err)
    }
    return db, nil
}

// Migrate creates geo_analyses and its index when missing.
// lib/pq runs multi-statement strings through the simple query protocol.
func Migrate(ctx context.Context, db *sql.DB) error {
    if _, err := db.ExecContext(ctx, schema); err != nil {
        return fmt.Errorf("migrate geo_analyses: %w", err)
    }
    return nil
}
