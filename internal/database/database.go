package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/teris-io/shortid"
)

func openPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// newMessageId returns a short, URL safe identifier for a stored message.
func newMessageId() (string, error) {
	id, err := shortid.Generate()
	if err != nil {
		return "", fmt.Errorf("generate message id: %w", err)
	}

	return id, nil
}

func now() time.Time {
	return time.Now().UTC().Round(time.Microsecond)
}
