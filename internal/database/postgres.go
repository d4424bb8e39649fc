package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

type PgMessageStore struct {
	conn *sql.DB
}

func NewPgMessageStore(dsn string) (*PgMessageStore, error) {
	db, err := openPostgres(dsn)
	if err != nil {
		return nil, err
	}

	return &PgMessageStore{conn: db}, nil
}

func (db *PgMessageStore) DB() *sql.DB {
	return db.conn
}

func (db *PgMessageStore) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *PgMessageStore) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

var _ MessageStore = (*PgMessageStore)(nil)

// nullable maps the empty string to SQL NULL for the optional room refs.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// whereClause renders f as a WHERE clause using numbered placeholders
// starting at $1, returning the clause and its arguments.
func whereClause(f MessageFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Ids != nil {
		conds = append(conds, "id = ANY("+next(pq.Array(f.Ids))+")")
	}
	if f.BookingId != "" {
		conds = append(conds, "booking_id = "+next(f.BookingId))
	}
	if f.PackageId != "" {
		conds = append(conds, "package_id = "+next(f.PackageId))
	}
	if f.Participant != "" {
		p := next(f.Participant)
		conds = append(conds, "(sender_id = "+p+" OR receiver_id = "+p+")")
	}
	if f.Receiver != "" {
		conds = append(conds, "receiver_id = "+next(f.Receiver))
	}
	if f.UnreadOnly {
		conds = append(conds, "is_read = FALSE")
	}

	if len(conds) == 0 {
		return "", nil
	}

	clause := " WHERE " + conds[0]
	for _, c := range conds[1:] {
		clause += " AND " + c
	}

	return clause, args
}
