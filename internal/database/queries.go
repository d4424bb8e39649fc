package database

import (
	"context"
	"database/sql"
	"fmt"
)

const messageColumns = "id, sender_id, receiver_id, content, is_read, booking_id, package_id, created_at"

func (db *PgMessageStore) Insert(ctx context.Context, msg Message) (Message, error) {
	id, err := newMessageId()
	if err != nil {
		return Message{}, err
	}

	msg.Id = id
	msg.IsRead = false
	msg.CreatedAt = now()

	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO messages (id, sender_id, receiver_id, content, is_read, booking_id, package_id, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING "+messageColumns,
		msg.Id,
		msg.SenderId,
		msg.ReceiverId,
		msg.Content,
		msg.IsRead,
		nullable(msg.BookingId),
		nullable(msg.PackageId),
		msg.CreatedAt,
	)

	stored, err := scanMessage(row)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}

	return stored, nil
}

func (db *PgMessageStore) Find(ctx context.Context, filter MessageFilter) ([]Message, error) {
	where, args := whereClause(filter)
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM messages"+where+" ORDER BY created_at ASC, seq ASC",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return messages, nil
}

func (db *PgMessageStore) UpdateMany(ctx context.Context, filter MessageFilter, patch MessagePatch) (int64, error) {
	if !patch.MarkRead {
		return 0, nil
	}

	where, args := whereClause(filter)
	res, err := db.conn.ExecContext(ctx, "UPDATE messages SET is_read = TRUE"+where, args...)
	if err != nil {
		return 0, fmt.Errorf("update messages: %w", err)
	}

	return res.RowsAffected()
}

func (db *PgMessageStore) Count(ctx context.Context, filter MessageFilter) (int64, error) {
	where, args := whereClause(filter)

	var count int64
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}

	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(s scanner) (Message, error) {
	var (
		msg       Message
		bookingId sql.NullString
		packageId sql.NullString
	)

	err := s.Scan(
		&msg.Id,
		&msg.SenderId,
		&msg.ReceiverId,
		&msg.Content,
		&msg.IsRead,
		&bookingId,
		&packageId,
		&msg.CreatedAt,
	)
	if err != nil {
		return Message{}, err
	}

	msg.BookingId = bookingId.String
	msg.PackageId = packageId.String
	return msg, nil
}
