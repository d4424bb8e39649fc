package database

import "time"

type Message struct {
	Id         string
	SenderId   string
	ReceiverId string
	Content    string
	IsRead     bool
	BookingId  string
	PackageId  string
	CreatedAt  time.Time
}

// MessagePatch describes the fields UpdateMany may change. Messages only ever
// move from unread to read, so MarkRead is the only supported change.
type MessagePatch struct {
	MarkRead bool
}
