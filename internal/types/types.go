package types

import (
	"time"
)

type User struct {
	Id       string `json:"id"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

type Message struct {
	Id        string    `json:"id"`
	Sender    User      `json:"sender"`
	Receiver  string    `json:"receiver"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"is_read"`
	BookingId string    `json:"booking_id,omitempty"`
	PackageId string    `json:"package_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
