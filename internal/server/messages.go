package server

import (
	"net/http"
	"time"

	"github.com/npezzotti/go-eventchat/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is one inbound protocol event. Exactly one of the event
// fields is expected to be set; Id correlates a callback response.
type ClientMessage struct {
	BaseMessage
	Join   *RoomRef     `json:"join,omitempty"`
	Send   *SendMessage `json:"send,omitempty"`
	Fetch  *RoomRef     `json:"fetch,omitempty"`
	Unread *RoomRef     `json:"unread,omitempty"`
}

type RoomRef struct {
	BookingId string `json:"booking_id,omitempty"`
	PackageId string `json:"package_id,omitempty"`
}

type SendMessage struct {
	Receiver  string `json:"receiver" validate:"required"`
	Content   string `json:"content" validate:"required"`
	BookingId string `json:"booking_id,omitempty"`
	PackageId string `json:"package_id,omitempty"`
}

type ServerMessage struct {
	BaseMessage
	Response     *Response      `json:"response,omitempty"`
	Message      *types.Message `json:"message,omitempty"`
	Notification *Notification  `json:"notification,omitempty"`
}

type Response struct {
	ResponseCode int `json:"response_code"`
	Data         any `json:"data"`
}

type Notification struct {
	Message *types.Message `json:"message"`
}

func NoErrOK(id int, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

// NewMessageEvent is broadcast to every connection joined to the message's room.
func NewMessageEvent(msg types.Message) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Message: &msg,
	}
}

// NewNotificationEvent is pushed to each live connection of the receiver,
// whether or not it joined the room.
func NewNotificationEvent(msg types.Message) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Notification: &Notification{
			Message: &msg,
		},
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
