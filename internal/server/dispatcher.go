package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/npezzotti/go-eventchat/internal/database"
	"github.com/npezzotti/go-eventchat/internal/stats"
	"github.com/npezzotti/go-eventchat/internal/types"
	"github.com/rs/zerolog"
)

const defaultPersistenceTimeout = 5 * time.Second

var (
	// ErrValidation marks a send without a receiver or content.
	ErrValidation = errors.New("validation error")
	// ErrPersistence marks a failed or timed out message store call.
	ErrPersistence = errors.New("persistence error")
)

// Dispatcher implements the messaging operations. It reports failures as
// errors; the connection layer decides what, if anything, the client sees.
type Dispatcher struct {
	log      zerolog.Logger
	store    database.MessageStore
	presence PresenceRegistry
	router   *RoomRouter
	stats    stats.StatsProvider
	validate *validator.Validate
	timeout  time.Duration
}

func NewDispatcher(logger zerolog.Logger, store database.MessageStore, presence PresenceRegistry,
	router *RoomRouter, su stats.StatsProvider, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultPersistenceTimeout
	}

	return &Dispatcher{
		log:      logger,
		store:    store,
		presence: presence,
		router:   router,
		stats:    su,
		validate: validator.New(),
		timeout:  timeout,
	}
}

// Join adds c to the room derived from ref. Without a booking or package id
// it does nothing and returns false.
func (d *Dispatcher) Join(c *Client, ref RoomRef) (string, bool) {
	roomId, ok := DeriveRoom(ref.BookingId, ref.PackageId)
	if !ok {
		return "", false
	}

	if d.router.Join(c, roomId) {
		d.stats.Incr(stats.NumActiveRooms)
	}

	d.log.Debug().Str("room", roomId).Str("user_id", c.user.Id).Msg("joined room")
	return roomId, true
}

// Send persists a message from sender and fans it out to the room and to
// every live connection of the receiver.
func (d *Dispatcher) Send(ctx context.Context, sender types.User, req SendMessage) (*types.Message, error) {
	if err := d.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	row := database.Message{
		SenderId:   sender.Id,
		ReceiverId: req.Receiver,
		Content:    req.Content,
	}

	// a message belongs to at most one room, so only the ref that names
	// the room is stored
	roomId, hasRoom := DeriveRoom(req.BookingId, req.PackageId)
	if req.BookingId != "" {
		row.BookingId = req.BookingId
	} else {
		row.PackageId = req.PackageId
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	stored, err := d.store.Insert(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("%w: insert message: %w", ErrPersistence, err)
	}
	d.stats.Incr(stats.NumMessagesSent)

	msg := toWireMessage(stored, sender)

	if hasRoom {
		n := d.router.Broadcast(roomId, NewMessageEvent(msg))
		d.log.Debug().Str("room", roomId).Int("recipients", n).Str("message_id", msg.Id).Msg("broadcast message")
	}

	for _, c := range d.presence.ConnectionsFor(req.Receiver) {
		c.queueMessage(NewNotificationEvent(msg))
	}

	return &msg, nil
}

// FetchMessages returns the caller's conversation in the room named by ref,
// oldest first, and marks the returned messages addressed to the caller as read. The
// returned records reflect their state before the update. A failed update
// is logged and does not fail the fetch.
func (d *Dispatcher) FetchMessages(ctx context.Context, user types.User, ref RoomRef) ([]types.Message, error) {
	filter := database.ParticipantFilter(user.Id, ref.BookingId, ref.PackageId)

	findCtx, cancel := context.WithTimeout(ctx, d.timeout)
	rows, err := d.store.Find(findCtx, filter)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: find messages: %w", ErrPersistence, err)
	}

	messages := make([]types.Message, 0, len(rows))
	var unreadIds []string
	for _, row := range rows {
		if row.ReceiverId == user.Id && !row.IsRead {
			unreadIds = append(unreadIds, row.Id)
		}

		sender := types.User{Id: row.SenderId}
		if row.SenderId == user.Id {
			sender = user
		}
		messages = append(messages, toWireMessage(row, sender))
	}

	// mark only the rows returned above; later messages stay unread
	if len(unreadIds) > 0 {
		updateCtx, cancel := context.WithTimeout(ctx, d.timeout)
		n, err := d.store.UpdateMany(updateCtx, filter.Unread().WithIds(unreadIds...), database.MessagePatch{MarkRead: true})
		cancel()
		if err != nil {
			d.log.Error().Err(err).Str("user_id", user.Id).Msg("mark messages read")
		} else {
			d.log.Debug().Int64("count", n).Str("user_id", user.Id).Msg("marked messages read")
		}
	}

	return messages, nil
}

// UnreadCount counts unread messages addressed to user in the room named by
// ref, or across all rooms when ref is empty.
func (d *Dispatcher) UnreadCount(ctx context.Context, user types.User, ref RoomRef) (int64, error) {
	filter := database.ParticipantFilter(user.Id, ref.BookingId, ref.PackageId).Unread()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	count, err := d.store.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("%w: count unread: %w", ErrPersistence, err)
	}

	return count, nil
}

func toWireMessage(row database.Message, sender types.User) types.Message {
	return types.Message{
		Id:        row.Id,
		Sender:    sender,
		Receiver:  row.ReceiverId,
		Content:   row.Content,
		IsRead:    row.IsRead,
		BookingId: row.BookingId,
		PackageId: row.PackageId,
		CreatedAt: row.CreatedAt,
	}
}
