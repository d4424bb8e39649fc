package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-eventchat/internal/types"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one live socket of an authenticated user.
type Client struct {
	id       string
	conn     *websocket.Conn
	cs       *ChatServer
	log      zerolog.Logger
	user     types.User
	send     chan *ServerMessage
	stop     chan struct{}
	stopOnce sync.Once
}

func NewClient(user types.User, conn *websocket.Conn, cs *ChatServer, logger zerolog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:   id,
		conn: conn,
		cs:   cs,
		log:  logger.With().Str("conn_id", id).Str("user_id", user.Id).Logger(),
		user: user,
		send: make(chan *ServerMessage, 256),
		stop: make(chan struct{}),
	}
}

func (c *Client) User() types.User {
	return c.user
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Debug().Msg("write exiting")
	}()

	for {
		select {
		case msg := <-c.send:
			bytes, err := serializeMessage(msg)
			if err != nil {
				c.log.Error().Err(err).Msg("failed to serialize message")
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait),
			)
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// Read processes inbound events one at a time, so events from a single
// connection are handled in the order they arrive.
func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Debug().Msg("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("ws: read")
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Warn().Err(err).Msg("dropping unparseable message")
			continue
		}

		c.handle(context.Background(), &msg)
	}
}

// handle runs one event. Errors never reach the client: a failed send is
// silent, a failed fetch answers with an empty list and a failed unread
// count answers with zero.
func (c *Client) handle(ctx context.Context, msg *ClientMessage) {
	d := c.cs.dispatcher

	switch {
	case msg.Join != nil:
		d.Join(c, *msg.Join)
	case msg.Send != nil:
		if _, err := d.Send(ctx, c.user, *msg.Send); err != nil {
			c.logDispatchError(err, "send message")
		}
	case msg.Fetch != nil:
		messages, err := d.FetchMessages(ctx, c.user, *msg.Fetch)
		if err != nil {
			c.logDispatchError(err, "fetch messages")
			messages = []types.Message{}
		}
		c.queueMessage(NoErrOK(msg.Id, messages))
	case msg.Unread != nil:
		count, err := d.UnreadCount(ctx, c.user, *msg.Unread)
		if err != nil {
			c.logDispatchError(err, "unread count")
			count = 0
		}
		c.queueMessage(NoErrOK(msg.Id, count))
	default:
		c.log.Debug().Int("id", msg.Id).Msg("dropping message with no event")
	}
}

func (c *Client) logDispatchError(err error, op string) {
	if errors.Is(err, ErrValidation) {
		c.log.Debug().Err(err).Msg(op)
		return
	}

	c.log.Error().Err(err).Msg(op)
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Warn().Msg("failed to send message to client, channel is full")
		return false
	}

	return true
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Warn().Err(err).Msg("write message")
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Client) cleanup() {
	c.cs.DeRegisterClient(c)
	c.stopClient()
}
