package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/npezzotti/go-eventchat/internal/database"
	"github.com/npezzotti/go-eventchat/internal/testutil"
	"github.com/npezzotti/go-eventchat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func Test_queueMessage(t *testing.T) {
	t.Run("successful queue", func(t *testing.T) {
		c := &Client{
			send: make(chan *ServerMessage, 1),
			log:  testutil.TestLogger(t),
		}

		res := c.queueMessage(&ServerMessage{})
		assert.True(t, res, "expected queueMessage to return true when channel is not full")

		select {
		case msg := <-c.send:
			assert.NotNil(t, msg, "expected a message to be sent to the client")
		default:
			t.Error("expected a message to be sent to the client, but none was sent")
		}
	})
	t.Run("channel full", func(t *testing.T) {
		c := &Client{
			send: make(chan *ServerMessage, 1),
			log:  testutil.TestLogger(t),
		}

		c.send <- &ServerMessage{}
		res := c.queueMessage(&ServerMessage{})
		assert.False(t, res, "expected queueMessage to return false when channel is full")
	})
}

func Test_serializeMessage(t *testing.T) {
	message := &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        1,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: 200,
			Data:         "test data",
		},
	}

	expected := `{"id":1,"timestamp":"` + message.Timestamp.Format(time.RFC3339Nano) +
		`","response":{"response_code":200,"data":"test data"}}`

	bytes, err := serializeMessage(message)
	assert.NoError(t, err, "expected no error during serialization")
	assert.Equal(t, expected, string(bytes), "expected serialized message to match the expected format")
}

func Test_stopClient(t *testing.T) {
	c := &Client{
		stop: make(chan struct{}),
	}

	c.stopClient()
	c.stopClient()

	select {
	case <-c.stop:
	default:
		t.Error("expected stop channel to be closed")
	}
}

func TestNewClient(t *testing.T) {
	cs := newTestChatServer(t, database.NewMemMessageStore())
	user := types.User{Id: "1", Username: "alice"}

	c1 := NewClient(user, nil, cs, testutil.TestLogger(t))
	c2 := NewClient(user, nil, cs, testutil.TestLogger(t))

	assert.Equal(t, user, c1.User(), "expected client to carry the authenticated user")
	assert.NotEmpty(t, c1.id, "expected connection id to be assigned")
	assert.NotEqual(t, c1.id, c2.id, "expected connection ids to be unique")
	assert.Equal(t, 256, cap(c1.send), "expected buffered send queue")
}

func TestClient_cleanup(t *testing.T) {
	cs := newTestChatServer(t, database.NewMemMessageStore())
	c := connect(t, cs, alice)
	cs.dispatcher.Join(c, RoomRef{PackageId: "P1"})

	c.cleanup()
	c.cleanup()

	assert.False(t, isOnline(cs, alice.Id), "expected presence entry to be removed")
	assert.Zero(t, len(cs.router.rooms), "expected rooms to be removed")
	select {
	case <-c.stop:
	default:
		t.Error("expected client to be stopped")
	}
}

func TestClient_handle(t *testing.T) {
	t.Run("join", func(t *testing.T) {
		cs := newTestChatServer(t, database.NewMemMessageStore())
		c := connect(t, cs, alice)

		c.handle(context.Background(), &ClientMessage{Join: &RoomRef{BookingId: "B1"}})

		assert.Equal(t, []*Client{c}, cs.router.Members("booking_B1"), "expected client to join the room")
		assert.Empty(t, drain(c), "expected no response to a join")
	})

	t.Run("send", func(t *testing.T) {
		cs := newTestChatServer(t, database.NewMemMessageStore())
		c := connect(t, cs, alice)
		receiver := connect(t, cs, bob)

		c.handle(context.Background(), &ClientMessage{
			BaseMessage: BaseMessage{Id: 7},
			Send:        &SendMessage{Receiver: bob.Id, Content: "Hi"},
		})

		assert.Empty(t, drain(c), "expected no response to a send")
		events := drain(receiver)
		require.Len(t, events, 1)
		assert.Equal(t, "Hi", events[0].Notification.Message.Content)
	})

	t.Run("invalid send is silent", func(t *testing.T) {
		store := &database.MockMessageStore{}
		cs := newTestChatServer(t, store)
		c := connect(t, cs, alice)

		c.handle(context.Background(), &ClientMessage{
			BaseMessage: BaseMessage{Id: 7},
			Send:        &SendMessage{Receiver: bob.Id},
		})

		assert.Empty(t, drain(c), "expected no response to an invalid send")
		store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("failed send is silent", func(t *testing.T) {
		store := &database.MockMessageStore{}
		store.On("Insert", mock.Anything, mock.Anything).Return(database.Message{}, errors.New("db down")).Once()
		cs := newTestChatServer(t, store)
		c := connect(t, cs, alice)

		c.handle(context.Background(), &ClientMessage{
			BaseMessage: BaseMessage{Id: 7},
			Send:        &SendMessage{Receiver: bob.Id, Content: "Hi"},
		})

		assert.Empty(t, drain(c), "expected no response to a failed send")
		store.AssertExpectations(t)
	})

	t.Run("fetch", func(t *testing.T) {
		cs := newTestChatServer(t, database.NewMemMessageStore())
		c := connect(t, cs, bob)
		sent, err := cs.dispatcher.Send(context.Background(), alice, SendMessage{Receiver: bob.Id, Content: "Hi", BookingId: "B1"})
		require.NoError(t, err)
		drain(c)

		c.handle(context.Background(), &ClientMessage{
			BaseMessage: BaseMessage{Id: 3},
			Fetch:       &RoomRef{BookingId: "B1"},
		})

		events := drain(c)
		require.Len(t, events, 1, "expected a callback response")
		assert.Equal(t, 3, events[0].Id, "expected response id to match request id")
		require.NotNil(t, events[0].Response)
		assert.Equal(t, 200, events[0].Response.ResponseCode)
		msgs, ok := events[0].Response.Data.([]types.Message)
		require.True(t, ok, "expected a message list")
		assert.Equal(t, []string{sent.Id}, messageIds(msgs))
	})

	t.Run("failed fetch answers with an empty list", func(t *testing.T) {
		store := &database.MockMessageStore{}
		store.On("Find", mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()
		cs := newTestChatServer(t, store)
		c := connect(t, cs, bob)

		c.handle(context.Background(), &ClientMessage{
			BaseMessage: BaseMessage{Id: 4},
			Fetch:       &RoomRef{BookingId: "B1"},
		})

		events := drain(c)
		require.Len(t, events, 1, "expected a callback response")
		assert.Equal(t, 4, events[0].Id)
		assert.Equal(t, []types.Message{}, events[0].Response.Data, "expected an empty list")
		store.AssertExpectations(t)
	})

	t.Run("unread", func(t *testing.T) {
		cs := newTestChatServer(t, database.NewMemMessageStore())
		c := connect(t, cs, bob)
		_, err := cs.dispatcher.Send(context.Background(), alice, SendMessage{Receiver: bob.Id, Content: "Hi", PackageId: "P1"})
		require.NoError(t, err)
		drain(c)

		c.handle(context.Background(), &ClientMessage{
			BaseMessage: BaseMessage{Id: 5},
			Unread:      &RoomRef{PackageId: "P1"},
		})

		events := drain(c)
		require.Len(t, events, 1, "expected a callback response")
		assert.Equal(t, 5, events[0].Id)
		assert.Equal(t, int64(1), events[0].Response.Data)
	})

	t.Run("failed unread answers with zero", func(t *testing.T) {
		store := &database.MockMessageStore{}
		store.On("Count", mock.Anything, mock.Anything).Return(int64(0), errors.New("db down")).Once()
		cs := newTestChatServer(t, store)
		c := connect(t, cs, bob)

		c.handle(context.Background(), &ClientMessage{
			BaseMessage: BaseMessage{Id: 6},
			Unread:      &RoomRef{},
		})

		events := drain(c)
		require.Len(t, events, 1, "expected a callback response")
		assert.Equal(t, int64(0), events[0].Response.Data, "expected zero")
		store.AssertExpectations(t)
	})

	t.Run("no event", func(t *testing.T) {
		cs := newTestChatServer(t, database.NewMemMessageStore())
		c := connect(t, cs, alice)

		c.handle(context.Background(), &ClientMessage{BaseMessage: BaseMessage{Id: 1}})

		assert.Empty(t, drain(c), "expected an empty event to be dropped")
	})
}
