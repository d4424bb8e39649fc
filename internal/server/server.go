package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/npezzotti/go-eventchat/internal/database"
	"github.com/npezzotti/go-eventchat/internal/stats"
	"github.com/rs/zerolog"
)

var ErrShuttingDown = errors.New("chat server is shutting down")

// ChatServer manages the lifecycle of live connections: presence
// registration on connect, cleanup on disconnect, and shutdown.
type ChatServer struct {
	log          zerolog.Logger
	presence     PresenceRegistry
	router       *RoomRouter
	dispatcher   *Dispatcher
	stats        stats.StatsProvider
	clients      map[*Client]struct{}
	clientsLock  sync.Mutex
	clientsWg    sync.WaitGroup
	shuttingDown bool
}

func NewChatServer(logger zerolog.Logger, store database.MessageStore, presence PresenceRegistry,
	su stats.StatsProvider, persistenceTimeout time.Duration) (*ChatServer, error) {
	if store == nil {
		return nil, errors.New("message store is required")
	}
	if presence == nil {
		return nil, errors.New("presence registry is required")
	}

	su.RegisterMetric(stats.NumActiveClients)
	su.RegisterMetric(stats.NumOnlineUsers)
	su.RegisterMetric(stats.NumActiveRooms)
	su.RegisterMetric(stats.NumMessagesSent)

	router := NewRoomRouter()

	return &ChatServer{
		log:        logger,
		presence:   presence,
		router:     router,
		dispatcher: NewDispatcher(logger, store, presence, router, su, persistenceTimeout),
		stats:      su,
		clients:    make(map[*Client]struct{}),
	}, nil
}

// RegisterClient records an authenticated connection. It fails once
// shutdown has started.
func (cs *ChatServer) RegisterClient(c *Client) error {
	cs.clientsLock.Lock()
	if cs.shuttingDown {
		cs.clientsLock.Unlock()
		return ErrShuttingDown
	}
	cs.clients[c] = struct{}{}
	cs.clientsWg.Add(1)
	cs.clientsLock.Unlock()

	cs.stats.Incr(stats.NumActiveClients)
	if cs.presence.Register(c) {
		cs.stats.Incr(stats.NumOnlineUsers)
	}

	cs.log.Info().Str("conn_id", c.id).Str("user_id", c.user.Id).Msg("client connected")
	return nil
}

// DeRegisterClient removes every trace of c: presence, room membership and
// the client set. It is safe to call more than once.
func (cs *ChatServer) DeRegisterClient(c *Client) {
	cs.clientsLock.Lock()
	if _, ok := cs.clients[c]; !ok {
		cs.clientsLock.Unlock()
		return
	}
	delete(cs.clients, c)
	cs.clientsLock.Unlock()
	defer cs.clientsWg.Done()

	if removed, offline := cs.presence.Deregister(c); removed {
		cs.stats.Decr(stats.NumActiveClients)
		if offline {
			cs.stats.Decr(stats.NumOnlineUsers)
		}
	}

	for range cs.router.LeaveAll(c) {
		cs.stats.Decr(stats.NumActiveRooms)
	}

	cs.log.Info().Str("conn_id", c.id).Str("user_id", c.user.Id).Msg("client disconnected")
}

// Shutdown stops every client and waits for their cleanup to finish or for
// ctx to expire.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Info().Msg("shutting down chat server")

	cs.clientsLock.Lock()
	cs.shuttingDown = true
	for c := range cs.clients {
		c.stopClient()
	}
	cs.clientsLock.Unlock()

	done := make(chan struct{})
	go func() {
		cs.clientsWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
