package server

import "sync"

// PresenceRegistry tracks the live connections of each user. A user with no
// entry is offline.
type PresenceRegistry interface {
	// Register adds c under its user and reports whether it is the user's
	// first live connection.
	Register(c *Client) bool
	// Deregister removes c. It reports whether c was registered and whether
	// its user is now offline. Deregistering twice is a no-op.
	Deregister(c *Client) (removed bool, offline bool)
	ConnectionsFor(userId string) []*Client
}

type Presence struct {
	mu    sync.RWMutex
	users map[string]map[*Client]struct{}
}

func NewPresence() *Presence {
	return &Presence{
		users: make(map[string]map[*Client]struct{}),
	}
}

var _ PresenceRegistry = (*Presence)(nil)

func (p *Presence) Register(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns, ok := p.users[c.user.Id]
	if !ok {
		conns = make(map[*Client]struct{})
		p.users[c.user.Id] = conns
	}
	conns[c] = struct{}{}

	return !ok
}

func (p *Presence) Deregister(c *Client) (bool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns, ok := p.users[c.user.Id]
	if !ok {
		return false, false
	}

	if _, ok := conns[c]; !ok {
		return false, false
	}

	delete(conns, c)
	if len(conns) == 0 {
		delete(p.users, c.user.Id)
		return true, true
	}

	return true, false
}

func (p *Presence) ConnectionsFor(userId string) []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()

	conns := p.users[userId]
	clients := make([]*Client, 0, len(conns))
	for c := range conns {
		clients = append(clients, c)
	}

	return clients
}
