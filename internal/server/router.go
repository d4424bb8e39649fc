package server

import "sync"

const (
	bookingRoomPrefix = "booking_"
	packageRoomPrefix = "package_"
)

// DeriveRoom returns the room for a booking or, without one, a package.
// It reports false when neither id is set.
func DeriveRoom(bookingId, packageId string) (string, bool) {
	switch {
	case bookingId != "":
		return bookingRoomPrefix + bookingId, true
	case packageId != "":
		return packageRoomPrefix + packageId, true
	default:
		return "", false
	}
}

// RoomRouter maintains room membership for live fan-out. Rooms exist only
// while they have members.
type RoomRouter struct {
	mu          sync.RWMutex
	rooms       map[string]map[*Client]struct{}
	clientRooms map[*Client]map[string]struct{}
}

func NewRoomRouter() *RoomRouter {
	return &RoomRouter{
		rooms:       make(map[string]map[*Client]struct{}),
		clientRooms: make(map[*Client]map[string]struct{}),
	}
}

// Join adds c to roomId and reports whether the room was created by this
// call. Joining a room twice has no effect.
func (r *RoomRouter) Join(c *Client, roomId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomId]
	if !ok {
		members = make(map[*Client]struct{})
		r.rooms[roomId] = members
	}
	members[c] = struct{}{}

	if r.clientRooms[c] == nil {
		r.clientRooms[c] = make(map[string]struct{})
	}
	r.clientRooms[c][roomId] = struct{}{}

	return !ok
}

// LeaveAll removes c from every room it joined and returns the rooms left
// without members.
func (r *RoomRouter) LeaveAll(c *Client) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var emptied []string
	for roomId := range r.clientRooms[c] {
		members := r.rooms[roomId]
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, roomId)
			emptied = append(emptied, roomId)
		}
	}
	delete(r.clientRooms, c)

	return emptied
}

func (r *RoomRouter) Members(roomId string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomId]
	clients := make([]*Client, 0, len(members))
	for c := range members {
		clients = append(clients, c)
	}

	return clients
}

// Broadcast queues msg on every member of roomId and returns how many
// members accepted it.
func (r *RoomRouter) Broadcast(roomId string, msg *ServerMessage) int {
	var n int
	for _, c := range r.Members(roomId) {
		if c.queueMessage(msg) {
			n++
		}
	}

	return n
}
