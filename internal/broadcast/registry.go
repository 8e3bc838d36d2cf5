package broadcast

import (
	"encoding/json"
	"sync"

	"log/slog"

	"github.com/gorilla/websocket"
)

// Registry is the single owner of live-connection and channel-membership
// state. Every mutation goes through its methods under one mutex; no other
// component reads or writes its maps. Operations are no-ops for unknown
// sockets or channels rather than errors.
type Registry struct {
	mu       sync.RWMutex
	conns    map[string]*Client
	channels map[string]map[string]*Client
	users    map[uint]map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		conns:    make(map[string]*Client),
		channels: make(map[string]map[string]*Client),
		users:    make(map[uint]map[string]*Client),
	}
}

// Register adds a connection to the socket and user indexes. A user may own
// several simultaneous connections (multiple tabs). No channels yet.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[c.id] = c
	if uid, ok := c.UserID(); ok {
		if r.users[uid] == nil {
			r.users[uid] = make(map[string]*Client)
		}
		r.users[uid][c.id] = c
	}
	slog.Info("Socket registered", "socketID", c.id)
}

// Subscribe adds the socket to the channel's member set, creating the set
// lazily. Subscribing twice is a no-op.
func (r *Registry) Subscribe(socketID, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[socketID]
	if !ok {
		return
	}
	if r.channels[channel] == nil {
		r.channels[channel] = make(map[string]*Client)
	}
	r.channels[channel][socketID] = c
	c.channels[channel] = struct{}{}
	slog.Debug("Socket subscribed", "socketID", socketID, "channel", channel)
}

// Unsubscribe removes the socket from the channel's member set. The channel
// key is removed when its set becomes empty; no empty entries persist.
func (r *Registry) Unsubscribe(socketID, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeMemberLocked(socketID, channel)
	if c, ok := r.conns[socketID]; ok {
		delete(c.channels, channel)
	}
	slog.Debug("Socket unsubscribed", "socketID", socketID, "channel", channel)
}

func (r *Registry) removeMemberLocked(socketID, channel string) {
	members, ok := r.channels[channel]
	if !ok {
		return
	}
	delete(members, socketID)
	if len(members) == 0 {
		delete(r.channels, channel)
	}
}

// Broadcast delivers one event frame to every member of the channel except
// excludeSocket. A failed delivery disconnects that socket only; the loop
// continues for the remaining members.
func (r *Registry) Broadcast(channel, event string, data json.RawMessage, excludeSocket string) {
	frame := newFrame(event, data, channel)

	r.mu.RLock()
	var failed []string
	for id, c := range r.channels[channel] {
		if id == excludeSocket {
			continue
		}
		if err := c.Send(frame); err != nil {
			failed = append(failed, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range failed {
		slog.Warn("Delivery failed, disconnecting socket", "socketID", id, "channel", channel)
		r.Disconnect(id)
	}
}

// Disconnect removes the socket from every channel, the user index and the
// connection map, then closes it. Callable any number of times; paths from
// both the read loop and failed broadcasts funnel here.
func (r *Registry) Disconnect(socketID string) {
	r.mu.Lock()
	c, ok := r.conns[socketID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, socketID)
	for channel := range c.channels {
		r.removeMemberLocked(socketID, channel)
	}
	if uid, owned := c.UserID(); owned {
		if sockets, exists := r.users[uid]; exists {
			delete(sockets, socketID)
			if len(sockets) == 0 {
				delete(r.users, uid)
			}
		}
	}
	r.mu.Unlock()

	c.Close()
	slog.Info("Socket disconnected", "socketID", socketID)
}

// Close disconnects every socket with a normal closure code. Used on
// shutdown; the registry remains usable afterwards.
func (r *Registry) Close() {
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.conns))
	for _, c := range r.conns {
		clients = append(clients, c)
	}
	r.mu.RUnlock()

	for _, c := range clients {
		c.CloseWithCode(websocket.CloseNormalClosure, "server shutting down")
		r.Disconnect(c.id)
	}
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Subscribed reports whether the socket is a member of the channel.
func (r *Registry) Subscribed(socketID, channel string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.channels[channel]
	if !ok {
		return false
	}
	_, ok = members[socketID]
	return ok
}

// ChannelSize reports the channel's member count (0 for unknown channels).
func (r *Registry) ChannelSize(channel string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[channel])
}

// UserSockets lists the socket ids owned by a user.
func (r *Registry) UserSockets(userID uint) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sockets := make([]string, 0, len(r.users[userID]))
	for id := range r.users[userID] {
		sockets = append(sockets, id)
	}
	return sockets
}
