// server/client.go
package server

import (
	"sync"
	"time"

	"github.com/turnwell/gameserver/network"
)

// Client 是一条已接入的连接，可以绑定到某个会话房间里的一个参与者。
type Client struct {
	ID         string
	Conn       network.Connection
	CreatedAt  time.Time
	LastActive time.Time

	mutex     sync.RWMutex
	username  string
	sessionID string
}

func NewClient(id string, conn network.Connection) *Client {
	now := time.Now()
	return &Client{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

func (c *Client) Send(msgID uint16, data []byte) error {
	return c.Conn.Send(msgID, data)
}

// Bind attaches the client to a session room under a display name.
func (c *Client) Bind(sessionID, username string) {
	c.mutex.Lock()
	c.sessionID = sessionID
	c.username = username
	c.mutex.Unlock()
}

func (c *Client) Binding() (sessionID, username string) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.sessionID, c.username
}

// Registry tracks connected clients and their session rooms. It implements
// broadcast.Notifier.
type Registry struct {
	mutex   sync.RWMutex
	clients map[string]*Client            // client id -> client
	rooms   map[string]map[string]*Client // session id -> client id -> client
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

func (r *Registry) Add(c *Client) {
	r.mutex.Lock()
	r.clients[c.ID] = c
	r.mutex.Unlock()
}

func (r *Registry) Remove(clientID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	c, exists := r.clients[clientID]
	if !exists {
		return
	}
	delete(r.clients, clientID)

	sessionID, _ := c.Binding()
	if room, ok := r.rooms[sessionID]; ok {
		delete(room, clientID)
		if len(room) == 0 {
			delete(r.rooms, sessionID)
		}
	}
}

// Join places the client in a session room (and binds it).
func (r *Registry) Join(c *Client, sessionID, username string) {
	c.Bind(sessionID, username)

	r.mutex.Lock()
	room, ok := r.rooms[sessionID]
	if !ok {
		room = make(map[string]*Client)
		r.rooms[sessionID] = room
	}
	room[c.ID] = c
	r.mutex.Unlock()
}

// CloseRoom detaches every client from a session room, returning the
// clients that were in it.
func (r *Registry) CloseRoom(sessionID string) []*Client {
	r.mutex.Lock()
	room := r.rooms[sessionID]
	delete(r.rooms, sessionID)
	r.mutex.Unlock()

	members := make([]*Client, 0, len(room))
	for _, c := range room {
		c.Bind("", "")
		members = append(members, c)
	}
	return members
}

func (r *Registry) roomMembers(sessionID string) []*Client {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	room := r.rooms[sessionID]
	members := make([]*Client, 0, len(room))
	for _, c := range room {
		members = append(members, c)
	}
	return members
}

// SendToUser delivers a frame to every connection the named participant has
// in the session room.
func (r *Registry) SendToUser(sessionID, username string, msgID uint16, data []byte) error {
	for _, c := range r.roomMembers(sessionID) {
		_, name := c.Binding()
		if name != username {
			continue
		}
		if err := c.Send(msgID, data); err != nil {
			continue
		}
	}
	return nil
}

// SendToRoom delivers a frame to every client in the session room.
func (r *Registry) SendToRoom(sessionID string, msgID uint16, data []byte) error {
	for _, c := range r.roomMembers(sessionID) {
		if err := c.Send(msgID, data); err != nil {
			// 发送失败不拖累同房间的其他连接
			continue
		}
	}
	return nil
}

// SendToRoomExcept is SendToRoom minus one client, for notifications the
// requester already received directly.
func (r *Registry) SendToRoomExcept(sessionID, exceptClientID string, msgID uint16, data []byte) {
	for _, c := range r.roomMembers(sessionID) {
		if c.ID == exceptClientID {
			continue
		}
		if err := c.Send(msgID, data); err != nil {
			continue
		}
	}
}

// Count returns the number of connected clients.
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.clients)
}
