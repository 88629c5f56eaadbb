package websocket

import (
	"sync"

	"github.com/gorilla/websocket"
)

// client is one websocket connection watching a session.
type client struct {
	sessionID string
	conn      *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(sessionID string, conn *websocket.Conn, buffer int) *client {
	return &client{
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan []byte, buffer),
	}
}

// enqueue queues data for the write pump. A client whose buffer is full is
// closed instead of blocking the sender.
func (that *client) enqueue(data []byte) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return false
	}

	select {
	case that.send <- data:
		return true
	default:
		that.closed = true
		close(that.send)
		return false
	}
}

func (that *client) close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.closed {
		that.closed = true
		close(that.send)
	}
}

// room holds the clients of one session. A room that lost its last client is
// marked gone and replaced by a fresh one on the next register.
type room struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	gone    bool
}

// hub groups connected clients by session. hub.mu only guards the room map
// and is never held while waiting for a room lock.
type hub struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

func newHub() *hub {
	return &hub{
		rooms: make(map[string]*room),
	}
}

func (that *hub) lookup(sessionID string) *room {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.rooms[sessionID]
}

func (that *hub) roomFor(sessionID string) *room {
	that.mu.Lock()
	defer that.mu.Unlock()

	r, ok := that.rooms[sessionID]
	if !ok {
		r = &room{clients: make(map[*client]struct{})}
		that.rooms[sessionID] = r
	}

	return r
}

// drop removes r from the map if it is still the room of sessionID.
// The caller holds r.mu.
func (that *hub) drop(sessionID string, r *room) {
	r.gone = true

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.rooms[sessionID] == r {
		delete(that.rooms, sessionID)
	}
}

// register runs prime and adds c while broadcasts to the same session are held
// back, so nothing prime sends can be overtaken by an older broadcast. Other
// sessions are not blocked.
func (that *hub) register(c *client, prime func() error) error {
	for {
		r := that.roomFor(c.sessionID)

		r.mu.Lock()
		if r.gone {
			r.mu.Unlock()
			continue
		}

		err := prime()
		if err == nil {
			r.clients[c] = struct{}{}
		} else if len(r.clients) == 0 {
			that.drop(c.sessionID, r)
		}
		r.mu.Unlock()

		return err
	}
}

func (that *hub) remove(c *client) {
	r := that.lookup(c.sessionID)
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.clients, c)
	if len(r.clients) == 0 && !r.gone {
		that.drop(c.sessionID, r)
	}
}

// broadcast sends data to every client of sessionID and returns how many accepted it.
func (that *hub) broadcast(sessionID string, data []byte) int {
	r := that.lookup(sessionID)
	if r == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sent := 0
	for c := range r.clients {
		if c.enqueue(data) {
			sent++
		}
	}

	return sent
}

// closeSession sends data to the clients of sessionID and disconnects them.
func (that *hub) closeSession(sessionID string, data []byte) {
	r := that.lookup(sessionID)
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for c := range r.clients {
		c.enqueue(data)
		c.close()
	}
	clear(r.clients)
	if !r.gone {
		that.drop(sessionID, r)
	}
}

func (that *hub) closeAll() {
	that.mu.Lock()
	rooms := that.rooms
	that.rooms = make(map[string]*room)
	that.mu.Unlock()

	for _, r := range rooms {
		r.mu.Lock()
		for c := range r.clients {
			c.close()
		}
		clear(r.clients)
		r.gone = true
		r.mu.Unlock()
	}
}

func (that *hub) count(sessionID string) int {
	r := that.lookup(sessionID)
	if r == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.clients)
}
