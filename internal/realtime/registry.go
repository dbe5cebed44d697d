package realtime

import "sync"

// Conn is the minimal connection surface the registry tracks. Satisfied by
// *websocket.Conn and by test fakes.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Registry maps a user id to their single live connection. A user opening a
// second connection replaces the first; unregistering is keyed on the
// connection so a stale disconnect cannot evict a newer socket.
type Registry struct {
	mu     sync.Mutex
	byUser map[string]Conn
	byConn map[Conn]string
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]Conn),
		byConn: make(map[Conn]string),
	}
}

// Register binds conn to userID, closing and replacing any previous
// connection for the same user.
func (r *Registry) Register(userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byUser[userID]; ok && prev != conn {
		delete(r.byConn, prev)
		_ = prev.Close()
	}
	r.byUser[userID] = conn
	r.byConn[conn] = userID
}

// Unregister removes the entry for conn, if conn is still current.
func (r *Registry) Unregister(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.byConn[conn]
	if !ok {
		return
	}
	delete(r.byConn, conn)
	if r.byUser[userID] == conn {
		delete(r.byUser, userID)
	}
}

// Lookup returns the live connection for userID, or nil.
func (r *Registry) Lookup(userID string) Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byUser[userID]
}

// Len reports the number of registered connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byConn)
}
