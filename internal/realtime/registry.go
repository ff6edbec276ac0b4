package realtime

import (
	"strconv"
	"sync"
)

func UserRoom(userID int64) string { return "user:" + strconv.FormatInt(userID, 10) }
func ItemRoom(itemID int64) string { return "item:" + strconv.FormatInt(itemID, 10) }

// Registry tracks open connections and the rooms they joined.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
	rooms map[string]map[string]*Conn
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Conn),
		rooms: make(map[string]map[string]*Conn),
	}
}

func (r *Registry) add(c *Conn) {
	r.mu.Lock()
	r.conns[c.ID] = c
	r.mu.Unlock()
}

// remove drops c from the registry and from every room it joined.
func (r *Registry) remove(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, c.ID)
	for room := range c.rooms {
		if members := r.rooms[room]; members != nil {
			delete(members, c.ID)
			if len(members) == 0 {
				delete(r.rooms, room)
			}
		}
	}
	c.rooms = nil
}

// Join adds c to room. Joining twice is a no-op.
func (r *Registry) Join(c *Conn, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, open := r.conns[c.ID]; !open {
		return
	}
	members := r.rooms[room]
	if members == nil {
		members = make(map[string]*Conn)
		r.rooms[room] = members
	}
	members[c.ID] = c
	c.rooms[room] = struct{}{}
}

// Members returns the union of the given rooms; a connection in several
// rooms appears once.
func (r *Registry) Members(rooms ...string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []*Conn
	for _, room := range rooms {
		for id, c := range r.rooms[room] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// Others returns every open connection except skip.
func (r *Registry) Others(skip *Conn) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Conn, 0, len(r.conns))
	for id, c := range r.conns {
		if skip != nil && id == skip.ID {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// RoomSize reports how many connections are in room.
func (r *Registry) RoomSize(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}
