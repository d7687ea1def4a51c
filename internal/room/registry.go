package room

import (
	"sync"
	"time"
)

// Session is the ephemeral participant record. It lives only while the
// connection is live and is rebuilt from scratch on reconnect.
type Session struct {
	ConnID    string    `json:"conn_id"`
	ProjectID uint64    `json:"project_id"`
	Role      string    `json:"role"`
	Name      string    `json:"name"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Registry maps project rooms to live connections. It is an explicit
// instance owned by the server process, not package-global state. A
// connection belongs to at most one room; joining a second room moves it.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]Session
	rooms  map[uint64]map[string]Session
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]Session),
		rooms:  make(map[uint64]map[string]Session),
	}
}

// Join registers the session in its project room. Idempotent: joining the
// same room twice is a no-op and never produces a duplicate membership.
// Returns true when membership actually changed.
func (r *Registry) Join(s Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.byConn[s.ConnID]; ok {
		if current.ProjectID == s.ProjectID {
			return false
		}
		r.removeLocked(current)
	}

	if r.rooms[s.ProjectID] == nil {
		r.rooms[s.ProjectID] = make(map[string]Session)
	}
	r.rooms[s.ProjectID][s.ConnID] = s
	r.byConn[s.ConnID] = s
	return true
}

// Leave removes the connection unconditionally, whether or not it ever
// explicitly left its room. Returns the room it was in.
func (r *Registry) Leave(connID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byConn[connID]
	if !ok {
		return Session{}, false
	}
	r.removeLocked(s)
	return s, true
}

func (r *Registry) removeLocked(s Session) {
	delete(r.byConn, s.ConnID)
	if members, ok := r.rooms[s.ProjectID]; ok {
		delete(members, s.ConnID)
		if len(members) == 0 {
			delete(r.rooms, s.ProjectID)
		}
	}
}

// MembersOf returns a snapshot of the room's sessions.
func (r *Registry) MembersOf(projectID uint64) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]Session, 0, len(r.rooms[projectID]))
	for _, s := range r.rooms[projectID] {
		members = append(members, s)
	}
	return members
}

// RoomOf returns the project the connection is currently joined to.
func (r *Registry) RoomOf(connID string) (uint64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byConn[connID]
	return s.ProjectID, ok
}

func (r *Registry) Count(projectID uint64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[projectID])
}
