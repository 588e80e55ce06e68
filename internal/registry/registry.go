// Package registry owns the lifetime of room sessions: lookup, creation and
// removal keyed by room id. It holds no game logic.
package registry

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/JonathanSaleh123/boss-hunter/internal/session"
)

// Registry maps room ids to live sessions. Creation is deduplicated so
// concurrent first joiners of the same room share one session.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*session.Session
	group singleflight.Group

	template  session.Config
	publisher session.Publisher
	recorder  session.BattleRecorder
}

// New builds a Registry. template carries the per-room knobs (boss, timer,
// capacity); its RoomID field is overwritten per room.
func New(template session.Config, publisher session.Publisher, recorder session.BattleRecorder) *Registry {
	return &Registry{
		rooms:     map[string]*session.Session{},
		template:  template,
		publisher: publisher,
		recorder:  recorder,
	}
}

// GetOrCreate returns the live session for roomID, creating it if absent.
// A session that already tore itself down is replaced.
func (r *Registry) GetOrCreate(roomID string) *session.Session {
	r.mu.RLock()
	s, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if ok && !s.Closed() {
		return s
	}

	v, _, _ := r.group.Do(roomID, func() (interface{}, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if s, ok := r.rooms[roomID]; ok && !s.Closed() {
			return s, nil
		}
		cfg := r.template
		cfg.RoomID = roomID
		s := session.New(cfg, r.publisher, r.recorder, r.remove)
		r.rooms[roomID] = s
		return s, nil
	})
	return v.(*session.Session)
}

// Get returns the live session for roomID, if any.
func (r *Registry) Get(roomID string) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.rooms[roomID]
	if !ok || s.Closed() {
		return nil, false
	}
	return s, true
}

// remove drops a session once it has torn itself down. It is installed as
// the session's onEmpty callback.
func (r *Registry) remove(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.rooms[roomID]; ok && s.Closed() {
		delete(r.rooms, roomID)
	}
}

// List returns a point-in-time summary of every live room.
func (r *Registry) List() []session.RoomInfo {
	r.mu.RLock()
	sessions := make([]*session.Session, 0, len(r.rooms))
	for _, s := range r.rooms {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	out := make([]session.RoomInfo, 0, len(sessions))
	for _, s := range sessions {
		if info, ok := s.Info(); ok {
			out = append(out, info)
		}
	}
	return out
}

// StopAll tears down every live session (server shutdown).
func (r *Registry) StopAll() {
	r.mu.RLock()
	sessions := make([]*session.Session, 0, len(r.rooms))
	for _, s := range r.rooms {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()
	for _, s := range sessions {
		s.Stop()
	}
}
