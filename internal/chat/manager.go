package chat

import (
	"fmt"
	"strings"
	"sync"
)

// Session tracks one connected chat user.
type Session struct {
	// UID is the unique session identifier.
	UID string
	// Nick is the display name chosen at connect time, unique per server.
	Nick string
	// Room is the room the user currently occupies. Each room is one
	// counting game instance.
	Room string
	// Outbox delivers broadcast lines to the session's writer goroutine.
	Outbox *Outbox
}

// Manager tracks all active chat sessions and room occupancy.
// All methods are safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session        // uid → session
	nicks    map[string]string          // lowercased nick → uid
	roomSets map[string]map[string]bool // room → set of UIDs
}

// NewManager creates an empty chat Manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		nicks:    make(map[string]string),
		roomSets: make(map[string]map[string]bool),
	}
}

// Join registers a new session in the given room.
//
// Precondition: uid, nick, and room must be non-empty.
// Postcondition: Returns the created Session, or an error if the UID is
// already registered or the nick is taken (case-insensitively).
func (m *Manager) Join(uid, nick, room string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[uid]; exists {
		return nil, fmt.Errorf("session %q already connected", uid)
	}
	key := strings.ToLower(nick)
	if _, taken := m.nicks[key]; taken {
		return nil, fmt.Errorf("nick %q is already in use", nick)
	}

	sess := &Session{
		UID:    uid,
		Nick:   nick,
		Room:   room,
		Outbox: NewOutbox(uid, 64),
	}

	m.sessions[uid] = sess
	m.nicks[key] = uid
	if m.roomSets[room] == nil {
		m.roomSets[room] = make(map[string]bool)
	}
	m.roomSets[room][uid] = true

	return sess, nil
}

// Leave removes a session and cleans up room and nick tracking.
//
// Precondition: uid must be non-empty.
// Postcondition: The session is removed from all tracking and its outbox
// is closed. Returns an error if not found.
func (m *Manager) Leave(uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[uid]
	if !exists {
		return fmt.Errorf("session %q not found", uid)
	}

	if rs, ok := m.roomSets[sess.Room]; ok {
		delete(rs, uid)
		if len(rs) == 0 {
			delete(m.roomSets, sess.Room)
		}
	}
	delete(m.nicks, strings.ToLower(sess.Nick))

	_ = sess.Outbox.Close()

	delete(m.sessions, uid)
	return nil
}

// NicksInRoom returns the display names of all users in the given room.
//
// Postcondition: Returns a slice of nicks (may be empty).
func (m *Manager) NicksInRoom(room string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uids, ok := m.roomSets[room]
	if !ok {
		return nil
	}

	nicks := make([]string, 0, len(uids))
	for uid := range uids {
		if sess, ok := m.sessions[uid]; ok {
			nicks = append(nicks, sess.Nick)
		}
	}
	return nicks
}

// Broadcast pushes a line to every session in the room. Sessions whose
// outbox is full or closed are skipped; delivery is best-effort.
func (m *Manager) Broadcast(room, line string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for uid := range m.roomSets[room] {
		if sess, ok := m.sessions[uid]; ok {
			_ = sess.Outbox.Push(line)
		}
	}
}

// Get returns the session for the given UID.
//
// Postcondition: Returns (session, true) if found, or (nil, false).
func (m *Manager) Get(uid string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[uid]
	return sess, ok
}

// GetByNick returns the session with the given nick, case-insensitively.
//
// Postcondition: Returns (session, true) if found, or (nil, false).
func (m *Manager) GetByNick(nick string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	uid, ok := m.nicks[strings.ToLower(nick)]
	if !ok {
		return nil, false
	}
	sess, ok := m.sessions[uid]
	return sess, ok
}

// Count returns the total number of connected sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
