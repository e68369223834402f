package backend

import (
	"sync"

	"github.com/scshepard/netwrok-server/proto"
)

// A Directory is the process-wide mapping from member identity to its one
// live session. It holds at most one entry per member; sessions only ever
// register and unregister themselves.
type Directory struct {
	sync.Mutex
	sessions map[int64]proto.Session
}

func NewDirectory() *Directory {
	return &Directory{sessions: map[int64]proto.Session{}}
}

// Register makes session the canonical session for memberID and returns the
// session it displaced, if any.
func (d *Directory) Register(memberID int64, session proto.Session) proto.Session {
	d.Lock()
	defer d.Unlock()

	displaced := d.sessions[memberID]
	d.sessions[memberID] = session
	if displaced == session {
		return nil
	}
	return displaced
}

// Unregister removes the entry for memberID only if it still refers to
// session. A stale close must not evict a newer login.
func (d *Directory) Unregister(memberID int64, session proto.Session) {
	d.Lock()
	defer d.Unlock()

	if d.sessions[memberID] == session {
		delete(d.sessions, memberID)
	}
}

func (d *Directory) Lookup(memberID int64) (proto.Session, bool) {
	d.Lock()
	defer d.Unlock()

	session, ok := d.sessions[memberID]
	return session, ok
}

// CloseAll closes every live session. Used only at process shutdown.
func (d *Directory) CloseAll() {
	d.Lock()
	live := make([]proto.Session, 0, len(d.sessions))
	for _, session := range d.sessions {
		live = append(live, session)
	}
	d.Unlock()

	// Close unregisters, so the lock must not be held here.
	for _, session := range live {
		session.Close()
	}
}
