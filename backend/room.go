package backend

import (
	"sync"

	"golang.org/x/net/context"

	"github.com/scshepard/netwrok-server/proto"
)

// memRoom is the in-process Room: a mutex-guarded membership set with
// join/part fan-out to the remaining members.
type memRoom struct {
	sync.Mutex

	name    string
	members map[proto.Session]struct{}
}

var _ proto.Room = (*memRoom)(nil)

func newMemRoom(name string) *memRoom {
	return &memRoom{
		name:    name,
		members: map[proto.Session]struct{}{},
	}
}

func (r *memRoom) Name() string { return r.name }

// Add joins session to the room and announces it to the other members.
// Adding a session that is already a member is a no-op.
func (r *memRoom) Add(ctx context.Context, session proto.Session) error {
	r.Lock()
	if _, ok := r.members[session]; ok {
		r.Unlock()
		return nil
	}
	if len(r.members) == 0 {
		roomCount.Inc()
	}
	r.members[session] = struct{}{}
	others := r.othersLocked(session)
	r.Unlock()

	broadcast(others, "room.join", r.name, session.MemberID())
	return nil
}

// Remove parts session from the room. Removing a non-member is a no-op.
func (r *memRoom) Remove(ctx context.Context, session proto.Session) error {
	r.Lock()
	if _, ok := r.members[session]; !ok {
		r.Unlock()
		return nil
	}
	delete(r.members, session)
	if len(r.members) == 0 {
		roomCount.Dec()
	}
	others := r.othersLocked(session)
	r.Unlock()

	broadcast(others, "room.part", r.name, session.MemberID())
	return nil
}

// Broadcast relays an event to every member, excluding the sender.
func (r *memRoom) Broadcast(name string, excluding proto.Session, args ...interface{}) {
	r.Lock()
	others := r.othersLocked(excluding)
	r.Unlock()

	broadcast(others, name, args...)
}

func (r *memRoom) contains(session proto.Session) bool {
	r.Lock()
	defer r.Unlock()

	_, ok := r.members[session]
	return ok
}

func (r *memRoom) othersLocked(excluding proto.Session) []proto.Session {
	others := make([]proto.Session, 0, len(r.members))
	for member := range r.members {
		if member != excluding {
			others = append(others, member)
		}
	}
	return others
}

func broadcast(targets []proto.Session, name string, args ...interface{}) {
	for _, target := range targets {
		// Send drops silently on dead sessions; nothing to accumulate.
		target.Send(name, args...)
	}
}
