package backend

import (
	"sync"

	"github.com/scshepard/netwrok-server/proto"
)

// LocalPresenceRegister is the in-process presence interest graph. It
// resolves listeners through the session directory and dispatches each
// notification on its own goroutine; callers never wait for delivery.
type LocalPresenceRegister struct {
	sync.Mutex
	directory *Directory
	online    map[int64]struct{}
	interest  map[int64]map[int64]struct{} // subscriber -> watched
	watchers  map[int64]map[int64]struct{} // watched -> subscribers
}

var _ proto.PresenceRegister = (*LocalPresenceRegister)(nil)

func NewLocalPresenceRegister(directory *Directory) *LocalPresenceRegister {
	return &LocalPresenceRegister{
		directory: directory,
		online:    map[int64]struct{}{},
		interest:  map[int64]map[int64]struct{}{},
		watchers:  map[int64]map[int64]struct{}{},
	}
}

// Add marks memberID visible to its watchers and announces it online.
func (r *LocalPresenceRegister) Add(memberID int64) {
	r.Lock()
	r.online[memberID] = struct{}{}
	listeners := r.eligibleWatchers(memberID)
	r.Unlock()

	for _, listenerID := range listeners {
		r.Notify("online", listenerID, memberID)
	}
}

// Remove announces memberID offline and drops its visibility and its own
// interest entries. Safe to call for a member that was never added.
func (r *LocalPresenceRegister) Remove(memberID int64) {
	r.Lock()
	if _, ok := r.online[memberID]; !ok {
		r.Unlock()
		return
	}
	delete(r.online, memberID)
	listeners := r.eligibleWatchers(memberID)

	for watchedID := range r.interest[memberID] {
		delete(r.watchers[watchedID], memberID)
		if len(r.watchers[watchedID]) == 0 {
			delete(r.watchers, watchedID)
		}
	}
	delete(r.interest, memberID)
	r.Unlock()

	for _, listenerID := range listeners {
		r.Notify("offline", listenerID, memberID)
	}
}

// RegisterInterest records that subscriberID wants updates about watchedID.
// Interest is directed; no reciprocal entry is created.
func (r *LocalPresenceRegister) RegisterInterest(subscriberID, watchedID int64) {
	r.Lock()
	defer r.Unlock()

	if r.interest[subscriberID] == nil {
		r.interest[subscriberID] = map[int64]struct{}{}
	}
	r.interest[subscriberID][watchedID] = struct{}{}

	if r.watchers[watchedID] == nil {
		r.watchers[watchedID] = map[int64]struct{}{}
	}
	r.watchers[watchedID][subscriberID] = struct{}{}
}

// Notify dispatches a presence event to listenerID's live session, if any.
// Fire-and-forget: the target may die mid-flight and nothing is surfaced.
func (r *LocalPresenceRegister) Notify(event string, listenerID, contactID int64) {
	session, ok := r.directory.Lookup(listenerID)
	if !ok {
		return
	}
	presenceNotifyCount.Inc()
	go session.NotifyPresence(event, contactID)
}

// eligibleWatchers returns the online subscribers watching memberID.
// Callers must hold the lock.
func (r *LocalPresenceRegister) eligibleWatchers(memberID int64) []int64 {
	listeners := make([]int64, 0, len(r.watchers[memberID]))
	for subscriberID := range r.watchers[memberID] {
		if _, ok := r.online[subscriberID]; ok {
			listeners = append(listeners, subscriberID)
		}
	}
	return listeners
}
