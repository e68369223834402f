package proto

// A PresenceRegister tracks which members want presence updates about which
// other members, and dispatches those updates to live sessions.
//
// Add and Remove toggle a member's presence visibility: only members in the
// register are eligible to receive presence events. RegisterInterest records
// what a subscriber is entitled to be notified about; interest need not be
// symmetric. Notify is fire-and-forget: delivery failure is swallowed and no
// ordering is guaranteed with respect to the caller's subsequent operations.
type PresenceRegister interface {
	Add(memberID int64)
	Remove(memberID int64)
	RegisterInterest(subscriberID, watchedID int64)
	Notify(event string, listenerID, contactID int64)
}
