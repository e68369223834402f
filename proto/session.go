package proto

// A Session is the live, in-memory state for one client connection.
type Session interface {
	// ID returns the connection-scoped unique identifier for the Session.
	// It is assigned when the connection opens and is independent of the
	// member identity.
	ID() string

	// MemberID returns the stable member identity, or -1 before the
	// session is authenticated.
	MemberID() int64

	// Send pushes an event to the Session's client. Sends on a dead
	// session are silently dropped.
	Send(name string, args ...interface{}) error

	// NotifyPresence delivers a presence change for contactID to the
	// Session's client.
	NotifyPresence(event string, contactID int64) error

	// Close terminates the Session and disconnects the client. Idempotent.
	Close()
}
