package proto

import "fmt"

var (
	// ErrAccessDenied is returned when an authorization precondition is not
	// met. It is surfaced to the caller and never closes the connection.
	ErrAccessDenied = fmt.Errorf("access denied")

	// ErrNotConnected is returned when a directly-addressed member has no
	// live session.
	ErrNotConnected = fmt.Errorf("not connected")

	// ErrProtocol is returned when an inbound packet is malformed.
	ErrProtocol = fmt.Errorf("malformed packet")
)
