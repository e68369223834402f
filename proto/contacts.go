package proto

import "golang.org/x/net/context"

// A Contact is one entry in a member's contact list. Only the id is used
// for presence seeding.
type Contact struct {
	ID     int64  `json:"id"`
	Handle string `json:"handle,omitempty"`
}

// A ContactService supplies the authenticated member's contact list.
type ContactService interface {
	Fetch(ctx context.Context, session Session) ([]Contact, error)
}
