package proto

import "golang.org/x/net/context"

// A Room is an externally-managed group membership container addressable by
// sessions. Add and Remove are idempotent from the session's point of view.
type Room interface {
	Name() string
	Add(ctx context.Context, session Session) error
	Remove(ctx context.Context, session Session) error
}
