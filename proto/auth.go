package proto

import "golang.org/x/net/context"

// An Identity describes an authenticated member as established by the
// upstream auth flow. Roles may be global ("Admin") or entity-scoped
// ("Clan Leader", "Alliance Marshal"); a scoped role only applies when the
// session's clan or alliance id also matches.
type Identity struct {
	MemberID   int64
	Handle     string
	Roles      []string
	ClanID     int64
	AllianceID int64
}

// An Authenticator verifies client credentials and resolves them to an
// Identity.
type Authenticator interface {
	Authenticate(ctx context.Context, handle, secret string) (*Identity, error)
}
