package mock

import (
	"sync"

	"golang.org/x/net/context"

	"github.com/scshepard/netwrok-server/proto"
)

type account struct {
	secret string
	ident  proto.Identity
}

// Authenticator verifies credentials against a fixed in-memory account set.
type Authenticator struct {
	sync.Mutex
	accounts map[string]account
}

var _ proto.Authenticator = (*Authenticator)(nil)

func NewAuthenticator() *Authenticator {
	return &Authenticator{accounts: map[string]account{}}
}

func (a *Authenticator) AddAccount(handle, secret string, ident proto.Identity) {
	a.Lock()
	defer a.Unlock()
	ident.Handle = handle
	a.accounts[handle] = account{secret: secret, ident: ident}
}

func (a *Authenticator) Authenticate(ctx context.Context, handle, secret string) (*proto.Identity, error) {
	a.Lock()
	defer a.Unlock()

	acc, ok := a.accounts[handle]
	if !ok || acc.secret != secret {
		return nil, proto.ErrAccessDenied
	}
	ident := acc.ident
	return &ident, nil
}
