package mock

import (
	"sync"

	"golang.org/x/net/context"

	"github.com/scshepard/netwrok-server/proto"
)

// ContactService is an in-memory contact list keyed by member id.
type ContactService struct {
	sync.Mutex
	byMember map[int64][]proto.Contact

	// Err, when set, is returned by every Fetch.
	Err error
}

var _ proto.ContactService = (*ContactService)(nil)

func NewContactService() *ContactService {
	return &ContactService{byMember: map[int64][]proto.Contact{}}
}

func (c *ContactService) Set(memberID int64, contacts ...proto.Contact) {
	c.Lock()
	defer c.Unlock()
	c.byMember[memberID] = contacts
}

func (c *ContactService) Fetch(ctx context.Context, session proto.Session) ([]proto.Contact, error) {
	c.Lock()
	defer c.Unlock()

	if c.Err != nil {
		return nil, c.Err
	}
	return c.byMember[session.MemberID()], nil
}
