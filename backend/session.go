package backend

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/context"

	"github.com/scshepard/netwrok-server/proto"
	"github.com/scshepard/netwrok-server/proto/snowflake"
)

const MaxKeepAliveMisses = 3

var (
	KeepAlive       = 20 * time.Second
	ErrUnresponsive = fmt.Errorf("connection unresponsive")
)

// conn is the slice of *websocket.Conn the session uses. Tests substitute a
// write recorder.
type conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetPongHandler(h func(string) error)
	Close() error
}

// A commandHandler services one inbound request or event, returning the
// response arguments.
type commandHandler func(ctx context.Context, session *memSession, cmd *proto.Packet) ([]interface{}, error)

// memSession is the live state for one connection: authentication, roles,
// room memberships, and the send side of the wire.
type memSession struct {
	m sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	conn   conn
	connID string

	directory *Directory
	register  proto.PresenceRegister
	contacts  proto.ContactService

	memberID      int64
	handle        string
	authenticated bool
	roles         map[string]struct{}
	clanID        int64
	allianceID    int64

	rooms   map[proto.Room]struct{}
	dead    bool
	pending map[string]chan *proto.Packet

	incoming         chan *proto.Packet
	writeMu          sync.Mutex
	outstandingPings uint32
}

var _ proto.Session = (*memSession)(nil)

func newMemSession(
	ctx context.Context, c conn, directory *Directory, register proto.PresenceRegister,
	contacts proto.ContactService) (*memSession, error) {

	sf, err := snowflake.New()
	if err != nil {
		return nil, err
	}
	connID := sf.String()

	cancellableCtx, cancel := context.WithCancel(SessionLoggingContext(ctx, connID))

	session := &memSession{
		ctx:    cancellableCtx,
		cancel: cancel,
		conn:   c,
		connID: connID,

		directory: directory,
		register:  register,
		contacts:  contacts,

		memberID:   -1,
		roles:      map[string]struct{}{},
		clanID:     -1,
		allianceID: -1,

		rooms:    map[proto.Room]struct{}{},
		pending:  map[string]chan *proto.Packet{},
		incoming: make(chan *proto.Packet),
	}

	c.SetPongHandler(session.handlePong)
	sessionCount.Inc()

	return session, nil
}

func (s *memSession) ID() string { return s.connID }

func (s *memSession) MemberID() int64 {
	s.m.Lock()
	defer s.m.Unlock()
	return s.memberID
}

func (s *memSession) isDead() bool {
	s.m.Lock()
	defer s.m.Unlock()
	return s.dead
}

// SetIdentity installs the member identity established by the upstream auth
// flow. Must be called before OnAuthenticated.
func (s *memSession) SetIdentity(ident *proto.Identity) {
	s.m.Lock()
	defer s.m.Unlock()

	s.memberID = ident.MemberID
	s.handle = ident.Handle
	s.roles = make(map[string]struct{}, len(ident.Roles))
	for _, role := range ident.Roles {
		s.roles[role] = struct{}{}
	}
	s.clanID = ident.ClanID
	s.allianceID = ident.AllianceID
	s.authenticated = true
}

// RequireAuth fails with ErrAccessDenied unless the session has
// authenticated. Pure guard, no side effect.
func (s *memSession) RequireAuth() error {
	s.m.Lock()
	defer s.m.Unlock()

	if !s.authenticated {
		return proto.ErrAccessDenied
	}
	return nil
}

// RequireRole fails with ErrAccessDenied unless the session holds role.
func (s *memSession) RequireRole(role string) error {
	if err := s.RequireAuth(); err != nil {
		return err
	}

	s.m.Lock()
	defer s.m.Unlock()

	if _, ok := s.roles[role]; !ok {
		return proto.ErrAccessDenied
	}
	return nil
}

// RequireClanRole fails with ErrAccessDenied unless the session holds the
// clan-scoped role and clanID matches the session's clan. A matching role
// string under a mismatched clan id still fails.
func (s *memSession) RequireClanRole(clanID int64, role string) error {
	if err := s.RequireAuth(); err != nil {
		return err
	}

	s.m.Lock()
	defer s.m.Unlock()

	_, ok := s.roles["Clan "+role]
	if !ok || clanID != s.clanID {
		return proto.ErrAccessDenied
	}
	return nil
}

// RequireAllianceRole is RequireClanRole scoped by alliance.
func (s *memSession) RequireAllianceRole(allianceID int64, role string) error {
	if err := s.RequireAuth(); err != nil {
		return err
	}

	s.m.Lock()
	defer s.m.Unlock()

	_, ok := s.roles["Alliance "+role]
	if !ok || allianceID != s.allianceID {
		return proto.ErrAccessDenied
	}
	return nil
}

// OnAuthenticated registers the session under its member identity and seeds
// presence interest from the contact list. SetIdentity must have run first.
func (s *memSession) OnAuthenticated(ctx context.Context) error {
	memberID := s.MemberID()

	if displaced := s.directory.Register(memberID, s); displaced != nil {
		Logger(ctx).Printf("member %d logged in again, closing displaced session %s",
			memberID, displaced.ID())
		displaced.Close()
	}
	s.register.Add(memberID)

	contactList, err := s.contacts.Fetch(ctx, s)
	if err != nil {
		// The session stays registered; presence interest is incomplete.
		Logger(ctx).Printf("error: contact fetch for member %d: %s", memberID, err)
		return nil
	}
	for _, contact := range contactList {
		s.register.RegisterInterest(memberID, contact.ID)
	}
	return nil
}

// Join adds the session to room and records the membership. If the room
// rejects the add, no membership is recorded.
func (s *memSession) Join(ctx context.Context, room proto.Room) error {
	if err := room.Add(ctx, s); err != nil {
		return err
	}

	s.m.Lock()
	if s.dead {
		// Teardown won the race; its room sweep has already run, so
		// the add must be undone here or the membership leaks.
		s.m.Unlock()
		return room.Remove(ctx, s)
	}
	s.rooms[room] = struct{}{}
	s.m.Unlock()
	return nil
}

// Leave is the inverse of Join. Leaving a room not currently joined is a
// no-op.
func (s *memSession) Leave(ctx context.Context, room proto.Room) error {
	if err := room.Remove(ctx, s); err != nil {
		return err
	}

	s.m.Lock()
	delete(s.rooms, room)
	s.m.Unlock()
	return nil
}

// Send pushes an event to the client. On a dead session it is a silent
// no-op. A transport failure closes the session instead of surfacing.
func (s *memSession) Send(name string, args ...interface{}) error {
	return s.deliver(proto.NewEvent(name, args...))
}

// NotifyPresence delivers a presence change to the client.
func (s *memSession) NotifyPresence(event string, contactID int64) error {
	return s.Send("presence", event, contactID)
}

// Whisper sends a directly-addressed event to another member's session. The
// sender's member id is always injected as the second argument so the
// recipient can attribute it.
func (s *memSession) Whisper(targetID int64, msg string, args ...interface{}) error {
	if err := s.RequireAuth(); err != nil {
		return err
	}

	target, ok := s.directory.Lookup(targetID)
	if !ok {
		return fmt.Errorf("%w: member %d", proto.ErrNotConnected, targetID)
	}

	payload := append([]interface{}{msg, s.MemberID()}, args...)
	whisperCount.Inc()
	return target.Send("whispers", payload...)
}

// Request issues a session-originated request and waits for the response
// with the matching correlation id.
func (s *memSession) Request(ctx context.Context, name string, args ...interface{}) (*proto.Packet, error) {
	if args == nil {
		args = []interface{}{}
	}
	packet := &proto.Packet{
		Name: name,
		Type: proto.RequestType,
		ID:   proto.NextRequestID(),
		Args: args,
	}

	ch := make(chan *proto.Packet, 1)
	s.m.Lock()
	if s.dead {
		s.m.Unlock()
		return nil, proto.ErrNotConnected
	}
	s.pending[packet.ID] = ch
	s.m.Unlock()

	defer func() {
		s.m.Lock()
		delete(s.pending, packet.ID)
		s.m.Unlock()
	}()

	if err := s.deliver(packet); err != nil {
		return nil, err
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, proto.ErrNotConnected
		}
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve routes an inbound response to its pending continuation.
func (s *memSession) resolve(resp *proto.Packet) bool {
	s.m.Lock()
	ch, ok := s.pending[resp.ID]
	if ok {
		delete(s.pending, resp.ID)
	}
	s.m.Unlock()

	if ok {
		ch <- resp
	}
	return ok
}

func (s *memSession) deliver(packet *proto.Packet) error {
	data, err := packet.Encode()
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	if s.isDead() {
		s.writeMu.Unlock()
		return nil
	}
	err = s.conn.WriteMessage(websocket.TextMessage, data)
	s.writeMu.Unlock()

	if err != nil {
		s.Close()
		return nil
	}

	packetsSent.Inc()
	return nil
}

// Close tears the session down: presence, directory (only if this session
// is still the canonical one for its member), and every joined room.
// Idempotent.
func (s *memSession) Close() {
	s.m.Lock()
	if s.dead {
		s.m.Unlock()
		return
	}
	s.dead = true
	memberID := s.memberID
	rooms := make([]proto.Room, 0, len(s.rooms))
	for room := range s.rooms {
		rooms = append(rooms, room)
	}
	s.rooms = map[proto.Room]struct{}{}
	pending := s.pending
	s.pending = map[string]chan *proto.Packet{}
	s.m.Unlock()

	Logger(s.ctx).Printf("closing session")

	s.register.Remove(memberID)
	s.directory.Unregister(memberID, s)
	for _, room := range rooms {
		room.Remove(s.ctx, s)
	}
	for _, ch := range pending {
		close(ch)
	}

	sessionCount.Dec()
	s.cancel()

	s.writeMu.Lock()
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	s.conn.Close()
}

func (s *memSession) handlePong(string) error {
	atomic.StoreUint32(&s.outstandingPings, 0)
	return nil
}

// serve runs the session's event loop until the connection dies: inbound
// requests and events go to handle, inbound responses resolve pending
// continuations, and idle connections are pinged.
func (s *memSession) serve(handle commandHandler) error {
	go s.readMessages()

	logger := Logger(s.ctx)
	logger.Printf("client connected")

	keepalive := time.NewTimer(KeepAlive)
	defer keepalive.Stop()

	for {
		select {

		case <-s.ctx.Done():
			// connection forced to close
			return s.ctx.Err()

		case <-keepalive.C:
			// keepalive expired
			if pings := atomic.AddUint32(&s.outstandingPings, 1); pings > MaxKeepAliveMisses {
				logger.Printf("connection timed out")
				return ErrUnresponsive
			}

			// Presence dispatch and broadcasts write from other
			// goroutines; the ping must hold the write lock too.
			s.writeMu.Lock()
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				return err
			}
			keepalive.Reset(KeepAlive)

		case cmd := <-s.incoming:
			keepalive.Stop()

			switch cmd.Type {
			case proto.ResponseType:
				if !s.resolve(cmd) {
					logger.Printf("dropping unmatched response %s id=%s", cmd.Name, cmd.ID)
				}

			case proto.RequestType:
				args, err := handle(s.ctx, s, cmd)
				if err != nil {
					logger.Printf("error: %s: %s", cmd.Name, err)
				}
				if err := s.deliver(proto.MakeResponse(cmd, args, err)); err != nil {
					logger.Printf("error: response encode: %s", err)
				}

			case proto.EventType:
				if _, err := handle(s.ctx, s, cmd); err != nil {
					logger.Printf("error: %s: %s", cmd.Name, err)
				}
			}

			keepalive.Reset(KeepAlive)
		}
	}
}

func (s *memSession) readMessages() {
	logger := Logger(s.ctx)
	defer s.Close()

	for s.ctx.Err() == nil {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Printf("client disconnected")
				return
			}
			logger.Printf("error: read message: %s", err)
			return
		}

		switch messageType {
		case websocket.TextMessage:
			cmd, err := proto.ParsePacket(data)
			if err != nil {
				logger.Printf("error: parse packet: %s", err)
				return
			}
			select {
			case s.incoming <- cmd:
			case <-s.ctx.Done():
				return
			}
		default:
			logger.Printf("error: unsupported message type: %v", messageType)
			return
		}
	}
}
