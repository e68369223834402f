package backend

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/context"

	"github.com/scshepard/netwrok-server/proto"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// Server owns the process-wide session core: the directory, the presence
// register, and the websocket endpoint that feeds sessions.
type Server struct {
	sync.Mutex
	r         *mux.Router
	directory *Directory
	register  *LocalPresenceRegister
	contacts  proto.ContactService
	auth      proto.Authenticator
	rooms     map[string]*memRoom
}

func NewServer(auth proto.Authenticator, contacts proto.ContactService) *Server {
	directory := NewDirectory()
	s := &Server{
		directory: directory,
		register:  NewLocalPresenceRegister(directory),
		contacts:  contacts,
		auth:      auth,
		rooms:     map[string]*memRoom{},
	}
	s.route()
	return s
}

func (s *Server) route() {
	s.r = mux.NewRouter().StrictSlash(true)
	s.r.Path("/").Methods("OPTIONS").HandlerFunc(s.handleProbe)
	s.r.Path("/metrics").Handler(promhttp.Handler())
	s.r.HandleFunc("/ws", s.handleSocket)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.r.ServeHTTP(w, r)
}

// Close disconnects every live session. Used only at process shutdown.
func (s *Server) Close() {
	s.directory.CloseAll()
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	ctx := context.Background()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Logger(ctx).Printf("upgrade error: %s", err)
		return
	}

	session, err := newMemSession(ctx, conn, s.directory, s.register, s.contacts)
	if err != nil {
		Logger(ctx).Printf("session error: %s", err)
		conn.Close()
		return
	}
	defer session.Close()

	if err := session.serve(s.handleCommand); err != nil {
		Logger(session.ctx).Printf("session ended: %s", err)
	}
}

// room returns the named room, creating it on first use.
func (s *Server) room(name string) *memRoom {
	s.Lock()
	defer s.Unlock()

	room, ok := s.rooms[name]
	if !ok {
		room = newMemRoom(name)
		s.rooms[name] = room
	}
	return room
}

func (s *Server) handleCommand(ctx context.Context, session *memSession, cmd *proto.Packet) ([]interface{}, error) {
	switch cmd.Name {
	case "ping":
		return []interface{}{"pong"}, nil

	case "auth.login":
		handle, err := argString(cmd.Args, 0)
		if err != nil {
			return nil, err
		}
		secret, err := argString(cmd.Args, 1)
		if err != nil {
			return nil, err
		}
		ident, err := s.auth.Authenticate(ctx, handle, secret)
		if err != nil {
			return nil, proto.ErrAccessDenied
		}
		session.SetIdentity(ident)
		if err := session.OnAuthenticated(ctx); err != nil {
			return nil, err
		}
		return []interface{}{ident.MemberID}, nil

	case "room.join":
		if err := session.RequireAuth(); err != nil {
			return nil, err
		}
		name, err := argString(cmd.Args, 0)
		if err != nil {
			return nil, err
		}
		if err := session.Join(ctx, s.room(name)); err != nil {
			return nil, err
		}
		return []interface{}{name}, nil

	case "room.leave":
		if err := session.RequireAuth(); err != nil {
			return nil, err
		}
		name, err := argString(cmd.Args, 0)
		if err != nil {
			return nil, err
		}
		if err := session.Leave(ctx, s.room(name)); err != nil {
			return nil, err
		}
		return []interface{}{name}, nil

	case "room.say":
		if err := session.RequireAuth(); err != nil {
			return nil, err
		}
		name, err := argString(cmd.Args, 0)
		if err != nil {
			return nil, err
		}
		text, err := argString(cmd.Args, 1)
		if err != nil {
			return nil, err
		}
		room := s.room(name)
		if !room.contains(session) {
			return nil, proto.ErrAccessDenied
		}
		room.Broadcast("room.message", session, name, session.MemberID(), text)
		return []interface{}{name}, nil

	case "whisper":
		targetID, err := argInt(cmd.Args, 0)
		if err != nil {
			return nil, err
		}
		msg, err := argString(cmd.Args, 1)
		if err != nil {
			return nil, err
		}
		if err := session.Whisper(targetID, msg, cmd.Args[2:]...); err != nil {
			return nil, err
		}
		return []interface{}{targetID}, nil

	default:
		return nil, fmt.Errorf("command %q not implemented", cmd.Name)
	}
}

func argString(args []interface{}, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("%w: argument %d missing", proto.ErrProtocol, i)
	}
	v, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %d must be a string", proto.ErrProtocol, i)
	}
	return v, nil
}

func argInt(args []interface{}, i int) (int64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("%w: argument %d missing", proto.ErrProtocol, i)
	}
	switch v := args[i].(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%w: argument %d must be a number", proto.ErrProtocol, i)
	}
}

func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == r.Host {
		return true
	}
	if u.Host == "www."+r.Host {
		return true
	}
	return false
}
