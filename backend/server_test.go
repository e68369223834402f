package backend

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/net/context"

	"github.com/scshepard/netwrok-server/backend/mock"
	"github.com/scshepard/netwrok-server/proto"
)

func TestCheckOrigin(t *testing.T) {
	tc := func(host, origin string) *http.Request {
		return &http.Request{
			Header: http.Header{"Origin": []string{origin}},
			Host:   host,
		}
	}

	Convey("CheckOrigin", t, func() {
		Convey("Accept if no origin is given", func() {
			So(checkOrigin(&http.Request{Host: "netwrok"}), ShouldBeTrue)
		})

		Convey("Accept if origin host matches request host", func() {
			So(checkOrigin(tc("netwrok", "http://netwrok/ws")), ShouldBeTrue)
		})

		Convey("Accept if www. plus request host matches origin host", func() {
			So(checkOrigin(tc("netwrok", "http://www.netwrok/ws")), ShouldBeTrue)
		})

		Convey("Reject other origin hosts", func() {
			So(checkOrigin(tc("netwrok", "http://ftp.netwrok/ws")), ShouldBeFalse)
			So(checkOrigin(tc("netwrok", "http://netwrok2/ws")), ShouldBeFalse)
		})

		Convey("Reject if origin is not a valid URL", func() {
			So(checkOrigin(tc("netwrok", "http://netwrok/%")), ShouldBeFalse)
		})
	})
}

func newTestServer() (*Server, *mock.Authenticator, *mock.ContactService) {
	auth := mock.NewAuthenticator()
	contacts := mock.NewContactService()
	server := NewServer(auth, contacts)
	return server, auth, contacts
}

func (s *Server) testSession() (*memSession, *recorderConn) {
	rc := &recorderConn{}
	session, err := newMemSession(context.Background(), rc, s.directory, s.register, s.contacts)
	if err != nil {
		panic(err)
	}
	return session, rc
}

func TestHandleCommand(t *testing.T) {
	req := func(name string, args ...interface{}) *proto.Packet {
		if args == nil {
			args = []interface{}{}
		}
		return &proto.Packet{Name: name, Type: proto.RequestType, ID: "00000001", Args: args}
	}

	Convey("handleCommand", t, func() {
		ctx := context.Background()
		server, auth, _ := newTestServer()
		auth.AddAccount("kaylee", "shiny", proto.Identity{
			MemberID: 42, Roles: []string{"Clan Leader"}, ClanID: 7, AllianceID: -1})

		session, _ := server.testSession()

		login := func() {
			args, err := server.handleCommand(ctx, session, req("auth.login", "kaylee", "shiny"))
			So(err, ShouldBeNil)
			So(args, ShouldResemble, []interface{}{int64(42)})
		}

		Convey("ping answers pong", func() {
			args, err := server.handleCommand(ctx, session, req("ping"))
			So(err, ShouldBeNil)
			So(args, ShouldResemble, []interface{}{"pong"})
		})

		Convey("auth.login authenticates and registers the session", func() {
			login()
			So(session.RequireClanRole(7, "Leader"), ShouldBeNil)

			current, ok := server.directory.Lookup(42)
			So(ok, ShouldBeTrue)
			So(current, ShouldEqual, session)
		})

		Convey("auth.login with bad credentials is denied", func() {
			_, err := server.handleCommand(ctx, session, req("auth.login", "kaylee", "wrong"))
			So(err, ShouldEqual, proto.ErrAccessDenied)
			So(session.RequireAuth(), ShouldEqual, proto.ErrAccessDenied)
		})

		Convey("room commands demand authentication", func() {
			_, err := server.handleCommand(ctx, session, req("room.join", "lobby"))
			So(err, ShouldEqual, proto.ErrAccessDenied)
		})

		Convey("room.join then room.leave round-trips membership", func() {
			login()

			_, err := server.handleCommand(ctx, session, req("room.join", "lobby"))
			So(err, ShouldBeNil)
			So(server.room("lobby").contains(session), ShouldBeTrue)

			_, err = server.handleCommand(ctx, session, req("room.leave", "lobby"))
			So(err, ShouldBeNil)
			So(server.room("lobby").contains(session), ShouldBeFalse)
		})

		Convey("room.say demands membership", func() {
			login()
			_, err := server.handleCommand(ctx, session, req("room.say", "lobby", "hello"))
			So(err, ShouldEqual, proto.ErrAccessDenied)
		})

		Convey("whisper reaches the target with the sender attributed", func() {
			login()
			target, targetConn := server.testSession()
			target.SetIdentity(&proto.Identity{MemberID: 9, ClanID: -1, AllianceID: -1})
			So(target.OnAuthenticated(ctx), ShouldBeNil)

			_, err := server.handleCommand(ctx, session, req("whisper", 9, "psst"))
			So(err, ShouldBeNil)

			packets := targetConn.packets()
			So(packets, ShouldHaveLength, 1)
			So(packets[0].Name, ShouldEqual, "whispers")
			So(packets[0].Args, ShouldResemble, []interface{}{"psst", float64(42)})
		})

		Convey("malformed arguments fail with a protocol error", func() {
			_, err := server.handleCommand(ctx, session, req("auth.login", 12))
			So(errors.Is(err, proto.ErrProtocol), ShouldBeTrue)
		})

		Convey("unknown commands are rejected", func() {
			_, err := server.handleCommand(ctx, session, req("fly.casual"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestServeSocket(t *testing.T) {
	Convey("A client can authenticate over a live socket", t, func() {
		server, auth, _ := newTestServer()
		auth.AddAccount("mal", "browncoat", proto.Identity{
			MemberID: 1, ClanID: -1, AllianceID: -1})

		ts := httptest.NewServer(server)
		defer ts.Close()
		defer server.Close()

		url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		login := &proto.Packet{
			Name: "auth.login",
			Type: proto.RequestType,
			ID:   "00000001",
			Args: []interface{}{"mal", "browncoat"},
		}
		data, err := login.Encode()
		So(err, ShouldBeNil)
		So(conn.WriteMessage(websocket.TextMessage, data), ShouldBeNil)

		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, frame, err := conn.ReadMessage()
		So(err, ShouldBeNil)

		resp, err := proto.ParsePacket(frame)
		So(err, ShouldBeNil)
		So(resp.Name, ShouldEqual, "auth.login")
		So(resp.Type, ShouldEqual, proto.ResponseType)
		So(resp.ID, ShouldEqual, "00000001")
		So(resp.Args, ShouldResemble, []interface{}{float64(1)})
	})
}
