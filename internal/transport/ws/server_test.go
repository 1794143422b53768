package ws

import (
	"encoding/json"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"autocraft.ai/internal/protocol"
	"autocraft.ai/internal/sim/catalogs"
	"autocraft.ai/internal/sim/world"
)

type fakeHost struct {
	cats  *catalogs.Catalogs
	inbox chan world.ActionEnvelope
	sub   chan world.SubscribeRequest
	unsub chan string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		cats: &catalogs.Catalogs{
			Items:   catalogs.ItemCatalog{Digest: "items-digest", Defs: map[string]catalogs.ItemDef{"PLANK": {ID: "PLANK"}}},
			Recipes: catalogs.RecipeCatalog{Digest: "recipes-digest"},
		},
		inbox: make(chan world.ActionEnvelope, 8),
		sub:   make(chan world.SubscribeRequest, 8),
		unsub: make(chan string, 8),
	}
}

func (h *fakeHost) ID() string                               { return "TEST" }
func (h *fakeHost) CurrentTick() uint64                      { return 42 }
func (h *fakeHost) Catalogs() *catalogs.Catalogs             { return h.cats }
func (h *fakeHost) Inbox() chan<- world.ActionEnvelope       { return h.inbox }
func (h *fakeHost) Subscribe() chan<- world.SubscribeRequest { return h.sub }
func (h *fakeHost) Unsubscribe() chan<- string               { return h.unsub }

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
}

func TestServer_HandshakeAndActs(t *testing.T) {
	host := newFakeHost()
	s := NewServer(host, nil)
	s.TuningDigest = "tuning-digest"
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	if err := conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "bench"}); err != nil {
		t.Fatalf("write HELLO: %v", err)
	}
	var welcome protocol.WelcomeMsg
	readJSON(t, conn, &welcome)
	if welcome.Type != protocol.TypeWelcome || welcome.SessionID == "" || welcome.WorldID != "TEST" || welcome.Tick != 42 {
		t.Fatalf("welcome: %+v", welcome)
	}
	if welcome.Catalogs.ItemsDigest != "items-digest" || welcome.Catalogs.ItemCount != 1 || welcome.Catalogs.TuningDigest != "tuning-digest" {
		t.Fatalf("welcome catalogs: %+v", welcome.Catalogs)
	}

	var sub world.SubscribeRequest
	select {
	case sub = <-host.sub:
	case <-time.After(2 * time.Second):
		t.Fatalf("no subscribe request")
	}
	if sub.SessionID != welcome.SessionID {
		t.Fatalf("subscribe session=%s want %s", sub.SessionID, welcome.SessionID)
	}

	// Wrong version is rejected by the transport, not the world.
	_ = conn.WriteJSON(protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: "0.9", ActID: "bad", Kind: protocol.ActInspect})
	var ack protocol.AckMsg
	readJSON(t, conn, &ack)
	if ack.Accepted || ack.AckFor != "bad" || ack.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("ack: %+v", ack)
	}

	_ = conn.WriteJSON(protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ActID: "a1", Kind: protocol.ActInspect, Pos: [3]int{1, 2, 3}})
	select {
	case env := <-host.inbox:
		if env.SessionID != welcome.SessionID || env.Act.ActID != "a1" || env.Act.Pos != [3]int{1, 2, 3} {
			t.Fatalf("envelope: %+v", env)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("ACT not forwarded")
	}

	// World pushes reach the client.
	sub.Out <- []byte(`{"type":"CRAFT","protocol_version":"1.0","tick":1,"attempt_id":"x","station_id":"s","committed":false}`)
	var craft protocol.CraftMsg
	readJSON(t, conn, &craft)
	if craft.Type != protocol.TypeCraft || craft.AttemptID != "x" {
		t.Fatalf("craft: %+v", craft)
	}

	_ = conn.Close()
	select {
	case id := <-host.unsub:
		if id != welcome.SessionID {
			t.Fatalf("unsubscribe id=%s", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no unsubscribe after close")
	}
}

func TestServer_RejectsNonHello(t *testing.T) {
	host := newFakeHost()
	srv := httptest.NewServer(NewServer(host, nil).Handler())
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()
	_ = conn.WriteJSON(protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ActID: "a1"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
	if len(host.sub) != 0 {
		t.Fatalf("session subscribed without HELLO")
	}
}

func TestDecodeAct(t *testing.T) {
	cases := []struct {
		name string
		msg  string
		code string
	}{
		{"not json", `{`, protocol.ErrProtoBadRequest},
		{"wrong type", `{"type":"HELLO","protocol_version":"1.0"}`, protocol.ErrProtoBadRequest},
		{"missing id", `{"type":"ACT","protocol_version":"1.0","kind":"INSPECT","pos":[0,0,0]}`, protocol.ErrProtoBadRequest},
		{"ok", `{"type":"ACT","protocol_version":"1.0","act_id":"a","kind":"INSPECT","pos":[0,0,0]}`, ""},
	}
	for _, tc := range cases {
		if _, code, _ := decodeAct([]byte(tc.msg)); code != tc.code {
			t.Fatalf("%s: code=%q want %q", tc.name, code, tc.code)
		}
	}
}

type lineSink chan string

func (l lineSink) Write(p []byte) (int, error) {
	l <- string(p)
	return len(p), nil
}

func TestServer_CloseDoesNotHangOnStoppedWorld(t *testing.T) {
	host := newFakeHost()
	host.unsub = make(chan string) // nobody drains it
	lines := make(lineSink, 16)
	s := NewServer(host, log.New(lines, "", 0))
	s.HostTimeout = 50 * time.Millisecond
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	if err := conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version}); err != nil {
		t.Fatalf("write HELLO: %v", err)
	}
	var welcome protocol.WelcomeMsg
	readJSON(t, conn, &welcome)
	_ = conn.Close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case l := <-lines:
			if strings.Contains(l, "session "+welcome.SessionID+" closed") {
				return
			}
		case <-deadline:
			t.Fatalf("handler did not finish after close")
		}
	}
}
