package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"autocraft.ai/internal/protocol"
	"autocraft.ai/internal/sim/catalogs"
	"autocraft.ai/internal/sim/world"
)

// Host is the part of the world a session talks to.
type Host interface {
	ID() string
	CurrentTick() uint64
	Catalogs() *catalogs.Catalogs
	Inbox() chan<- world.ActionEnvelope
	Subscribe() chan<- world.SubscribeRequest
	Unsubscribe() chan<- string
}

type Server struct {
	world Host
	log   *log.Logger

	// TuningDigest is advertised in WELCOME when set.
	TuningDigest string

	// HostTimeout bounds subscribe/unsubscribe sends to a world that is no
	// longer draining them. Zero means 5s.
	HostTimeout time.Duration

	upgrader websocket.Upgrader
}

func NewServer(w Host, logger *log.Logger) *Server {
	s := &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, out := s.handshake(conn)
		if sessionID == "" {
			return
		}
		s.logf("session %s connected from %s", sessionID, r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			act, code, reason := decodeAct(msg)
			if code != "" {
				reject(out, act.ActID, code, reason)
				continue
			}
			select {
			case s.world.Inbox() <- world.ActionEnvelope{SessionID: sessionID, Act: act}:
			case <-ctx.Done():
			}
		}

		// Cleanup.
		if !sendWithin(s.world.Unsubscribe(), sessionID, s.hostTimeout()) {
			s.logf("session %s: unsubscribe timed out", sessionID)
		}
		s.logf("session %s closed", sessionID)
	}
}

// decodeAct validates one client frame. A non-empty code means the frame is rejected.
func decodeAct(msg []byte) (protocol.ActMsg, string, string) {
	var act protocol.ActMsg
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return act, protocol.ErrProtoBadRequest, "invalid json"
	}
	if base.Type != protocol.TypeAct {
		return act, protocol.ErrProtoBadRequest, "expected ACT"
	}
	if err := json.Unmarshal(msg, &act); err != nil {
		return act, protocol.ErrProtoBadRequest, "invalid ACT"
	}
	if act.ProtocolVersion != protocol.Version {
		return act, protocol.ErrProtoBadRequest, "bad protocol_version"
	}
	if act.ActID == "" {
		return act, protocol.ErrProtoBadRequest, "missing act_id"
	}
	return act, "", ""
}

func reject(out chan []byte, ref, code, message string) {
	b, _ := json.Marshal(protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          ref,
		Accepted:        false,
		Code:            code,
		Message:         message,
	})
	select {
	case out <- b:
	default:
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 32
	}
	if maxQ > 256 {
		maxQ = 256
	}
	out = make(chan []byte, maxQ)
	sessionID = uuid.NewString()

	cats := s.world.Catalogs()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		WorldID:         s.world.ID(),
		Tick:            s.world.CurrentTick(),
		Catalogs: protocol.CatalogDigests{
			ItemsDigest:   cats.Items.Digest,
			ItemCount:     len(cats.Items.Defs),
			RecipesDigest: cats.Recipes.Digest,
			RecipeCount:   len(cats.Recipes.Ordered),
			TuningDigest:  s.TuningDigest,
		},
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", nil
	}
	if !sendWithin(s.world.Subscribe(), world.SubscribeRequest{SessionID: sessionID, Out: out}, s.hostTimeout()) {
		s.logf("session %s: subscribe timed out", sessionID)
		return "", nil
	}
	return sessionID, out
}

func (s *Server) hostTimeout() time.Duration {
	if s.HostTimeout > 0 {
		return s.HostTimeout
	}
	return 5 * time.Second
}

func sendWithin[T any](ch chan<- T, v T, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case ch <- v:
		return true
	case <-t.C:
		return false
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
