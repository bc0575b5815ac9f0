// ABOUTME: Localhost websocket control endpoint
// ABOUTME: Accepts restart, shutdown, and status commands from a second instance
package control

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"

	"github.com/Soundless-Audio/soundless-go/internal/keeper"
	"github.com/Soundless-Audio/soundless-go/internal/version"
	"github.com/gorilla/websocket"
)

// Engine is the slice of the keeper the control surface needs.
type Engine interface {
	FireRestart()
	FireShutdown()
	Status() []keeper.EndpointStatus
}

// Server serves the control endpoint on a localhost listener.
type Server struct {
	engine  Engine
	backend string

	ln       net.Listener
	httpSrv  *http.Server
	upgrader websocket.Upgrader

	closeOnce sync.Once
}

// NewServer creates a control server for the given engine. backend is
// reported in status replies.
func NewServer(engine Engine, backend string) *Server {
	return &Server{
		engine:  engine,
		backend: backend,
	}
}

// Start begins listening on addr. Returns once the listener is bound;
// serving continues in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("control listen on %s: %w", addr, err)
	}
	s.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/control", s.handleControl)

	s.httpSrv = &http.Server{Handler: mux}

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("Control server error: %v", err)
		}
	}()

	log.Printf("Control endpoint listening on %s", ln.Addr())
	return nil
}

// Addr reports the bound address, for callers that listened on :0.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Close stops the listener.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		if s.httpSrv != nil {
			s.httpSrv.Close()
		}
	})
}

// handleControl upgrades the connection and serves commands until the
// client hangs up.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Control upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case TypeRestart:
			s.engine.FireRestart()
			s.reply(conn, Message{Type: TypeAck})

		case TypeShutdown:
			s.reply(conn, Message{Type: TypeAck})
			s.engine.FireShutdown()

		case TypeStatus:
			s.reply(conn, Message{
				Type: TypeStatusReply,
				Payload: StatusPayload{
					Product:   version.Product,
					Version:   version.Version,
					Backend:   s.backend,
					Endpoints: s.engine.Status(),
				},
			})

		default:
			s.reply(conn, Message{
				Type:    TypeError,
				Payload: ErrorPayload{Error: fmt.Sprintf("unknown command %q", msg.Type)},
			})
		}
	}
}

func (s *Server) reply(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Control reply failed: %v", err)
	}
}
