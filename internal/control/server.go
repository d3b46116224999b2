// Package control serves live run progress to UI clients: a JSON status
// endpoint, a websocket event stream, and a small embedded page. It is an
// optional observer of the run; the dispatcher never waits on it.
package control

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NodePath81/sirius/internal/stats"
	"github.com/NodePath81/sirius/internal/util"
	"github.com/NodePath81/sirius/web"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// Event is one message on the websocket stream. Type is "progress" while
// the run is active and "summary" once it completes.
type Event struct {
	Type              string         `json:"type"`
	RunID             string         `json:"run_id"`
	Completed         int            `json:"completed"`
	Total             int            `json:"total"`
	ElapsedS          float64        `json:"elapsed_s"`
	RequestsPerSecond float64        `json:"requests_per_second"`
	Summary           *stats.Summary `json:"summary,omitempty"`
}

type Server struct {
	addr   string
	logger util.Logger
	hub    *Hub
	done   chan struct{}

	httpServer *http.Server
	listener   net.Listener

	mu    sync.Mutex
	state Event
}

func NewServer(addr string, logger util.Logger) *Server {
	s := &Server{
		addr:   addr,
		logger: logger,
		done:   make(chan struct{}),
	}
	s.hub = NewHub(s.done)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/", web.Handler())
	s.httpServer = &http.Server{Handler: mux}
	return s
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.logger.Info("control server listening", "addr", ln.Addr().String())
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("control server failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, useful when addr was ":0".
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

func (s *Server) Stop() {
	close(s.done)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.httpServer.Shutdown(ctx)
}

// PublishProgress records and broadcasts the current completed count.
func (s *Server) PublishProgress(runID string, completed, total int, elapsed time.Duration) {
	ev := Event{
		Type:      "progress",
		RunID:     runID,
		Completed: completed,
		Total:     total,
		ElapsedS:  elapsed.Seconds(),
	}
	if elapsed > 0 {
		ev.RequestsPerSecond = float64(completed) / elapsed.Seconds()
	}
	s.mu.Lock()
	s.state = ev
	s.mu.Unlock()
	s.hub.Broadcast(ev)
}

// PublishSummary broadcasts the final summary and keeps it as the status
// snapshot for late-connecting clients.
func (s *Server) PublishSummary(runID string, sum stats.Summary, elapsed time.Duration) {
	ev := Event{
		Type:              "summary",
		RunID:             runID,
		Completed:         sum.TotalRequests,
		Total:             sum.TotalRequests,
		ElapsedS:          elapsed.Seconds(),
		RequestsPerSecond: sum.RequestsPerSecond,
		Summary:           &sum,
	}
	s.mu.Lock()
	s.state = ev
	s.mu.Unlock()
	s.hub.Broadcast(ev)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(state)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	client := &wsClient{send: make(chan []byte, 32)}
	s.hub.Register(client)

	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(func() {
			s.hub.Unregister(client)
			_ = conn.Close()
		})
	}

	// Send the current snapshot so a client joining mid-run sees state
	// immediately.
	s.mu.Lock()
	snapshot, _ := json.Marshal(s.state)
	s.mu.Unlock()
	select {
	case client.send <- snapshot:
	default:
	}

	go func() {
		defer cleanup()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		defer cleanup()
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			case data, ok := <-client.send:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			}
		}
	}()
}
