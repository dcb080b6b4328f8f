package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/GriffinCanCode/recap/internal/orchestrator"
	"github.com/GriffinCanCode/recap/internal/orchestrator/stop"
	"github.com/GriffinCanCode/recap/internal/orchestrator/transcript"
	"github.com/GriffinCanCode/recap/internal/orchestrator/worker"
	"github.com/GriffinCanCode/recap/internal/trace"
)

// Session is the live view of a recording the server needs.
type Session interface {
	ID() uuid.UUID
	State() orchestrator.State
	Store() *transcript.Store
	Signal() *stop.Signal
	Stats() worker.Stats
}

// Message types.
type Message struct {
	Type string `json:"type"`
}

type StopMessage struct {
	Type    string `json:"type"`
	Session string `json:"session"`
	TraceID string `json:"trace_id,omitempty"`
}

type TranscriptMessage struct {
	Type  string `json:"type"`
	Seq   int    `json:"seq"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type StateMessage struct {
	Type  string             `json:"type"`
	State orchestrator.State `json:"state"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Session   string             `json:"session"`
	State     orchestrator.State `json:"state"`
	Stopped   bool               `json:"stopped"`
	Fragments int                `json:"fragments"`
	Stats     worker.Stats       `json:"stats"`
	Preview   string             `json:"preview"`
}

type stopRequest struct {
	Session string `json:"session"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections for one session.
type Server struct {
	session    Session
	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
	httpSrv    *http.Server
	done       chan struct{}
	closeOnce  sync.Once
}

// New creates a server and starts forwarding transcript events.
func New(session Session) *Server {
	s := &Server{
		session:    session,
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
		done:       make(chan struct{}),
	}
	go s.broadcastTranscripts()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/recording/stop", s.handleRecordingStop)

	// trace -> CORS
	return corsMiddleware(trace.Middleware(s.session.ID().String())(mux))
}

// Start serves on addr until Shutdown. It returns once the listener fails or
// is closed.
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	slog.Info("http server listening", "addr", addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener and the event forwarder.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.done) })

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close(websocket.StatusGoingAway, "session finished")
	}
	s.mu.Unlock()

	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// BroadcastState tells every client about a lifecycle change.
func (s *Server) BroadcastState(st orchestrator.State) {
	s.broadcast(StateMessage{Type: "state", State: st})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	preview := s.session.Store().Join()
	if len(preview) > TextPreviewLimit {
		preview = preview[len(preview)-TextPreviewLimit:]
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Session:   s.session.ID().String(),
		State:     s.session.State(),
		Stopped:   s.session.Signal().IsStopped(),
		Fragments: s.session.Store().Len(),
		Stats:     s.session.Stats(),
		Preview:   preview,
	})
}

func (s *Server) handleRecordingStop(w http.ResponseWriter, r *http.Request) {
	log := trace.Logger(r.Context())

	var req stopRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorMessage{Type: "error", Message: "invalid JSON body"})
			return
		}
	}

	if !s.stop(req.Session) {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "already_stopped"})
		return
	}
	log.Info("stop requested over http", "name", req.Session)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

// stop fires the session's stop signal with a name. Only the first stop wins.
func (s *Server) stop(name string) bool {
	return s.session.Signal().StopWithName(name)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = &rateLimiter{}
	rl := s.rateLimits[conn]
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	_ = wsjson.Write(baseCtx, conn, StateMessage{Type: "state", State: s.session.State()})

	for {
		var msg json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, ErrorMessage{Type: "error", Message: "rate limit exceeded"})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case "stop":
			var req StopMessage
			if err := json.Unmarshal(msg, &req); err != nil {
				continue
			}
			ctx := baseCtx
			if tc, ok := trace.ExtractFromJSON(msg); ok {
				ctx = trace.WithContext(ctx, tc)
			}
			if s.stop(req.Session) {
				trace.Logger(ctx).Info("stop requested over websocket", "name", req.Session)
			} else {
				_ = wsjson.Write(ctx, conn, ErrorMessage{Type: "error", Message: "already stopped"})
			}
		default:
			_ = wsjson.Write(baseCtx, conn, ErrorMessage{Type: "error", Message: "unknown message type"})
		}
	}
}

func (s *Server) broadcastTranscripts() {
	events := s.session.Store().Events()
	for {
		select {
		case evt := <-events:
			s.broadcast(TranscriptMessage{Type: "transcript", Seq: evt.Seq, Index: evt.Index, Text: evt.Text})
		case <-s.done:
			return
		}
	}
}

func (s *Server) broadcast(msg any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.conns {
		go func(c *websocket.Conn) {
			ctx, cancel := context.WithTimeout(context.Background(), BroadcastTimeout)
			defer cancel()
			_ = wsjson.Write(ctx, c, msg)
		}(conn)
	}
}
