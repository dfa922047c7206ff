package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/farmachile/medagent/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // observers are trusted, same-host tooling
	},
}

// TraceServer broadcasts pipeline trace events to WebSocket observers.
type TraceServer struct {
	hub    *Hub
	port   int
	server *http.Server
	mu     sync.Mutex
}

func NewTraceServer(port int) *TraceServer {
	return &TraceServer{hub: NewHub(), port: port}
}

func (s *TraceServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	go s.hub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[websocket] server error: %v", err)
		}
	}()
	return nil
}

func (s *TraceServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// Trace implements the pipeline's tracer hook.
func (s *TraceServer) Trace(stage, content string) {
	s.BroadcastEvent(types.TraceEvent{
		Stage:     stage,
		Content:   content,
		Level:     "info",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// BroadcastEvent sends one trace event to every observer.
func (s *TraceServer) BroadcastEvent(ev types.TraceEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[websocket] marshal trace event: %v", err)
		return
	}
	s.hub.Broadcast(payload)
}

func (s *TraceServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	client := NewClient(s.hub, conn)
	s.hub.register <- client

	go client.writePump()
	go client.readPump()
}
