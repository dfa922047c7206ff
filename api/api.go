// Package api is the HTTP facade in front of the conversation pipeline.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/farmachile/medagent/agent"
	"github.com/farmachile/medagent/types"
)

// Server exposes POST /chat and GET /status.
type Server struct {
	agent  *agent.Agent
	port   int
	server *http.Server
	logger *log.Logger
}

func NewServer(a *agent.Agent, port int) *Server {
	return &Server{
		agent:  a,
		port:   port,
		logger: log.New(os.Stdout, "[api] ", log.LstdFlags),
	}
}

// Start blocks serving until the listener fails or Stop is called.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/status", s.handleStatus)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}
	s.logger.Printf("listening on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// handleChat accepts {"sessionId": "...", "prompt": "..."}; a non-JSON
// body is treated as a plain-text prompt.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	raw, _ := io.ReadAll(r.Body)
	_ = r.Body.Close()

	var req types.PromptRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.Prompt == "" {
		req.Prompt = strings.TrimSpace(string(raw))
	}
	if strings.TrimSpace(req.Prompt) == "" {
		http.Error(w, "empty prompt", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	requestID := uuid.NewString()

	start := time.Now()
	reply, err := s.agent.HandleTurn(r.Context(), req.SessionID, req.Prompt)
	if err != nil {
		s.logger.Printf("request %s failed: %v", requestID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := types.PromptResponse{
		Response:       reply.Text,
		UsedFilters:    reply.UsedFilters,
		Degraded:       reply.Degraded,
		RequestID:      requestID,
		SessionID:      req.SessionID,
		ProcessingTime: float64(time.Since(start).Microseconds()) / 1000.0,
		Timestamp:      time.Now().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
