package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/8adimka/Go_Weather_Agent/internal/agent"
	"github.com/8adimka/Go_Weather_Agent/internal/errorsx"
	"github.com/8adimka/Go_Weather_Agent/internal/tools/registry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

// Tools lists and runs registered tools
type Tools interface {
	Definitions() []registry.Definition
	Execute(ctx context.Context, name string, args json.RawMessage) (string, error)
}

// Agents lists agents and routes chat messages to them by key
type Agents interface {
	List() []agent.Definition
	Reply(ctx context.Context, key, conversationID, message string) (string, error)
}

// ChatRequest is the body of POST /v1/agents/{key}/chat
type ChatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message" validate:"required"`
}

// ChatResponse is returned by POST /v1/agents/{key}/chat
type ChatResponse struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Server exposes tools and agents over JSON HTTP
type Server struct {
	tools  Tools
	agents Agents
}

func NewServer(tools Tools, agents Agents) *Server {
	return &Server{tools: tools, agents: agents}
}

// Register mounts the /v1 routes on r. They go on r itself rather than a
// subrouter so a method mismatch answers 405.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/v1/tools", s.listTools).Methods(http.MethodGet)
	r.HandleFunc("/v1/tools/{name}", s.callTool).Methods(http.MethodPost)
	r.HandleFunc("/v1/agents", s.listAgents).Methods(http.MethodGet)
	r.HandleFunc("/v1/agents/{key}/chat", s.chat).Methods(http.MethodPost)
}

func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": s.tools.Definitions()})
}

func (s *Server) callTool(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	args, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(r.Context(), w, errorsx.Wrapf(errorsx.ErrInvalidInput, "read body: %v", err))
		return
	}

	result, err := s.tools.Execute(r.Context(), name, json.RawMessage(args))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, result)
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"agents": s.agents.List()})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var req ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(r.Context(), w, errorsx.Wrapf(errorsx.ErrInvalidInput, "decode body: %v", err))
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := validate.Struct(&req); err != nil {
		writeError(r.Context(), w, errorsx.Wrap(errorsx.ErrInvalidInput, "message is required"))
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	reply, err := s.agents.Reply(r.Context(), key, req.ConversationID, req.Message)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{ConversationID: req.ConversationID, Reply: reply})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := errorsx.HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.ErrorContext(ctx, "Request failed", "error", err)
		message = "internal server error"
	} else {
		slog.WarnContext(ctx, "Request rejected", "status", status, "error", err)
	}

	writeJSON(w, status, errorResponse{Error: errorsx.Code(err), Message: message})
}
