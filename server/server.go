// Package server exposes the chat manager and webhook runner over HTTP.
// Turn responses stream as Server-Sent Events; everything else is plain
// JSON.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"ailab/chat"
	"ailab/config"
	"ailab/webhook"
)

// Server is the HTTP edge of the application.
type Server struct {
	manager *chat.Manager
	runner  *webhook.Runner
	creds   *config.CredentialStore
	cfg     *config.Config
	log     *slog.Logger
	mux     *http.ServeMux
}

// New wires the API routes over the given collaborators.
func New(manager *chat.Manager, runner *webhook.Runner, creds *config.CredentialStore, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		manager: manager,
		runner:  runner,
		creds:   creds,
		cfg:     cfg,
		log:     logger,
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /api/conversations", s.handleListConversations)
	s.mux.HandleFunc("POST /api/conversations", s.handleCreateConversation)
	s.mux.HandleFunc("GET /api/conversations/active", s.handleActiveConversation)
	s.mux.HandleFunc("GET /api/conversations/{id}", s.handleGetConversation)
	s.mux.HandleFunc("PATCH /api/conversations/{id}", s.handleUpdateConversation)
	s.mux.HandleFunc("DELETE /api/conversations/{id}", s.handleDeleteConversation)
	s.mux.HandleFunc("POST /api/conversations/{id}/activate", s.handleActivateConversation)
	s.mux.HandleFunc("POST /api/conversations/{id}/turns", s.handleSendTurn)
	s.mux.HandleFunc("POST /api/webhook", s.handleWebhook)
	s.mux.HandleFunc("PUT /api/credentials/{provider}", s.handleSetCredential)
	s.mux.HandleFunc("DELETE /api/credentials/{provider}", s.handleDeleteCredential)

	return s
}

// Handler returns the root handler for ListenAndServe.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.manager.Conversations()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if summaries == nil {
		summaries = []chat.Summary{}
	}
	s.writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model        string   `json:"model"`
		SystemPrompt string   `json:"system_prompt"`
		Temperature  *float64 `json:"temperature"`
		TopP         *float64 `json:"top_p"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &chat.ValidationError{Reason: "invalid request body"})
		return
	}

	if req.Model == "" {
		req.Model = s.cfg.DefaultModel
	}
	if req.SystemPrompt == "" {
		req.SystemPrompt = s.cfg.DefaultSystemPrompt
	}
	params := chat.DefaultParams()
	if req.Temperature != nil {
		params.Temperature = *req.Temperature
	}
	if req.TopP != nil {
		params.TopP = *req.TopP
	}

	conv, err := s.manager.NewConversation(req.Model, req.SystemPrompt, params)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, conv)
}

func (s *Server) handleActiveConversation(w http.ResponseWriter, r *http.Request) {
	id, err := s.manager.ActiveConversation()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.manager.Conversation(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleUpdateConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		Title string `json:"title"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &chat.ValidationError{Reason: "invalid request body"})
		return
	}

	if req.Title != "" {
		if err := s.manager.RenameConversation(id, req.Title); err != nil {
			s.writeError(w, err)
			return
		}
	}
	if req.Model != "" {
		if err := s.manager.SetModel(id, req.Model); err != nil {
			s.writeError(w, err)
			return
		}
	}

	conv, err := s.manager.Conversation(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.DeleteConversation(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivateConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.ActivateConversation(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSendTurn streams a turn as SSE. The stream carries a "message" event
// per persisted mutation and ends with "done". Failures before any state
// mutation come back as a plain JSON error instead of a stream, so the
// dashboard can reject the input without redrawing the conversation.
func (s *Server) handleSendTurn(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &chat.ValidationError{Reason: "invalid request body"})
		return
	}

	var sw *sseWriter
	onUpdate := func(u chat.TurnUpdate) {
		if sw == nil {
			var err error
			sw, err = newSSEWriter(w)
			if err != nil {
				s.log.Error("sse unsupported", "error", err)
				return
			}
		}
		if err := sw.writeEvent("message", u); err != nil {
			s.log.Debug("sse write failed", "conversation_id", id, "error", err)
		}
	}

	state, err := s.manager.SendTurn(r.Context(), id, req.Text, onUpdate)
	if err != nil && sw == nil {
		s.writeError(w, err)
		return
	}

	if sw == nil {
		var werr error
		sw, werr = newSSEWriter(w)
		if werr != nil {
			s.writeError(w, werr)
			return
		}
	}
	if err != nil {
		sw.writeEvent("error", map[string]string{"message": err.Error()})
		return
	}
	sw.writeEvent("done", map[string]string{"state": state.String()})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &chat.ValidationError{Reason: "invalid request body"})
		return
	}

	target := webhook.Target{
		URL:    s.cfg.Webhook.URL,
		APIKey: s.creds.Credential("webhook"),
	}
	reply, err := s.runner.Run(r.Context(), target, req.Text)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"text": reply})
}

func (s *Server) handleSetCredential(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &chat.ValidationError{Reason: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		s.writeError(w, &chat.ValidationError{Reason: "api_key is empty"})
		return
	}

	s.creds.Set(provider, req.APIKey)
	if err := s.creds.Save(); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	s.creds.Delete(r.PathValue("provider"))
	if err := s.creds.Save(); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Debug("response encode failed", "error", err)
	}
}

// writeError maps the error taxonomy to HTTP statuses: rejected input is
// 400 (or 409 for a busy conversation), configuration gaps are 400, unknown
// IDs are 404, provider failures are 502, and timeouts are 504.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var validationErr *chat.ValidationError
	var configErr *chat.ConfigurationError
	var providerErr *chat.ProviderError
	var timeoutErr *chat.TimeoutError
	switch {
	case errors.Is(err, chat.ErrTurnInFlight):
		status = http.StatusConflict
	case errors.Is(err, chat.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &configErr):
		status = http.StatusBadRequest
	case errors.As(err, &providerErr):
		status = http.StatusBadGateway
	case errors.As(err, &timeoutErr):
		status = http.StatusGatewayTimeout
	}

	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
