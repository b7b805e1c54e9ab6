package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ono-cafeteria/api/internal/assistant"
	"github.com/ono-cafeteria/api/internal/middleware"
)

// AssistantClient defines the assistant methods needed by chat handlers.
// Satisfied by *assistant.Client; narrow interface for testability.
type AssistantClient interface {
	Configured() bool
	Chat(ctx context.Context, role string, turns []assistant.Turn) (string, error)
	Ping(ctx context.Context) error
}

// ChatHandler exposes the in-app AI assistant.
type ChatHandler struct {
	client AssistantClient
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(client AssistantClient) *ChatHandler {
	return &ChatHandler{client: client}
}

// RegisterRoutes registers assistant endpoints on the given Chi router.
// Mounted authenticated at /assistant.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.Status)
	r.Post("/chat", h.Chat)
}

// --- Request / Response types ---

type chatRequest struct {
	Messages []assistant.Turn `json:"messages"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type assistantStatusResponse struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

// --- Handlers ---

// Status handles GET /assistant/status: the connectivity dot on the chat page.
func (h *ChatHandler) Status(w http.ResponseWriter, r *http.Request) {
	if !h.client.Configured() {
		writeJSON(w, http.StatusOK, assistantStatusResponse{
			Connected: false,
			Error:     "assistant not configured",
		})
		return
	}

	if err := h.client.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusOK, assistantStatusResponse{
			Connected: false,
			Error:     err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, assistantStatusResponse{Connected: true})
}

// Chat handles POST /assistant/chat. The conversation history lives on the
// client; a failed call returns an error message and loses nothing.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	if !h.client.Configured() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "assistant not configured"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "messages are required"})
		return
	}

	reply, err := h.client.Chat(r.Context(), claims.Role, req.Messages)
	if err != nil {
		if errors.Is(err, assistant.ErrRateLimited) {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: assistant chat: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "could not reach the assistant"})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}
