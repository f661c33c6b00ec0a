package handler

import (
	"net/http"
	"time"

	"github.com/monmlabs/monm-server/internal/ctxkeys"
	"github.com/monmlabs/monm-server/internal/model"
	"github.com/monmlabs/monm-server/internal/service"
)

type ConversationHandler struct {
	conversationService *service.ConversationService
}

func NewConversationHandler(conversationService *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

type conversationResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

func toConversationResponse(c *model.Conversation) conversationResponse {
	return conversationResponse{ID: c.ID, Type: c.Type, CreatedAt: c.CreatedAt}
}

func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req struct {
		ParticipantIDs []string `json:"participantIds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	conversation, err := h.conversationService.Create(user.ID, req.ParticipantIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toConversationResponse(conversation))
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	conversations, err := h.conversationService.ForUser(user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	results := make([]conversationResponse, 0, len(conversations))
	for _, c := range conversations {
		results = append(results, toConversationResponse(c))
	}

	writeJSON(w, http.StatusOK, results)
}
