package handler

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/monmlabs/monm-server/internal/ctxkeys"
	"github.com/monmlabs/monm-server/internal/model"
	"github.com/monmlabs/monm-server/internal/service"
)

type MessageHandler struct {
	messageService *service.MessageService
	mediaService   *service.MediaService
}

func NewMessageHandler(messageService *service.MessageService, mediaService *service.MediaService) *MessageHandler {
	return &MessageHandler{messageService: messageService, mediaService: mediaService}
}

type messageResponse struct {
	ID               string    `json:"id"`
	ConversationID   string    `json:"conversation_id"`
	SenderID         string    `json:"sender_id"`
	PayloadEncrypted string    `json:"payload_encrypted"`
	IV               string    `json:"iv"`
	AuthTag          string    `json:"auth_tag"`
	LedgerTx         *string   `json:"ledger_tx,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func toMessageResponse(m *model.Message) messageResponse {
	return messageResponse{
		ID:               m.ID,
		ConversationID:   m.ConversationID,
		SenderID:         m.SenderID,
		PayloadEncrypted: base64.StdEncoding.EncodeToString(m.PayloadEncrypted),
		IV:               base64.StdEncoding.EncodeToString(m.IV),
		AuthTag:          base64.StdEncoding.EncodeToString(m.AuthTag),
		LedgerTx:         m.LedgerTx,
		CreatedAt:        m.CreatedAt,
	}
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req struct {
		ConversationID   string `json:"conversationId"`
		PayloadEncrypted string `json:"payloadEncrypted"`
		IV               string `json:"iv"`
		AuthTag          string `json:"authTag"`
		MediaID          string `json:"mediaId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, "conversationId is required")
		return
	}

	message, err := h.messageService.Send(req.ConversationID, user.ID, req.PayloadEncrypted, req.IV, req.AuthTag)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if req.MediaID != "" {
		if err := h.mediaService.AttachToMessage(req.MediaID, message.ID, user.ID); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, toMessageResponse(message))
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	conversationID := r.PathValue("conversationId")

	messages, err := h.messageService.List(conversationID, user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	results := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		results = append(results, toMessageResponse(m))
	}

	writeJSON(w, http.StatusOK, results)
}
