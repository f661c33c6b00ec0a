package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/monmlabs/monm-server/internal/ctxkeys"
	"github.com/monmlabs/monm-server/internal/model"
	"github.com/monmlabs/monm-server/internal/service"
	"github.com/monmlabs/monm-server/internal/validation"
)

type MediaHandler struct {
	mediaService      *service.MediaService
	permissionService *service.PermissionService
	forwardService    *service.ForwardService
	leakService       *service.LeakService
	maxUploadSize     int64
}

func NewMediaHandler(
	mediaService *service.MediaService,
	permissionService *service.PermissionService,
	forwardService *service.ForwardService,
	leakService *service.LeakService,
	maxUploadSize int64,
) *MediaHandler {
	return &MediaHandler{
		mediaService:      mediaService,
		permissionService: permissionService,
		forwardService:    forwardService,
		leakService:       leakService,
		maxUploadSize:     maxUploadSize,
	}
}

type mediaResponse struct {
	MediaID         string    `json:"media_id"`
	FingerprintHash string    `json:"fingerprint_hash"`
	MimeType        string    `json:"mime_type"`
	MediaType       string    `json:"media_type"`
	Size            int64     `json:"size"`
	MessageID       *string   `json:"message_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toMediaResponse(m *model.Media) mediaResponse {
	return mediaResponse{
		MediaID:         m.ID,
		FingerprintHash: m.FingerprintHash,
		MimeType:        m.MimeType,
		MediaType:       m.MediaType(),
		Size:            m.Size,
		MessageID:       m.MessageID,
		CreatedAt:       m.CreatedAt,
	}
}

// nullableTx renders a missing ledger anchor as JSON null, matching the
// nil-on-failure contract of the ledger client.
func nullableTx(tx string) any {
	if tx == "" {
		return nil
	}
	return tx
}

func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	// Multipart overhead on top of the file size limit
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+512*1024)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	conversationID := r.FormValue("conversationId")
	if conversationID == "" {
		writeError(w, http.StatusBadRequest, "conversationId is required")
		return
	}

	if err := validation.ValidateUpload(header, h.maxUploadSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	media, err := h.mediaService.Upload(user.ID, conversationID, file, header)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMediaResponse(media))
}

func (h *MediaHandler) SharedFiles(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	conversationID := r.URL.Query().Get("conversationId")
	if conversationID == "" {
		writeError(w, http.StatusBadRequest, "conversationId is required")
		return
	}

	files, err := h.mediaService.SharedFiles(conversationID, user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	results := make([]mediaResponse, 0, len(files))
	for _, m := range files {
		results = append(results, toMediaResponse(m))
	}

	writeJSON(w, http.StatusOK, results)
}

// Action dispatches GET /api/media/{id}/{action}. The per-item reads
// share one wildcard pattern: registering {id}/blob alongside
// can-download/{id} would be an ambiguous pair in ServeMux.
func (h *MediaHandler) Action(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("action") {
	case "blob":
		h.Blob(w, r)
	case "protected-download":
		h.ProtectedDownload(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *MediaHandler) Blob(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	mediaID := r.PathValue("id")

	media, blob, err := h.mediaService.OpenBlob(mediaID, user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer blob.Close()

	w.Header().Set("Content-Type", media.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(media.Size, 10))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = io.Copy(w, blob)
}

// FingerprintKilled is the public kill-status lookup the protected-download
// artifact calls at open time. No auth: the artifact runs outside the app.
func (h *MediaHandler) FingerprintKilled(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	if err := validation.ValidateFingerprint(hash); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	killed, err := h.mediaService.IsFingerprintKilled(hash)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"killed": killed})
}

func (h *MediaHandler) KilledFingerprints(w http.ResponseWriter, r *http.Request) {
	hashes, err := h.mediaService.KilledFingerprints()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if hashes == nil {
		hashes = []string{}
	}

	writeJSON(w, http.StatusOK, hashes)
}

func (h *MediaHandler) Kill(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	mediaID := r.PathValue("id")

	if err := h.mediaService.ActivateKillSwitch(mediaID, user.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"activated": true})
}

func (h *MediaHandler) CanDownload(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	mediaID := r.PathValue("id")

	allowed, err := h.permissionService.CanDownload(mediaID, user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}

func (h *MediaHandler) CanForward(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	messageID := r.PathValue("messageId")

	allowed, err := h.permissionService.CanForward(messageID, user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}

func (h *MediaHandler) RequestDownload(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	mediaID := r.PathValue("id")

	request, err := h.permissionService.RequestDownload(mediaID, user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":     request.ID,
		"status": request.Status,
	})
}

func (h *MediaHandler) RequestForward(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	messageID := r.PathValue("messageId")

	request, err := h.permissionService.RequestForward(messageID, user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":     request.ID,
		"status": request.Status,
	})
}

func (h *MediaHandler) GrantDownload(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	mediaID := r.PathValue("id")

	var req struct {
		Granted bool `json:"granted"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status, err := h.permissionService.ResolveDownload(mediaID, user.ID, req.Granted)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (h *MediaHandler) GrantForward(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	messageID := r.PathValue("messageId")

	var req struct {
		Granted bool `json:"granted"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status, err := h.permissionService.ResolveForward(messageID, user.ID, req.Granted)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (h *MediaHandler) ProtectedDownload(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	mediaID := r.PathValue("id")

	filename, artifact, err := h.mediaService.ProtectedDownload(mediaID, user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write(artifact)
}

func (h *MediaHandler) Forward(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	messageID := r.PathValue("messageId")

	var req struct {
		TargetConversationID string `json:"targetConversationId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TargetConversationID == "" {
		writeError(w, http.StatusBadRequest, "targetConversationId is required")
		return
	}

	message, tx, err := h.forwardService.Forward(messageID, req.TargetConversationID, user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":            message.ID,
		"blockchain_tx": nullableTx(tx),
	})
}

func (h *MediaHandler) ReportLeak(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	mediaID := r.PathValue("id")

	var req struct {
		SourceURL string `json:"sourceUrl"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, tx, err := h.leakService.Report(mediaID, user.ID, req.SourceURL)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":            report.ID,
		"blockchain_tx": nullableTx(tx),
	})
}
