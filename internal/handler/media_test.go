package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/monmlabs/monm-server/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartUpload(t *testing.T, conversationID, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("conversationId", conversationID))
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func uploadViaHandler(t *testing.T, env *testEnv, user *model.User, conversationID string, content []byte) mediaResponse {
	t.Helper()

	body, contentType := multipartUpload(t, conversationID, "photo.jpg", content)
	req := newRequest(http.MethodPost, "/api/media/upload", body, user, nil)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	env.mediaHandler.Upload(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp mediaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestUploadEndpoint(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	eve := env.createUser(t, "eve")
	conversation := env.createConversation(t, alice.ID, bob.ID)

	resp := uploadViaHandler(t, env, alice, conversation.ID, []byte("image bytes"))
	assert.Len(t, resp.FingerprintHash, 64)
	assert.NotEmpty(t, resp.MediaID)

	// Non-participant cannot upload into the conversation
	body, contentType := multipartUpload(t, conversation.ID, "x.jpg", []byte("other"))
	req := newRequest(http.MethodPost, "/api/media/upload", body, eve, nil)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	env.mediaHandler.Upload(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFingerprintKilledEndpoint(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	conversation := env.createConversation(t, alice.ID, bob.ID)

	// Malformed hash is rejected before touching the database
	rec := httptest.NewRecorder()
	env.mediaHandler.FingerprintKilled(rec, newRequest(http.MethodGet, "/api/media/fingerprint/zzz/killed", nil, nil, map[string]string{"hash": "zzz"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown fingerprint answers false, it never 404s
	unknown := strings.Repeat("ab", 32)
	rec = httptest.NewRecorder()
	env.mediaHandler.FingerprintKilled(rec, newRequest(http.MethodGet, "/", nil, nil, map[string]string{"hash": unknown}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"killed":false}`, rec.Body.String())

	media := uploadViaHandler(t, env, alice, conversation.ID, []byte("killable content"))

	rec = httptest.NewRecorder()
	env.mediaHandler.Kill(rec, newRequest(http.MethodPost, "/", nil, alice, map[string]string{"id": media.MediaID}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"activated":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	env.mediaHandler.FingerprintKilled(rec, newRequest(http.MethodGet, "/", nil, nil, map[string]string{"hash": media.FingerprintHash}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"killed":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	env.mediaHandler.KilledFingerprints(rec, newRequest(http.MethodGet, "/", nil, nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), media.FingerprintHash)
}

func TestKillEndpointOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	conversation := env.createConversation(t, alice.ID, bob.ID)
	media := uploadViaHandler(t, env, alice, conversation.ID, []byte("content"))

	rec := httptest.NewRecorder()
	env.mediaHandler.Kill(rec, newRequest(http.MethodPost, "/", nil, bob, map[string]string{"id": media.MediaID}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	env.mediaHandler.Kill(rec, newRequest(http.MethodPost, "/", nil, bob, map[string]string{"id": "no-such-media"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadPermissionEndpoints(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	conversation := env.createConversation(t, alice.ID, bob.ID)
	media := uploadViaHandler(t, env, alice, conversation.ID, []byte("gated content"))

	// Request
	rec := httptest.NewRecorder()
	env.mediaHandler.RequestDownload(rec, newRequest(http.MethodPost, "/", nil, bob, map[string]string{"id": media.MediaID}))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending"`)

	// Duplicate pending
	rec = httptest.NewRecorder()
	env.mediaHandler.RequestDownload(rec, newRequest(http.MethodPost, "/", nil, bob, map[string]string{"id": media.MediaID}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Self request
	rec = httptest.NewRecorder()
	env.mediaHandler.RequestDownload(rec, newRequest(http.MethodPost, "/", nil, alice, map[string]string{"id": media.MediaID}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Non-owner grant
	body := strings.NewReader(`{"granted":true}`)
	rec = httptest.NewRecorder()
	env.mediaHandler.GrantDownload(rec, newRequest(http.MethodPost, "/", body, bob, map[string]string{"id": media.MediaID}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Owner grant
	body = strings.NewReader(`{"granted":true}`)
	rec = httptest.NewRecorder()
	env.mediaHandler.GrantDownload(rec, newRequest(http.MethodPost, "/", body, alice, map[string]string{"id": media.MediaID}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"granted"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	env.mediaHandler.CanDownload(rec, newRequest(http.MethodGet, "/", nil, bob, map[string]string{"id": media.MediaID}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"allowed":true}`, rec.Body.String())
}

func TestProtectedDownloadEndpoint(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	conversation := env.createConversation(t, alice.ID, bob.ID)
	media := uploadViaHandler(t, env, alice, conversation.ID, []byte("protected content"))

	rec := httptest.NewRecorder()
	env.mediaHandler.ProtectedDownload(rec, newRequest(http.MethodGet, "/", nil, bob, map[string]string{"id": media.MediaID}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Body.String(), media.FingerprintHash)

	// Killed media answers 410 at render time
	rec = httptest.NewRecorder()
	env.mediaHandler.Kill(rec, newRequest(http.MethodPost, "/", nil, alice, map[string]string{"id": media.MediaID}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	env.mediaHandler.ProtectedDownload(rec, newRequest(http.MethodGet, "/", nil, bob, map[string]string{"id": media.MediaID}))
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestForwardEndpoint(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")
	source := env.createConversation(t, alice.ID, bob.ID)
	target := env.createConversation(t, bob.ID, carol.ID)

	message, err := env.messages.Send(source.ID, alice.ID, b64("cipher"), b64("iv"), b64("tag"))
	require.NoError(t, err)

	// Bob has no grant yet
	body := strings.NewReader(`{"targetConversationId":"` + target.ID + `"}`)
	rec := httptest.NewRecorder()
	env.mediaHandler.Forward(rec, newRequest(http.MethodPost, "/", body, bob, map[string]string{"messageId": message.ID}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	env.mediaHandler.RequestForward(rec, newRequest(http.MethodPost, "/", nil, bob, map[string]string{"messageId": message.ID}))
	require.Equal(t, http.StatusCreated, rec.Code)

	grantBody := strings.NewReader(`{"granted":true}`)
	rec = httptest.NewRecorder()
	env.mediaHandler.GrantForward(rec, newRequest(http.MethodPost, "/", grantBody, alice, map[string]string{"messageId": message.ID}))
	require.Equal(t, http.StatusOK, rec.Code)

	body = strings.NewReader(`{"targetConversationId":"` + target.ID + `"}`)
	rec = httptest.NewRecorder()
	env.mediaHandler.Forward(rec, newRequest(http.MethodPost, "/", body, bob, map[string]string{"messageId": message.ID}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID           string `json:"id"`
		BlockchainTx any    `json:"blockchain_tx"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Nil(t, resp.BlockchainTx) // ledger disabled
}

func TestReportLeakEndpoint(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	conversation := env.createConversation(t, alice.ID, bob.ID)
	media := uploadViaHandler(t, env, alice, conversation.ID, []byte("leaked"))

	body := strings.NewReader(`{"sourceUrl":"https://example.com/leak"}`)
	rec := httptest.NewRecorder()
	env.mediaHandler.ReportLeak(rec, newRequest(http.MethodPost, "/", body, alice, map[string]string{"id": media.MediaID}))
	require.Equal(t, http.StatusCreated, rec.Code)

	// Missing URL
	body = strings.NewReader(`{}`)
	rec = httptest.NewRecorder()
	env.mediaHandler.ReportLeak(rec, newRequest(http.MethodPost, "/", body, alice, map[string]string{"id": media.MediaID}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
