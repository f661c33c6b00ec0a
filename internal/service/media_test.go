package service

import (
	"io"
	"strings"
	"testing"

	"github.com/monmlabs/monm-server/internal/fingerprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadFingerprintIsDeterministic(t *testing.T) {
	database := newTestDB(t)
	alice := createTestUser(t, database, "alice")
	bob := createTestUser(t, database, "bob")
	conversation := createTestConversation(t, database, alice.ID, bob.ID)

	svc, _ := newTestMediaService(t, database, 8<<20)

	content := []byte("the same bytes every time")

	file1, header1 := newUpload("a.txt", "text/plain", content)
	media1, err := svc.Upload(alice.ID, conversation.ID, file1, header1)
	require.NoError(t, err)

	file2, header2 := newUpload("b.txt", "text/plain", content)
	media2, err := svc.Upload(bob.ID, conversation.ID, file2, header2)
	require.NoError(t, err)

	assert.Equal(t, fingerprint.Sum(content), media1.FingerprintHash)
	assert.Equal(t, media1.FingerprintHash, media2.FingerprintHash)
	assert.NotEqual(t, media1.ID, media2.ID)
}

func TestUploadRejectsNonParticipant(t *testing.T) {
	database := newTestDB(t)
	alice := createTestUser(t, database, "alice")
	bob := createTestUser(t, database, "bob")
	eve := createTestUser(t, database, "eve")
	conversation := createTestConversation(t, database, alice.ID, bob.ID)

	svc, store := newTestMediaService(t, database, 8<<20)

	file, header := newUpload("a.txt", "text/plain", []byte("hello"))
	_, err := svc.Upload(eve.ID, conversation.ID, file, header)
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 0, store.len())
}

func TestKillSwitchIsHashGranular(t *testing.T) {
	database := newTestDB(t)
	alice := createTestUser(t, database, "alice")
	bob := createTestUser(t, database, "bob")
	conversation := createTestConversation(t, database, alice.ID, bob.ID)

	svc, _ := newTestMediaService(t, database, 8<<20)

	content := []byte("leaked photo bytes")

	fileA, headerA := newUpload("a.jpg", "image/jpeg", content)
	mediaA, err := svc.Upload(alice.ID, conversation.ID, fileA, headerA)
	require.NoError(t, err)

	// Bob uploads an identical copy
	fileB, headerB := newUpload("copy.jpg", "image/jpeg", content)
	mediaB, err := svc.Upload(bob.ID, conversation.ID, fileB, headerB)
	require.NoError(t, err)

	killed, err := svc.IsFingerprintKilled(mediaA.FingerprintHash)
	require.NoError(t, err)
	assert.False(t, killed)

	// Only the owner can kill
	require.ErrorIs(t, svc.ActivateKillSwitch(mediaA.ID, bob.ID), ErrForbidden)

	require.NoError(t, svc.ActivateKillSwitch(mediaA.ID, alice.ID))

	// Killing one copy makes every byte-identical copy unviewable
	killed, err = svc.IsFingerprintKilled(mediaB.FingerprintHash)
	require.NoError(t, err)
	assert.True(t, killed)

	hashes, err := svc.KilledFingerprints()
	require.NoError(t, err)
	assert.Contains(t, hashes, mediaA.FingerprintHash)
}

func TestKillSwitchIsIdempotent(t *testing.T) {
	database := newTestDB(t)
	alice := createTestUser(t, database, "alice")
	bob := createTestUser(t, database, "bob")
	conversation := createTestConversation(t, database, alice.ID, bob.ID)

	svc, _ := newTestMediaService(t, database, 8<<20)

	file, header := newUpload("a.txt", "text/plain", []byte("x"))
	media, err := svc.Upload(alice.ID, conversation.ID, file, header)
	require.NoError(t, err)

	require.NoError(t, svc.ActivateKillSwitch(media.ID, alice.ID))
	require.NoError(t, svc.ActivateKillSwitch(media.ID, alice.ID))

	killed, err := svc.IsFingerprintKilled(media.FingerprintHash)
	require.NoError(t, err)
	assert.True(t, killed)
}

func TestOpenBlobRefusesKilledMedia(t *testing.T) {
	database := newTestDB(t)
	alice := createTestUser(t, database, "alice")
	bob := createTestUser(t, database, "bob")
	conversation := createTestConversation(t, database, alice.ID, bob.ID)

	svc, _ := newTestMediaService(t, database, 8<<20)

	content := []byte("blob content")
	file, header := newUpload("a.txt", "text/plain", content)
	media, err := svc.Upload(alice.ID, conversation.ID, file, header)
	require.NoError(t, err)

	got, blob, err := svc.OpenBlob(media.ID, alice.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(blob)
	require.NoError(t, err)
	require.NoError(t, blob.Close())
	assert.Equal(t, content, data)
	assert.Equal(t, media.ID, got.ID)

	require.NoError(t, svc.ActivateKillSwitch(media.ID, alice.ID))

	_, _, err = svc.OpenBlob(media.ID, alice.ID)
	require.ErrorIs(t, err, ErrGone)
}

func TestAttachToMessageOwnerOnly(t *testing.T) {
	database := newTestDB(t)
	alice := createTestUser(t, database, "alice")
	bob := createTestUser(t, database, "bob")
	conversation := createTestConversation(t, database, alice.ID, bob.ID)

	svc, _ := newTestMediaService(t, database, 8<<20)
	messages := newTestMessageService(t, database, NoopNotifier{})

	file, header := newUpload("a.txt", "text/plain", []byte("x"))
	media, err := svc.Upload(alice.ID, conversation.ID, file, header)
	require.NoError(t, err)

	message := sendTestMessage(t, messages, conversation.ID, alice.ID)

	require.ErrorIs(t, svc.AttachToMessage(media.ID, message.ID, bob.ID), ErrForbidden)
	require.NoError(t, svc.AttachToMessage(media.ID, message.ID, alice.ID))

	got, err := svc.ByID(media.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MessageID)
	assert.Equal(t, message.ID, *got.MessageID)
}

func TestProtectedDownload(t *testing.T) {
	database := newTestDB(t)
	alice := createTestUser(t, database, "alice")
	bob := createTestUser(t, database, "bob")
	eve := createTestUser(t, database, "eve")
	conversation := createTestConversation(t, database, alice.ID, bob.ID)

	svc, _ := newTestMediaService(t, database, 8<<20)

	content := []byte("protected bytes")
	file, header := newUpload("secret.pdf", "application/pdf", content)
	media, err := svc.Upload(alice.ID, conversation.ID, file, header)
	require.NoError(t, err)

	filename, artifact, err := svc.ProtectedDownload(media.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "monm-protected.pdf.html", filename)

	html := string(artifact)
	assert.Contains(t, html, media.FingerprintHash)
	assert.Contains(t, html, "/api/media/fingerprint/")
	assert.True(t, strings.Contains(html, "cHJvdGVjdGVkIGJ5dGVz"), "artifact should embed base64 content")

	// Not owner, not participant
	_, _, err = svc.ProtectedDownload(media.ID, eve.ID)
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.ActivateKillSwitch(media.ID, alice.ID))
	_, _, err = svc.ProtectedDownload(media.ID, alice.ID)
	require.ErrorIs(t, err, ErrGone)
}

func TestProtectedDownloadSizeCeiling(t *testing.T) {
	database := newTestDB(t)
	alice := createTestUser(t, database, "alice")
	bob := createTestUser(t, database, "bob")
	conversation := createTestConversation(t, database, alice.ID, bob.ID)

	svc, _ := newTestMediaService(t, database, 16)

	file, header := newUpload("big.bin", "application/octet-stream", []byte("way more than sixteen bytes"))
	media, err := svc.Upload(alice.ID, conversation.ID, file, header)
	require.NoError(t, err)

	_, _, err = svc.ProtectedDownload(media.ID, alice.ID)
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestProtectedDownloadNotFound(t *testing.T) {
	database := newTestDB(t)
	alice := createTestUser(t, database, "alice")

	svc, _ := newTestMediaService(t, database, 8<<20)

	_, _, err := svc.ProtectedDownload("no-such-media", alice.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
