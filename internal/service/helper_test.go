package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/monmlabs/monm-server/internal/db"
	"github.com/monmlabs/monm-server/internal/ledger"
	"github.com/monmlabs/monm-server/internal/model"
	"github.com/monmlabs/monm-server/internal/repository"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	// In-memory sqlite is per-connection; keep the pool at one
	database.SetMaxOpenConns(1)

	require.NoError(t, db.RunMigrations(database.DB, "sqlite"))

	t.Cleanup(func() { _ = database.Close() })
	return database
}

func createTestUser(t *testing.T, database *sqlx.DB, username string) *model.User {
	t.Helper()

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		UsernameHash: hashUsername(username),
		Name:         "Test " + username,
		PasswordHash: "irrelevant",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, repository.NewUserRepository(database).Create(user))
	return user
}

func createTestConversation(t *testing.T, database *sqlx.DB, creatorID string, participantIDs ...string) *model.Conversation {
	t.Helper()

	svc := NewConversationService(repository.NewConversationRepository(database))
	conversation, err := svc.Create(creatorID, participantIDs)
	require.NoError(t, err)
	return conversation
}

// memStorage is an in-memory Storage for tests.
type memStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{blobs: make(map[string][]byte)}
}

func (m *memStorage) Save(path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[path] = data
	return nil
}

func (m *memStorage) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[path]
	if !ok {
		return nil, fmt.Errorf("blob not found: %s", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStorage) Delete(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, path)
	return nil
}

func (m *memStorage) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

// recordingLedger counts anchor calls and hands back a fixed tx ref.
type recordingLedger struct {
	mu     sync.Mutex
	txRef  string
	traces int
	leaks  int
}

func (l *recordingLedger) RegisterFingerprint(ctx context.Context, fingerprint, locationHint string) (string, error) {
	return l.txRef, nil
}

func (l *recordingLedger) KillFingerprint(ctx context.Context, fingerprint string) (string, error) {
	return l.txRef, nil
}

func (l *recordingLedger) LogMessageHash(ctx context.Context, messageID, hash string) (string, error) {
	return l.txRef, nil
}

func (l *recordingLedger) TraceForward(ctx context.Context, originalMessageID, forwardedMessageID string, granted bool) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.traces++
	return l.txRef, nil
}

func (l *recordingLedger) ReportLeak(ctx context.Context, reportID, fingerprint, sourceURL string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.leaks++
	return l.txRef, nil
}

func (l *recordingLedger) IsFingerprintKilled(ctx context.Context, fingerprint string) (bool, error) {
	return false, nil
}

// memFile adapts a byte slice to multipart.File.
type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

func newUpload(name, contentType string, data []byte) (multipart.File, *multipart.FileHeader) {
	header := &multipart.FileHeader{
		Filename: name,
		Size:     int64(len(data)),
		Header:   textproto.MIMEHeader{},
	}
	if contentType != "" {
		header.Header.Set("Content-Type", contentType)
	}
	return memFile{bytes.NewReader(data)}, header
}

func newTestMediaService(t *testing.T, database *sqlx.DB, maxProtectedSize int64) (*MediaService, *memStorage) {
	t.Helper()

	store := newMemStorage()
	svc := NewMediaService(
		repository.NewMediaRepository(database),
		repository.NewMessageRepository(database),
		repository.NewConversationRepository(database),
		store,
		ledger.Disabled{},
		time.Second,
		"MonM",
		"https://monm.test",
		maxProtectedSize,
	)
	return svc, store
}

func newTestMessageService(t *testing.T, database *sqlx.DB, notifier Notifier) *MessageService {
	t.Helper()

	return NewMessageService(
		repository.NewMessageRepository(database),
		repository.NewConversationRepository(database),
		ledger.Disabled{},
		time.Second,
		notifier,
	)
}

func sendTestMessage(t *testing.T, svc *MessageService, conversationID, senderID string) *model.Message {
	t.Helper()

	message, err := svc.Send(conversationID, senderID, b64("ciphertext"), b64("iv-bytes"), b64("auth-tag"))
	require.NoError(t, err)
	return message
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
