package handler

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/monmlabs/monm-server/internal/ctxkeys"
	"github.com/monmlabs/monm-server/internal/db"
	"github.com/monmlabs/monm-server/internal/ledger"
	"github.com/monmlabs/monm-server/internal/model"
	"github.com/monmlabs/monm-server/internal/repository"
	"github.com/monmlabs/monm-server/internal/service"
	"github.com/monmlabs/monm-server/internal/storage"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db            *sqlx.DB
	auth          *service.AuthService
	users         *service.UserService
	conversations *service.ConversationService
	messages      *service.MessageService
	media         *service.MediaService
	permissions   *service.PermissionService
	forwards      *service.ForwardService
	leaks         *service.LeakService

	authHandler         *AuthHandler
	userHandler         *UserHandler
	conversationHandler *ConversationHandler
	messageHandler      *MessageHandler
	mediaHandler        *MediaHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	require.NoError(t, db.RunMigrations(database.DB, "sqlite"))
	t.Cleanup(func() { _ = database.Close() })

	blobStorage, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(database)
	conversationRepo := repository.NewConversationRepository(database)
	messageRepo := repository.NewMessageRepository(database)
	mediaRepo := repository.NewMediaRepository(database)
	permissionRepo := repository.NewPermissionRepository(database)
	traceRepo := repository.NewForwardTraceRepository(database)
	leakRepo := repository.NewLeakReportRepository(database)

	env := &testEnv{db: database}
	env.auth = service.NewAuthService(userRepo, "test-secret", time.Hour)
	env.users = service.NewUserService(userRepo)
	env.conversations = service.NewConversationService(conversationRepo)
	env.messages = service.NewMessageService(messageRepo, conversationRepo, ledger.Disabled{}, time.Second, service.NoopNotifier{})
	env.media = service.NewMediaService(
		mediaRepo, messageRepo, conversationRepo,
		blobStorage, ledger.Disabled{}, time.Second,
		"MonM", "https://monm.test", 8<<20,
	)
	env.permissions = service.NewPermissionService(permissionRepo, mediaRepo, messageRepo)
	env.forwards = service.NewForwardService(messageRepo, conversationRepo, traceRepo, env.permissions, ledger.Disabled{}, time.Second)
	env.leaks = service.NewLeakService(leakRepo, mediaRepo, ledger.Disabled{}, time.Second)

	env.authHandler = NewAuthHandler(env.auth)
	env.userHandler = NewUserHandler(env.users)
	env.conversationHandler = NewConversationHandler(env.conversations)
	env.messageHandler = NewMessageHandler(env.messages, env.media)
	env.mediaHandler = NewMediaHandler(env.media, env.permissions, env.forwards, env.leaks, 25<<20)

	return env
}

func (e *testEnv) createUser(t *testing.T, username string) *model.User {
	t.Helper()

	user, err := e.auth.Register(username, "Test "+username, "a-long-enough-password", nil)
	require.NoError(t, err)
	return user
}

func (e *testEnv) createConversation(t *testing.T, creatorID string, others ...string) *model.Conversation {
	t.Helper()

	conversation, err := e.conversations.Create(creatorID, others)
	require.NoError(t, err)
	return conversation
}

// newRequest builds a request authenticated as user (nil for anonymous),
// with optional path values for handlers reading r.PathValue.
func newRequest(method, target string, body io.Reader, user *model.User, pathValues map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req = req.WithContext(ctxkeys.WithUser(context.Background(), user))
	}
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	return req
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
