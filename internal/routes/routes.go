package routes

import (
	"net/http"

	"github.com/monmlabs/monm-server/internal/app"
	"github.com/monmlabs/monm-server/internal/handler"
	"github.com/monmlabs/monm-server/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService)
	user := handler.NewUserHandler(app.UserService)
	conversation := handler.NewConversationHandler(app.ConversationService)
	message := handler.NewMessageHandler(app.MessageService, app.MediaService)
	media := handler.NewMediaHandler(
		app.MediaService,
		app.PermissionService,
		app.ForwardService,
		app.LeakService,
		app.Cfg.MaxUploadSize,
	)

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Auth (rate limited)
	rateLimiter := middleware.RateLimitAuth()
	mux.HandleFunc("POST /api/auth/register", rateLimiter(auth.Register))
	mux.HandleFunc("POST /api/auth/login", rateLimiter(auth.Login))

	// Users
	mux.HandleFunc("GET /api/users/me", middleware.RequireAuth(user.Me))
	mux.HandleFunc("GET /api/users/search", middleware.RequireAuth(user.Search))

	// Conversations
	mux.HandleFunc("POST /api/conversations", middleware.RequireAuth(conversation.Create))
	mux.HandleFunc("GET /api/conversations", middleware.RequireAuth(conversation.List))

	// Messages
	mux.HandleFunc("POST /api/messages/send", middleware.RequireAuth(message.Send))
	mux.HandleFunc("GET /api/messages/{conversationId}", middleware.RequireAuth(message.List))

	// Media: upload and retrieval
	mux.HandleFunc("POST /api/media/upload", middleware.RequireAuth(media.Upload))
	mux.HandleFunc("GET /api/media/shared-files", middleware.RequireAuth(media.SharedFiles))
	mux.HandleFunc("GET /api/media/{id}/{action}", middleware.RequireAuth(media.Action)) // blob, protected-download

	// Media: kill switch. The fingerprint lookup is public; downloaded
	// artifacts verify against it without an app session.
	mux.HandleFunc("GET /api/media/fingerprint/{hash}/killed", media.FingerprintKilled)
	mux.HandleFunc("GET /api/media/killed-fingerprints", media.KilledFingerprints)
	mux.HandleFunc("POST /api/media/{id}/kill", middleware.RequireAuth(media.Kill))

	// Media: permissions
	mux.HandleFunc("GET /api/media/can-download/{id}", middleware.RequireAuth(media.CanDownload))
	mux.HandleFunc("GET /api/media/can-forward/{messageId}", middleware.RequireAuth(media.CanForward))
	mux.HandleFunc("POST /api/media/{id}/request-download", middleware.RequireAuth(media.RequestDownload))
	mux.HandleFunc("POST /api/media/{id}/grant-download", middleware.RequireAuth(media.GrantDownload))
	mux.HandleFunc("POST /api/media/messages/{messageId}/request-forward", middleware.RequireAuth(media.RequestForward))
	mux.HandleFunc("POST /api/media/messages/{messageId}/grant-forward", middleware.RequireAuth(media.GrantForward))

	// Media: forwarding and leak evidence
	mux.HandleFunc("POST /api/media/messages/{messageId}/forward", middleware.RequireAuth(media.Forward))
	mux.HandleFunc("POST /api/media/{id}/report-leak", middleware.RequireAuth(media.ReportLeak))

	// Live delivery (token auth happens inside the handler, before upgrade)
	mux.Handle("GET /api/ws", app.Hub.Handler(app.AuthService))

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.RequestLogging,
		middleware.AuthMiddleware(app.AuthService, app.UserService),
	)

	return handler
}
