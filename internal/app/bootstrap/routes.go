// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	groupsfeature "github.com/dalemusser/chathub/internal/app/features/groups"
	healthfeature "github.com/dalemusser/chathub/internal/app/features/health"
	loginfeature "github.com/dalemusser/chathub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/chathub/internal/app/features/logout"
	messagesfeature "github.com/dalemusser/chathub/internal/app/features/messages"
	usersfeature "github.com/dalemusser/chathub/internal/app/features/users"
	wsfeature "github.com/dalemusser/chathub/internal/app/features/ws"

	"github.com/dalemusser/chathub/internal/app/chat"
	"github.com/dalemusser/chathub/internal/app/realtime/hub"
	activitystore "github.com/dalemusser/chathub/internal/app/store/activity"
	groupstore "github.com/dalemusser/chathub/internal/app/store/groups"
	messagestore "github.com/dalemusser/chathub/internal/app/store/messages"
	userstore "github.com/dalemusser/chathub/internal/app/store/users"
	"github.com/dalemusser/chathub/internal/app/system/auth"
	"github.com/dalemusser/chathub/internal/app/system/media"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. It wires the stores into the chat
// services, the services into the hub, and the hub back into the services as
// their event sink, then mounts the feature routers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	groups := groupstore.New(deps.MongoDatabase)
	users := userstore.New(deps.MongoDatabase)
	messages := messagestore.New(deps.MongoDatabase)
	activity := activitystore.New(deps.MongoDatabase)

	// The hub consumes the services and the services emit through the hub,
	// so the notifier is bound after both exist.
	groupSvc := chat.NewGroupService(groups, users, messages, activity, nil, logger)
	msgSvc := chat.NewMessageService(messages, groups, users, activity, media.PassthroughUploader{}, nil, logger)
	socketHub := hub.New(groupSvc, msgSvc, appCfg.TypingQuiescence, logger)
	groupSvc.SetNotifier(socketHub)
	msgSvc.SetNotifier(socketHub)

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	// This makes the current user available to all handlers via auth.CurrentUser(r).
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication
	loginHandler := loginfeature.NewHandler(users, sessionMgr, logger)
	r.Mount("/", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	// REST API
	usersHandler := usersfeature.NewHandler(users, socketHub, logger)
	r.Mount("/api/users", usersfeature.Routes(usersHandler, sessionMgr))

	groupsHandler := groupsfeature.NewHandler(groupSvc, msgSvc, socketHub, logger)
	r.Mount("/api/groups", groupsfeature.Routes(groupsHandler, sessionMgr))

	messagesHandler := messagesfeature.NewHandler(msgSvc, logger)
	r.Mount("/api/messages", messagesfeature.Routes(messagesHandler, sessionMgr))

	// Realtime socket
	wsHandler := wsfeature.NewHandler(socketHub, appCfg.WSAllowedOrigins, logger)
	r.Mount("/ws", wsfeature.Routes(wsHandler, sessionMgr))

	return r, nil
}
