package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/gatekey/internal/auth"
	"github.com/hitoshi/gatekey/internal/middleware"
	"github.com/hitoshi/gatekey/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Resolver          middleware.CredentialResolver
	CORSAllowedOrigin string
	Logger            *slog.Logger

	// ハンドラー依存
	Users          UserStore
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → SecurityHeaders → CORS → Recovery → Logging
//
// 運用エンドポイント（/health、/metrics）は認証ミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))

	userHandler := NewUserHandler(deps.Users, logger)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Check)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.Resolver, logger))

		// 本人情報
		r.Get("/user", userHandler.Me)

		// 他ユーザー参照（モデレーター以上）
		r.Route("/users/{id}", func(r chi.Router) {
			r.Use(middleware.NewRequireRoleMiddleware(func(user *model.User) (*model.User, error) {
				return auth.RequireRoleAtLeast(user, model.RoleModerator)
			}))
			r.Get("/", userHandler.GetByID)
		})
	})

	return r
}
