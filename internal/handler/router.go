package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/testboard/internal/metrics"
	"github.com/hitoshi/testboard/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	Gatherer          prometheus.Gatherer
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	CookieCodec SessionCookieCodec
	AuthConfig  AuthHandlerConfig

	// テストケース
	TestCaseService TestCaseServiceInterface
	BulkImporter    BulkImporter
	EpicService     EpicServiceInterface

	// コラボレーション
	CommentService    CommentServiceInterface
	PermissionService PermissionServiceInterface

	// 生成・監査
	GenerationService GenerationServiceInterface
	AuditLogService   AuditLogServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Session → RateLimit(General) → CSRF
//
// /health、/metrics、認証ルート（/auth/*）はセッション検証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))

	authHandler := NewAuthHandler(deps.AuthService, deps.CookieCodec, deps.AuthConfig)
	testCaseHandler := NewTestCaseHandler(deps.TestCaseService, deps.BulkImporter)
	epicHandler := NewEpicHandler(deps.EpicService)
	commentHandler := NewCommentHandler(deps.CommentService)
	permissionHandler := NewPermissionHandler(deps.PermissionService)
	generationHandler := NewGenerationHandler(deps.GenerationService)
	auditHandler := NewAuditHandler(deps.AuditLogService)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// ログイン前のPOSTにもトークンが必要なため、CSRFトークンの発行は認証不要とする
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Post("/login", authHandler.Login)
		r.Post("/guest", authHandler.Guest)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.CookieCodec, deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// テストケース管理
		r.Route("/api/testcases", func(r chi.Router) {
			r.Get("/", testCaseHandler.List)
			r.Post("/", testCaseHandler.Create)
			r.Get("/export", testCaseHandler.Export)

			// POST /api/testcases/bulk - 一括インポート（インポート専用レート制限を追加）
			r.With(deps.RateLimiter.ImportMiddleware()).Post("/bulk", testCaseHandler.Bulk)

			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/", testCaseHandler.Update)
				r.Put("/", testCaseHandler.Update)
				r.Delete("/", testCaseHandler.Delete)

				r.Get("/comments", commentHandler.List)
				r.Post("/comments", commentHandler.Create)
			})
		})

		r.Route("/api/comments/{id}", func(r chi.Router) {
			r.Put("/", commentHandler.Update)
			r.Delete("/", commentHandler.Delete)
		})

		r.Get("/api/epics", epicHandler.List)

		// 共有権限
		r.Route("/api/permissions", func(r chi.Router) {
			r.Get("/", permissionHandler.List)
			r.Post("/", permissionHandler.Invite)
			r.Get("/capabilities", permissionHandler.Capabilities)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", permissionHandler.UpdateRole)
				r.Delete("/", permissionHandler.Revoke)
				r.Post("/accept", permissionHandler.Accept)
				r.Post("/decline", permissionHandler.Decline)
			})
		})

		r.Get("/api/templates", generationHandler.Templates)
		r.With(deps.RateLimiter.ImportMiddleware()).Post("/api/generate", generationHandler.Generate)

		r.Get("/api/audit-logs", auditHandler.List)
	})

	return r
}
