package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/testboard/internal/audit"
	"github.com/hitoshi/testboard/internal/auth"
	"github.com/hitoshi/testboard/internal/bulkimport"
	"github.com/hitoshi/testboard/internal/comment"
	"github.com/hitoshi/testboard/internal/config"
	"github.com/hitoshi/testboard/internal/database"
	"github.com/hitoshi/testboard/internal/epic"
	"github.com/hitoshi/testboard/internal/generation"
	"github.com/hitoshi/testboard/internal/handler"
	"github.com/hitoshi/testboard/internal/logger"
	"github.com/hitoshi/testboard/internal/metrics"
	"github.com/hitoshi/testboard/internal/middleware"
	"github.com/hitoshi/testboard/internal/permission"
	"github.com/hitoshi/testboard/internal/repository"
	"github.com/hitoshi/testboard/internal/security"
	"github.com/hitoshi/testboard/internal/testcase"
	"github.com/hitoshi/testboard/internal/user"
	"github.com/hitoshi/testboard/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// .envがあれば読み込み、環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envファイル（存在する場合のみ）
	if err := config.LoadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		return nil, err
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	// 設定に従ってログレベルとファイル出力を再構成する
	logCloser, err := logger.Configure(w, logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}
	defer logCloser.Close()

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(cfg)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mc := metrics.NewCollector(reg)

	// 3. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	testCaseRepo := repository.NewPostgresTestCaseRepo(db)
	epicRepo := repository.NewPostgresEpicRepo(db)
	commentRepo := repository.NewPostgresCommentRepo(db)
	permissionRepo := repository.NewPostgresPermissionRepo(db)
	templateRepo := repository.NewPostgresTemplateRepo(db)
	auditRepo := repository.NewPostgresAuditRepo(db)
	locker := repository.NewPostgresScenarioLocker(db, slog.Default())

	// 4. 監査ログの非同期記録
	sinks, err := buildAuditSinks(cfg, auditRepo, security.NewWebhookGuard())
	if err != nil {
		return err
	}
	recorder := audit.NewRecorder(sinks, mc, slog.Default(), cfg.AuditQueueSize, cfg.AuditWorkers)
	recorder.Start(context.Background())

	// 5. ドメインサービスの初期化
	userService := user.NewService(userRepo)
	authService := auth.NewService(userRepo, sessionRepo, recorder,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
	epicService := epic.NewService(epicRepo)
	testCaseService := testcase.NewService(testCaseRepo, epicService, recorder, mc)
	importer := bulkimport.NewImporter(testCaseService, locker, mc, cfg.BulkImportMaxItems)
	permissionService := permission.NewService(permissionRepo, userService, recorder,
		permission.Config{EnforceOwner: cfg.PermissionEnforceOwner},
	)
	commentService := comment.NewService(commentRepo, testCaseRepo, permissionService,
		security.NewCommentSanitizer(), recorder,
	)
	generationService := generation.NewService(templateRepo, importer)

	// 6. ルーターの構築
	rateLimiterCfg := middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitImport)
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		Metrics:           mc,
		Gatherer:          reg,
		HealthChecker:     db,
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter: rateLimiter,

		AuthService: authService,
		CookieCodec: auth.NewCookieCodec(cfg.SessionSecret, cfg.SessionMaxAge),
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		TestCaseService: testCaseService,
		BulkImporter:    importer,
		EpicService:     epicService,

		CommentService:    commentService,
		PermissionService: permissionService,

		GenerationService: generationService,
		AuditLogService:   handler.NewAuditLogServiceAdapter(auditRepo),
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		slog.Error("server listen error", slog.String("error", err.Error()))
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// リクエスト処理が終わってから残りの監査ログを書き切る
	if err := recorder.Close(ctx); err != nil {
		slog.Warn("audit recorder did not drain before shutdown", slog.String("error", err.Error()))
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// buildAuditSinks は監査ログの出力先を構成する。
// Postgresへの保存は常に有効で、AUDIT_WEBHOOK_URLが設定されていればWebhook送信を追加する。
func buildAuditSinks(cfg *config.Config, repo repository.AuditRepository, guard security.WebhookGuard) ([]audit.Sink, error) {
	sinks := []audit.Sink{audit.NewStoreSink(repo)}
	if cfg.AuditWebhookURL == "" {
		return sinks, nil
	}

	if err := guard.ValidateURL(cfg.AuditWebhookURL); err != nil {
		return nil, fmt.Errorf("invalid AUDIT_WEBHOOK_URL: %w", err)
	}
	sinks = append(sinks, audit.NewWebhookSink(cfg.AuditWebhookURL, guard.NewClient(cfg.AuditWebhookTimeout)))
	return sinks, nil
}

// runWorker はメンテナンスワーカーモードで起動する。
// 期限切れセッションと保持期間を過ぎた監査ログをCLEANUP_INTERVALごとに削除する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	cleanupJob := cleanup.NewCleanupJob(db, slog.Default(), cfg.AuditRetentionDays)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Int("audit_retention_days", cfg.AuditRetentionDays),
	)

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	cleanupJob.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSeed は初期管理者ユーザーを作成する。既に存在する場合は何もしない。
// テンプレートはマイグレーションで投入される。
func runSeed(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, err := user.NewService(repository.NewPostgresUserRepo(db)).EnsureDefaultAdmin(ctx)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	slog.Info("seed completed", slog.Bool("admin_created", created))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.Redacted()
}
