// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/gatekey/internal/auth"
	"github.com/hitoshi/gatekey/internal/cache"
	"github.com/hitoshi/gatekey/internal/config"
	"github.com/hitoshi/gatekey/internal/database"
	"github.com/hitoshi/gatekey/internal/handler"
	"github.com/hitoshi/gatekey/internal/logger"
	"github.com/hitoshi/gatekey/internal/metrics"
	"github.com/hitoshi/gatekey/internal/repository"
	"github.com/hitoshi/gatekey/internal/security"
	"github.com/hitoshi/gatekey/internal/worker/touch"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
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

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DBとRedisへの接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行い、
// 未反映のセッション利用記録を最後にフラッシュする。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. Redis接続
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis connection established")

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. リポジトリとキャッシュの初期化
	appCache, err := cache.New(redisClient, "")
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	userRepo := repository.NewCachedUserRepo(
		repository.NewPostgresUserRepo(db), appCache, cfg.UserCacheTTL, collector,
	)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewCachedSessionRepo(
		repository.NewPostgresSessionRepo(db), appCache, cfg.SessionCacheTTL, collector,
	)

	// 5. 外向きHTTPクライアントの初期化
	// プロバイダーAPIベースURLは起動時に安全性を検証する
	ssrfGuard := security.NewSSRFGuard()
	if err := ssrfGuard.ValidateURL(cfg.GitHubAPIBaseURL); err != nil {
		return fmt.Errorf("unsafe provider api base url: %w", err)
	}
	providerClient := ssrfGuard.NewSafeClient(cfg.ProviderTimeout, 1<<20)

	// 6. 認証リゾルバの構築
	githubProvider := auth.NewGitHubProvider(auth.GitHubProviderConfig{
		APIBaseURL: cfg.GitHubAPIBaseURL,
		HTTPClient: providerClient,
	}, identRepo)

	touchQueue := touch.NewQueue()

	resolver := auth.NewResolver(
		sessionRepo,
		userRepo,
		touchQueue,
		[]auth.ProviderRegistration{
			{
				Provider: auth.WithTimeout(githubProvider, cfg.ProviderTimeout, slog.Default(), collector),
				Prefixes: []string{"github", "gho", "ghp"},
			},
		},
		slog.Default(),
		collector,
	)

	// 7. タッチフラッシュワーカーの起動
	flusher := touch.NewFlusher(touchQueue, sessionRepo, slog.Default(), collector)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	flusherDone := make(chan struct{})
	go func() {
		defer close(flusherDone)
		flusher.Start(workerCtx, cfg.TouchFlushInterval)
	}()

	// 8. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		Resolver:          resolver,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Logger:            slog.Default(),
		Users:             userRepo,
		HealthChecker:     db,
		MetricsHandler:    metrics.Handler(registry),
	})

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// ワーカーを停止し、最終フラッシュの完了を待つ
	workerCancel()
	select {
	case <-flusherDone:
	case <-ctx.Done():
		slog.Warn("flush worker did not stop before shutdown deadline")
	}

	slog.Info("API server stopped gracefully")
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

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
