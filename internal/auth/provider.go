// Package auth はベアラートークンの解決とロールベースの認可チェックを提供する。
package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/gatekey/internal/metrics"
	"github.com/hitoshi/gatekey/internal/model"
)

// RemoteProfile は外部IdPがトークン検証の結果として報告するリモートユーザー情報。
type RemoteProfile struct {
	RemoteUserID string
	Username     string
}

// IdentityProvider は外部IdPトークンの検証と、ローカルユーザーIDへの対応付けを行う。
// プロバイダーごとに1実装を用意する。
type IdentityProvider interface {
	// Name はプロバイダー名（"github"等）を返す。
	Name() string

	// VerifyToken はプロバイダーへのネットワーク呼び出しでトークンを検証し、
	// リモートプロフィールを取得する。失敗理由は呼び出し元へ伝播するが、
	// リゾルバに渡す前にタイムアウトデコレータがAuthErrorへ丸める。
	VerifyToken(ctx context.Context, token string) (*RemoteProfile, error)

	// MapRemoteID はリモートユーザーIDをローカルユーザーIDへ対応付ける。
	// ネットワーク呼び出しは行わない。紐付けが存在しない場合は("", false, nil)を返す。
	// 紐付けの自動作成は行わない。
	MapRemoteID(ctx context.Context, remoteUserID string) (localUserID string, found bool, err error)
}

// timeoutProvider はVerifyTokenに有界タイムアウトとエラー種別の丸めを適用するデコレータ。
// トランスポート障害・プロバイダー側拒否・タイムアウトはすべてInvalidCredentialsへ
// 丸められる（レート制限と不正トークンを呼び出し元から区別できなくするため）。
// 実際の失敗原因はログにのみ記録する。
type timeoutProvider struct {
	inner   IdentityProvider
	timeout time.Duration
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// WithTimeout はプロバイダーをタイムアウトデコレータでラップする。
// プロバイダー実装ごとにタイムアウト処理やエラー丸めを重複させないための共通層。
func WithTimeout(inner IdentityProvider, timeout time.Duration, logger *slog.Logger, collector metrics.MetricsCollector) IdentityProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.Noop{}
	}
	return &timeoutProvider{
		inner:   inner,
		timeout: timeout,
		logger:  logger,
		metrics: collector,
	}
}

// Name は内側のプロバイダー名を返す。
func (p *timeoutProvider) Name() string {
	return p.inner.Name()
}

// VerifyToken は有界タイムアウト付きで内側の検証を実行する。
// いかなる失敗もInvalidCredentialsとして返し、原因の詳細はログにのみ残す。
func (p *timeoutProvider) VerifyToken(ctx context.Context, token string) (*RemoteProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	profile, err := p.inner.VerifyToken(ctx, token)
	if err != nil {
		p.logger.Warn("provider token verification failed",
			slog.String("provider", p.inner.Name()),
			slog.String("error", err.Error()),
		)
		p.metrics.RecordProviderVerify(p.inner.Name(), "failure")
		return nil, model.NewInvalidCredentialsError()
	}

	p.metrics.RecordProviderVerify(p.inner.Name(), "success")
	return profile, nil
}

// MapRemoteID は内側へそのまま委譲する。ストア参照のエラーは丸めずに伝播する。
func (p *timeoutProvider) MapRemoteID(ctx context.Context, remoteUserID string) (string, bool, error) {
	return p.inner.MapRemoteID(ctx, remoteUserID)
}

// compile-time interface check
var _ IdentityProvider = (*timeoutProvider)(nil)
