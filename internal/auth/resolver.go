package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/gatekey/internal/metrics"
	"github.com/hitoshi/gatekey/internal/model"
)

// SessionStore はリゾルバが必要とするセッション参照インターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionStore interface {
	FindByToken(ctx context.Context, token string) (*model.Session, error)
}

// UserStore はリゾルバが必要とするユーザー参照インターフェース。
type UserStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// TouchQueue はセッション使用通知の投入インターフェース。
// Enqueueは即座に返り、失敗しない（ベストエフォートの簿記）。
type TouchQueue interface {
	Enqueue(sessionID string, meta model.SessionMetadata)
}

// SessionTokenPrefix はローカルセッショントークンのスキームプレフィックス。
const SessionTokenPrefix = "mra"

// schemeDelimiter はトークンのプレフィックスを区切るデリミタ。
const schemeDelimiter = "_"

// ProviderRegistration は外部IdPと、そのIdPへルーティングするトークン
// プレフィックスの組を表す。ローテーションされた旧トークン形式との
// 前方互換のため、1プロバイダーに複数のプレフィックスを割り当てられる。
type ProviderRegistration struct {
	Provider IdentityProvider
	Prefixes []string
}

// scheme はプレフィックス1つに対応する解決経路。
type scheme struct {
	name    string
	resolve func(ctx context.Context, token string, meta model.SessionMetadata) (*model.User, error)
}

// Resolver は受信した資格情報文字列からスキームを判別し、
// 正規のユーザーまたは型付きの認証エラーへ解決するディスパッチャ。
// スキームテーブルは構築時に1回だけ組み立てる。
// 共有する可変状態は配下のキャッシュとタッチキューのみであり、
// Resolve自体は並行呼び出しに対して安全。
type Resolver struct {
	sessions SessionStore
	users    UserStore
	touch    TouchQueue
	schemes  map[string]scheme
	logger   *slog.Logger
	metrics  metrics.MetricsCollector

	// now はテストで時刻を固定するためのフック。
	now func() time.Time
}

// NewResolver はResolverを生成し、スキームテーブルを構築する。
// プロバイダーを追加する場合はProviderRegistrationを増やすだけでよく、
// ディスパッチ制御フローの変更は不要。
func NewResolver(
	sessions SessionStore,
	users UserStore,
	touch TouchQueue,
	providers []ProviderRegistration,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.Noop{}
	}

	r := &Resolver{
		sessions: sessions,
		users:    users,
		touch:    touch,
		schemes:  make(map[string]scheme),
		logger:   logger,
		metrics:  collector,
		now:      time.Now,
	}

	r.schemes[SessionTokenPrefix] = scheme{
		name:    "session",
		resolve: r.resolveSession,
	}

	for _, reg := range providers {
		provider := reg.Provider
		s := scheme{
			name: provider.Name(),
			resolve: func(ctx context.Context, token string, meta model.SessionMetadata) (*model.User, error) {
				return r.resolveProvider(ctx, provider, token)
			},
		}
		for _, prefix := range reg.Prefixes {
			r.schemes[prefix] = s
		}
	}

	return r
}

// Resolve は生の資格情報文字列を正規のユーザーへ解決する。
//
// 資格情報が空（ヘッダー不在）の場合はInvalidAuthMethod、
// テキストとして不正な場合はInvalidCredentials、
// プレフィックスが未登録の場合はInvalidAuthMethodを返す。
// 前者は「認証の試行がなかった」、後者2つは「試行されたが失敗した」ことを示す。
func (r *Resolver) Resolve(ctx context.Context, rawCredential string, meta model.SessionMetadata) (*model.User, error) {
	if rawCredential == "" {
		r.metrics.RecordAuthFailure("none", model.ErrCodeInvalidAuthMethod)
		return nil, model.NewInvalidAuthMethodError()
	}

	if !utf8.ValidString(rawCredential) {
		r.metrics.RecordAuthFailure("none", model.ErrCodeInvalidCredentials)
		return nil, model.NewInvalidCredentialsError()
	}

	prefix, _, found := strings.Cut(rawCredential, schemeDelimiter)
	if !found {
		r.metrics.RecordAuthFailure("none", model.ErrCodeInvalidAuthMethod)
		return nil, model.NewInvalidAuthMethodError()
	}

	s, ok := r.schemes[prefix]
	if !ok {
		r.metrics.RecordAuthFailure("none", model.ErrCodeInvalidAuthMethod)
		return nil, model.NewInvalidAuthMethodError()
	}

	user, err := s.resolve(ctx, rawCredential, meta)
	if err != nil {
		if authErr, ok := model.AsAuthError(err); ok {
			r.metrics.RecordAuthFailure(s.name, authErr.Code)
		}
		return nil, err
	}

	r.metrics.RecordAuthSuccess(s.name)
	return user, nil
}

// resolveSession はローカルセッショントークンを解決する。
// セッションの不在と期限切れは呼び出し元から区別できない
// （セッションの存在の探索を許さないため、どちらもInvalidCredentials）。
func (r *Resolver) resolveSession(ctx context.Context, token string, meta model.SessionMetadata) (*model.User, error) {
	session, err := r.sessions.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if session == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	// 期限切れセッションはタッチを記録する前に拒否する
	if !session.ExpiresAt.After(r.now()) {
		return nil, model.NewInvalidCredentialsError()
	}

	user, err := r.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session user: %w", err)
	}
	if user == nil {
		// 削除済みユーザーを指すセッション。外部契約を単純に保つため
		// 整合性エラーではなくInvalidCredentialsとして扱う。
		r.logger.Warn("session points at missing user",
			slog.String("session_id", session.ID),
			slog.String("user_id", session.UserID),
		)
		return nil, model.NewInvalidCredentialsError()
	}

	// タッチはfire-and-forget。解決結果を遅延させず、失敗もさせない。
	r.touch.Enqueue(session.ID, meta)

	return user, nil
}

// resolveProvider は外部IdPトークンを解決する。
// 検証の失敗時は対応付けとユーザー参照を試行しない。
func (r *Resolver) resolveProvider(ctx context.Context, provider IdentityProvider, token string) (*model.User, error) {
	profile, err := provider.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}

	localUserID, found, err := provider.MapRemoteID(ctx, profile.RemoteUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to map remote identity: %w", err)
	}
	if !found {
		return nil, model.NewInvalidCredentialsError()
	}

	user, err := r.users.FindByID(ctx, localUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up mapped user: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	return user, nil
}
