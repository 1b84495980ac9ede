// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/hitoshi/gatekey/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var userContextKey = contextKey("auth_user")

// CredentialResolver は資格情報文字列からユーザーを解決するインターフェース。
// auth.Resolverの部分集合として定義する。
type CredentialResolver interface {
	Resolve(ctx context.Context, rawCredential string, meta model.SessionMetadata) (*model.User, error)
}

// NewAuthMiddleware はAuthorizationヘッダーの資格情報を解決し、
// 認証済みユーザーをリクエストコンテキストに注入するミドルウェアを返す。
// ヘッダー不在を含むすべての認証失敗は401のJSONエンベロープで応答する。
// インフラ障害のみ500として扱う。
func NewAuthMiddleware(resolver CredentialResolver, logger *slog.Logger) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := r.Header.Get("Authorization")
			meta := requestMetadata(r)

			user, err := resolver.Resolve(r.Context(), credential, meta)
			if err != nil {
				if authErr, ok := model.AsAuthError(err); ok {
					WriteAuthError(w, authErr)
					return
				}
				logger.Error("credential resolution failed",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRequireRoleMiddleware は認証済みユーザーのロールが最低要件を
// 満たすことを検証するミドルウェアを返す。NewAuthMiddlewareの内側で使う。
// 権限不足は資格情報エラーと同じ401として応答する。
func NewRequireRoleMiddleware(check func(user *model.User) (*model.User, error)) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := UserFromContext(r.Context())
			if err != nil {
				WriteAuthError(w, model.NewInvalidCredentialsError())
				return
			}

			if _, err := check(user); err != nil {
				if authErr, ok := model.AsAuthError(err); ok {
					WriteAuthError(w, authErr)
					return
				}
				WriteInternalServerError(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (*model.User, error) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	if !ok || user == nil {
		return nil, fmt.Errorf("authenticated user not found in context")
	}
	return user, nil
}

// ContextWithUser はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// requestMetadata はセッション利用記録に添えるリクエストメタデータを抽出する。
// 逆プロキシ配下ではX-Forwarded-Forの先頭アドレスを送信元として扱う。
func requestMetadata(r *http.Request) model.SessionMetadata {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if trimmed := strings.TrimSpace(first); trimmed != "" {
			ip = trimmed
		}
	}

	return model.SessionMetadata{
		IP:        ip,
		UserAgent: r.UserAgent(),
	}
}
