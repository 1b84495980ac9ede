// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/gatekey/internal/model"
)

// UserRepository はユーザーデータの読み取りインターフェース。
// 認証パスはユーザーを作成・更新しない。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	// payout系フィールドを含む完全なレコードを組み立てる。
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// IdentityRepository は外部IdP紐付け情報の読み取りインターフェース。
type IdentityRepository interface {
	// FindByProviderAndRemoteID はproviderとremote_user_idでidentityを検索する。
	// 紐付けが存在しない場合はnilを返す（エラーにはしない）。
	FindByProviderAndRemoteID(ctx context.Context, provider, remoteUserID string) (*model.Identity, error)
}

// SessionTouch はセッション使用時のlast-seen更新1件を表す。
type SessionTouch struct {
	SessionID string
	Metadata  model.SessionMetadata
	TouchedAt time.Time
}

// SessionRepository はセッションデータの永続化インターフェース。
// セッションの作成・破棄はログインフローの責務であり、ここには含めない。
type SessionRepository interface {
	// FindByToken は指定トークンのセッションを取得する。見つからない場合はnilを返す。
	// 期限切れセッションもそのまま返し、有効性判定は呼び出し側が行う。
	FindByToken(ctx context.Context, token string) (*model.Session, error)

	// UpdateLastSeen は複数セッションのlast-seen情報をまとめて更新する。
	// ベストエフォートの簿記であり、存在しないセッションIDは黙ってスキップされる。
	UpdateLastSeen(ctx context.Context, touches []SessionTouch) error
}
