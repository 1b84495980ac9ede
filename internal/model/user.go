// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限レベルを表す。
// normal < moderator < admin の全順序を持つ閉じた列挙型。
type Role string

const (
	// RoleNormal は一般ユーザーを示す。
	RoleNormal Role = "normal"
	// RoleModerator はモデレーターを示す。
	RoleModerator Role = "moderator"
	// RoleAdmin は管理者を示す。
	RoleAdmin Role = "admin"
)

// RoleFromString は文字列からRoleを生成する。
// 未知の値はRoleNormalとして扱う。
func RoleFromString(s string) Role {
	switch s {
	case string(RoleModerator):
		return RoleModerator
	case string(RoleAdmin):
		return RoleAdmin
	default:
		return RoleNormal
	}
}

// rank はRoleの順序値を返す。未知のRoleは最下位として扱う。
func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleModerator:
		return 1
	default:
		return 0
	}
}

// AtLeast はこのRoleがminimum以上の権限を持つかを返す。
func (r Role) AtLeast(minimum Role) bool {
	return r.rank() >= minimum.rank()
}

// User は認証の結果として呼び出し元へ返す正規のユーザー表現。
// リゾルバが呼び出しごとに新しく組み立てるイミュータブルな値であり、
// リクエスト間で共有インスタンスをキャッシュすることはない。
type User struct {
	ID        string
	GitHubID  string // 未連携の場合は空文字列
	Username  string
	Name      string
	Email     string
	AvatarURL string
	Bio       string
	CreatedAt time.Time
	Role      Role
	Badges    int64

	// PayoutData は本人のレコードを解決した場合にのみ意味を持つ。
	// 認証パスは常に「本人が自分自身を見る」経路であるため、ここでは常に設定される。
	// 他ユーザーの参照時はハンドラー層で取り除く。
	PayoutData *UserPayoutData
}

// UserPayoutData はユーザーの収益・支払い情報を表す。
type UserPayoutData struct {
	Balance          float64
	PayoutWallet     string
	PayoutWalletType string
	PayoutAddress    string
}

// Identity は外部IdPとの紐付け情報を表す。
// 紐付けの作成はオンボーディングフローの責務であり、認証パスは読み取りのみ行う。
type Identity struct {
	ID           string
	UserID       string
	Provider     string
	RemoteUserID string
	CreatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
// IDは内部識別子、Tokenはクライアントが提示するベアラートークン文字列。
// expires_atが現在時刻より後である場合にのみ認証に有効。
type Session struct {
	ID        string
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionMetadata はセッション使用時のリクエストメタデータを表す。
// last-seen記録のためにタッチキューへそのまま引き渡される。
type SessionMetadata struct {
	IP        string
	UserAgent string
}
