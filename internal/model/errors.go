// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// AuthError は認証失敗の種別を表す。
// 種別は閉じた集合であり、境界層で `{"error": Code, "description": Description}`
// のJSONエンベロープとHTTP 401に写像される。
// 有効なセッションやユーザーの列挙を防ぐため、失敗理由の詳細は含めない。
type AuthError struct {
	Code        string // 機械可読なエラーコード
	Description string // 人間可読な説明
}

// Error はerrorインターフェースを実装する。
func (e *AuthError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Description)
}

// 定義済みエラーコード
const (
	// ErrCodeInvalidAuthMethod は資格情報が提示されなかった、
	// またはスキームプレフィックスが未登録であることを示す。
	// 「認証の試行がなかった」ことを示すため、上流は匿名フォールバックに使える。
	ErrCodeInvalidAuthMethod = "invalid_auth_method"

	// ErrCodeInvalidCredentials は資格情報の検証がいずれかの段階で失敗したことを示す。
	// セッション不在・期限切れ・プロバイダー拒否・未連携・ユーザー欠落・権限不足を
	// 意図的に区別しない。
	ErrCodeInvalidCredentials = "invalid_credentials"
)

// NewInvalidAuthMethodError は認証方式不明エラーを生成する。
func NewInvalidAuthMethodError() *AuthError {
	return &AuthError{
		Code:        ErrCodeInvalidAuthMethod,
		Description: "Invalid authentication method",
	}
}

// NewInvalidCredentialsError は資格情報無効エラーを生成する。
func NewInvalidCredentialsError() *AuthError {
	return &AuthError{
		Code:        ErrCodeInvalidCredentials,
		Description: "Invalid authentication credentials",
	}
}

// AsAuthError はエラーチェーンからAuthErrorを取り出す。
// 認証エラーでない場合はnilとfalseを返す。
func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}
