package auth

import (
	"github.com/hitoshi/gatekey/internal/model"
)

// RequireRoleAtLeast は解決済みユーザーがminimum以上のロールを持つことを検査する。
// 検査に通った場合はユーザーをそのまま返す。
//
// 権限不足は「認証されていない」と同じInvalidCredentialsとして返す。
// 認証済みだが権限のない呼び出し元に、より高い権限を要するリソースの
// 存在を明かさないための意図的な設計。
func RequireRoleAtLeast(user *model.User, minimum model.Role) (*model.User, error) {
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}
	if !user.Role.AtLeast(minimum) {
		return nil, model.NewInvalidCredentialsError()
	}
	return user, nil
}
