package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/gatekey/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 機械可読なコードと人間可読な説明のみを含み、失敗理由の詳細は含めない。
type ErrorResponseBody struct {
	Error       string `json:"error"`
	Description string `json:"description"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Error:       code,
		Description: description,
	})
}

// WriteAuthError は認証エラーを401レスポンスとして書き込む。
// どちらのエラー種別も同じステータスコードに写像する。
func WriteAuthError(w http.ResponseWriter, authErr *model.AuthError) {
	WriteErrorResponse(w, http.StatusUnauthorized, authErr.Code, authErr.Description)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError,
		"internal_error", "An internal error occurred")
}
