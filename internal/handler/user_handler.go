// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/gatekey/internal/middleware"
	"github.com/hitoshi/gatekey/internal/model"
)

// UserStore はユーザーハンドラーが必要とするユーザー参照インターフェース。
type UserStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// UserHandler はユーザー情報参照のHTTPハンドラー。
type UserHandler struct {
	users  UserStore
	logger *slog.Logger
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(users UserStore, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// payoutDataResponse は本人参照にのみ含める収益情報。
type payoutDataResponse struct {
	Balance          float64 `json:"balance"`
	PayoutWallet     string  `json:"payout_wallet,omitempty"`
	PayoutWalletType string  `json:"payout_wallet_type,omitempty"`
	PayoutAddress    string  `json:"payout_address,omitempty"`
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID         string              `json:"id"`
	GitHubID   string              `json:"github_id,omitempty"`
	Username   string              `json:"username"`
	Name       string              `json:"name,omitempty"`
	Email      string              `json:"email,omitempty"`
	AvatarURL  string              `json:"avatar_url,omitempty"`
	Bio        string              `json:"bio,omitempty"`
	Created    time.Time           `json:"created"`
	Role       string              `json:"role"`
	Badges     int64               `json:"badges"`
	PayoutData *payoutDataResponse `json:"payout_data,omitempty"`
}

// toUserResponse はUserをAPIレスポンスへ変換する。
// includePrivateがfalseの場合、メールアドレスと収益情報を取り除く。
func toUserResponse(user *model.User, includePrivate bool) userResponse {
	resp := userResponse{
		ID:        user.ID,
		GitHubID:  user.GitHubID,
		Username:  user.Username,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Bio:       user.Bio,
		Created:   user.CreatedAt,
		Role:      string(user.Role),
		Badges:    user.Badges,
	}

	if includePrivate {
		resp.Email = user.Email
		if user.PayoutData != nil {
			resp.PayoutData = &payoutDataResponse{
				Balance:          user.PayoutData.Balance,
				PayoutWallet:     user.PayoutData.PayoutWallet,
				PayoutWalletType: user.PayoutData.PayoutWalletType,
				PayoutAddress:    user.PayoutData.PayoutAddress,
			}
		}
	}

	return resp
}

// Me は認証済みユーザー本人の情報を返す。
// 本人参照なので収益情報を含める。
// GET /user
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteAuthError(w, model.NewInvalidCredentialsError())
		return
	}

	writeJSONResponse(w, http.StatusOK, toUserResponse(user, true))
}

// GetByID は指定IDのユーザー情報を返す。モデレーター以上のみ到達できる。
// 本人以外の参照ではメールアドレスと収益情報を取り除く。
// GET /users/{id}
func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteAuthError(w, model.NewInvalidCredentialsError())
		return
	}

	targetID := chi.URLParam(r, "id")

	target, err := h.users.FindByID(r.Context(), targetID)
	if err != nil {
		h.logger.Error("failed to look up user",
			slog.String("target_user_id", targetID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	if target == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound,
			"not_found", "The requested user was not found")
		return
	}

	writeJSONResponse(w, http.StatusOK, toUserResponse(target, caller.ID == target.ID))
}

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
