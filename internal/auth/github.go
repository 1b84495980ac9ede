package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/hitoshi/gatekey/internal/repository"
)

const defaultGitHubAPIBaseURL = "https://api.github.com"

// GitHubProviderConfig はGitHubプロバイダーの設定。
type GitHubProviderConfig struct {
	// APIBaseURL はGitHub APIのベースURL。テスト用にオーバーライド可能。
	APIBaseURL string

	// HTTPClient は外向きリクエストに使用するクライアント。
	// 本番ではSSRFガード付きクライアントを渡す。未指定の場合はhttp.DefaultClient。
	HTTPClient *http.Client
}

// GitHubProvider はGitHubが発行したアクセストークンの検証と、
// GitHubユーザーIDからローカルユーザーIDへの対応付けを提供する。
// トークンの発行・交換は行わない（取得済みトークンの検証のみ）。
type GitHubProvider struct {
	config    GitHubProviderConfig
	identRepo repository.IdentityRepository
}

// NewGitHubProvider はGitHubProviderを生成する。
func NewGitHubProvider(config GitHubProviderConfig, identRepo repository.IdentityRepository) *GitHubProvider {
	if config.APIBaseURL == "" {
		config.APIBaseURL = defaultGitHubAPIBaseURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	return &GitHubProvider{
		config:    config,
		identRepo: identRepo,
	}
}

// Name はプロバイダー名を返す。
func (p *GitHubProvider) Name() string {
	return "github"
}

// githubUserResponse はGitHubの /user エンドポイントのレスポンス。
type githubUserResponse struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// VerifyToken はGitHubの /user エンドポイントでトークンを検証し、
// トークン所有者のプロフィールを取得する。
func (p *GitHubProvider) VerifyToken(ctx context.Context, token string) (*RemoteProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.APIBaseURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user request: %w", err)
	}
	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token verification failed with status %d", resp.StatusCode)
	}

	var user githubUserResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse user response: %w", err)
	}

	if user.ID == 0 {
		return nil, fmt.Errorf("empty user id in response")
	}

	return &RemoteProfile{
		RemoteUserID: strconv.FormatInt(user.ID, 10),
		Username:     user.Login,
	}, nil
}

// MapRemoteID はGitHubユーザーIDに紐付くローカルユーザーIDをidentitiesから検索する。
// 紐付けが存在しない場合は("", false, nil)を返す。
func (p *GitHubProvider) MapRemoteID(ctx context.Context, remoteUserID string) (string, bool, error) {
	identity, err := p.identRepo.FindByProviderAndRemoteID(ctx, p.Name(), remoteUserID)
	if err != nil {
		return "", false, fmt.Errorf("failed to map remote user id: %w", err)
	}
	if identity == nil {
		return "", false, nil
	}
	return identity.UserID, true, nil
}

// compile-time interface check
var _ IdentityProvider = (*GitHubProvider)(nil)
