package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/gatekey/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
// GitHub紐付けIDをidentitiesからLEFT JOINで引き、payout系フィールドも組み立てる。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	payout := &model.UserPayoutData{}

	var githubID, name, email, avatarURL, bio sql.NullString
	var payoutWallet, payoutWalletType, payoutAddress sql.NullString
	var role string

	err := r.db.QueryRowContext(ctx,
		`SELECT u.id, u.username, u.name, u.email, u.avatar_url, u.bio,
		        u.role, u.badges, u.created_at,
		        u.balance, u.payout_wallet, u.payout_wallet_type, u.payout_address,
		        i.remote_user_id
		 FROM users u
		 LEFT JOIN identities i ON i.user_id = u.id AND i.provider = 'github'
		 WHERE u.id = $1`,
		id,
	).Scan(
		&user.ID, &user.Username, &name, &email, &avatarURL, &bio,
		&role, &user.Badges, &user.CreatedAt,
		&payout.Balance, &payoutWallet, &payoutWalletType, &payoutAddress,
		&githubID,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	user.Name = name.String
	user.Email = email.String
	user.AvatarURL = avatarURL.String
	user.Bio = bio.String
	user.GitHubID = githubID.String
	user.Role = model.RoleFromString(role)

	payout.PayoutWallet = payoutWallet.String
	payout.PayoutWalletType = payoutWalletType.String
	payout.PayoutAddress = payoutAddress.String
	user.PayoutData = payout

	return user, nil
}
