package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/gatekey/internal/model"
)

// PostgresIdentityRepo はPostgreSQLを使用したidentityリポジトリ。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindByProviderAndRemoteID はproviderとremote_user_idでidentityを検索する。
// 紐付けが存在しない場合はnilを返す。
func (r *PostgresIdentityRepo) FindByProviderAndRemoteID(ctx context.Context, provider, remoteUserID string) (*model.Identity, error) {
	identity := &model.Identity{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, provider, remote_user_id, created_at
		 FROM identities
		 WHERE provider = $1 AND remote_user_id = $2`,
		provider, remoteUserID,
	).Scan(&identity.ID, &identity.UserID, &identity.Provider, &identity.RemoteUserID, &identity.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	return identity, nil
}
