package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/gatekey/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// FindByToken は指定トークンのセッションを取得する。見つからない場合はnilを返す。
// 期限切れの判定は行わず、取得したレコードをそのまま返す。
func (r *PostgresSessionRepo) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	session := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, token, user_id, expires_at, created_at
		 FROM sessions
		 WHERE token = $1`,
		token,
	).Scan(&session.ID, &session.Token, &session.UserID, &session.ExpiresAt, &session.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session by token: %w", err)
	}

	return session, nil
}

// UpdateLastSeen は複数セッションのlast-seen情報をまとめて更新する。
// 1トランザクションで順に適用する。存在しないセッションIDは更新対象0行となり無視される。
func (r *PostgresSessionRepo) UpdateLastSeen(ctx context.Context, touches []SessionTouch) error {
	if len(touches) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE sessions
		 SET last_seen_at = $2, last_ip = $3, last_user_agent = $4
		 WHERE id = $1`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare last-seen update: %w", err)
	}
	defer stmt.Close()

	for _, touch := range touches {
		if _, err := stmt.ExecContext(ctx,
			touch.SessionID, touch.TouchedAt, touch.Metadata.IP, touch.Metadata.UserAgent,
		); err != nil {
			return fmt.Errorf("failed to update last-seen for session %s: %w", touch.SessionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit last-seen updates: %w", err)
	}

	return nil
}
