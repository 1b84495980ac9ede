// Package touch はセッション使用通知の収集とlast-seen情報の
// 非同期フラッシュを提供する。
package touch

import (
	"sync"
	"time"

	"github.com/hitoshi/gatekey/internal/model"
	"github.com/hitoshi/gatekey/internal/repository"
)

// Queue はセッションタッチをメモリ上で合流させるキュー。
// 同一セッションIDへの複数のタッチはフラッシュ窓の中で1件に合流し、
// 最後のメタデータだけが残る（last-write-wins）。これにより単一セッションの
// 高トラフィックでも書き込み増幅が抑えられる。
//
// Enqueueは多数のリクエストから並行に呼ばれる。ロックはメモリ上の
// 合流マップの操作だけを守り、ストアへの書き込み中には保持しない。
type Queue struct {
	mu      sync.Mutex
	pending map[string]repository.SessionTouch
}

// NewQueue はQueueを生成する。
func NewQueue() *Queue {
	return &Queue{
		pending: make(map[string]repository.SessionTouch),
	}
}

// Enqueue はセッションタッチを投入する。即座に返り、失敗しない。
// 同一セッションの既存エントリはメタデータごと上書きされる。
func (q *Queue) Enqueue(sessionID string, meta model.SessionMetadata) {
	touch := repository.SessionTouch{
		SessionID: sessionID,
		Metadata:  meta,
		TouchedAt: time.Now(),
	}

	q.mu.Lock()
	q.pending[sessionID] = touch
	q.mu.Unlock()
}

// Drain は合流済みのタッチをすべて取り出し、キューを空にする。
// 取り出したタッチの永続化はフラッシャーの責務であり、
// クラッシュで失われても認証の不変条件は壊れない。
func (q *Queue) Drain() []repository.SessionTouch {
	q.mu.Lock()
	pending := q.pending
	q.pending = make(map[string]repository.SessionTouch)
	q.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	touches := make([]repository.SessionTouch, 0, len(pending))
	for _, touch := range pending {
		touches = append(touches, touch)
	}
	return touches
}

// Len は現在保留中のタッチ件数を返す。
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
