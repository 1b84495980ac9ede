package touch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/gatekey/internal/metrics"
	"github.com/hitoshi/gatekey/internal/repository"
)

// LastSeenUpdater はフラッシャーが必要とする永続化インターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type LastSeenUpdater interface {
	UpdateLastSeen(ctx context.Context, touches []repository.SessionTouch) error
}

// Flusher はキューに合流したタッチを定期的に永続ストアへ書き出す。
// フラッシュの失敗はログに記録するだけで、タッチは破棄される
// （ベストエフォートの簿記であり、リトライはしない）。
type Flusher struct {
	queue    *Queue
	sessions LastSeenUpdater
	logger   *slog.Logger
	metrics  metrics.MetricsCollector
}

// NewFlusher はFlusherを生成する。
func NewFlusher(queue *Queue, sessions LastSeenUpdater, logger *slog.Logger, collector metrics.MetricsCollector) *Flusher {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.Noop{}
	}
	return &Flusher{
		queue:    queue,
		sessions: sessions,
		logger:   logger,
		metrics:  collector,
	}
}

// Start は指定間隔のティッカーでフラッシュを実行する。
// コンテキストがキャンセルされると残りのタッチを1回書き出してから終了する。
func (f *Flusher) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	f.logger.Info("touch flusher started",
		slog.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			// シャットダウン時の最終フラッシュ。キャンセル済みコンテキストでは
			// 書き込めないため、短い猶予付きの新しいコンテキストを使う。
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := f.RunOnce(flushCtx); err != nil {
				f.logger.Error("final touch flush failed",
					slog.String("error", err.Error()),
				)
			}
			cancel()
			f.logger.Info("touch flusher stopped")
			return
		case <-ticker.C:
			if err := f.RunOnce(ctx); err != nil {
				f.logger.Error("touch flush failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はキューを1回ドレインし、取り出したタッチをまとめて書き出す。
func (f *Flusher) RunOnce(ctx context.Context) error {
	touches := f.queue.Drain()
	if len(touches) == 0 {
		return nil
	}

	batchID := uuid.New().String()
	start := time.Now()

	if err := f.sessions.UpdateLastSeen(ctx, touches); err != nil {
		return err
	}

	f.metrics.RecordTouchFlush(len(touches))
	f.logger.Info("touch flush completed",
		slog.String("batch_id", batchID),
		slog.Int("touched_count", len(touches)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}
