package touch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/gatekey/internal/model"
	"github.com/hitoshi/gatekey/internal/repository"
)

// --- モック定義 ---

type mockLastSeenUpdater struct {
	mu      sync.Mutex
	batches [][]repository.SessionTouch
	err     error
}

func (m *mockLastSeenUpdater) UpdateLastSeen(ctx context.Context, touches []repository.SessionTouch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, touches)
	return nil
}

var _ LastSeenUpdater = (*mockLastSeenUpdater)(nil)

// --- テスト ---

func TestQueue_Enqueue_CoalescesBySessionID(t *testing.T) {
	q := NewQueue()

	q.Enqueue("s1", model.SessionMetadata{IP: "203.0.113.1", UserAgent: "agent-1"})
	q.Enqueue("s1", model.SessionMetadata{IP: "203.0.113.2", UserAgent: "agent-2"})
	q.Enqueue("s2", model.SessionMetadata{IP: "203.0.113.3", UserAgent: "agent-3"})

	if got := q.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}

	touches := q.Drain()
	if len(touches) != 2 {
		t.Fatalf("Drain() returned %d touches, want 2", len(touches))
	}

	// 同一セッションは最後のメタデータだけが残る（last-write-wins）
	for _, touch := range touches {
		if touch.SessionID == "s1" {
			if touch.Metadata.IP != "203.0.113.2" {
				t.Errorf("s1 IP = %q, want %q (most recent metadata)", touch.Metadata.IP, "203.0.113.2")
			}
			if touch.Metadata.UserAgent != "agent-2" {
				t.Errorf("s1 UserAgent = %q, want %q", touch.Metadata.UserAgent, "agent-2")
			}
		}
	}
}

func TestQueue_Drain_EmptiesQueue(t *testing.T) {
	q := NewQueue()
	q.Enqueue("s1", model.SessionMetadata{IP: "203.0.113.1"})

	if touches := q.Drain(); len(touches) != 1 {
		t.Fatalf("first Drain() returned %d touches, want 1", len(touches))
	}
	if touches := q.Drain(); touches != nil {
		t.Fatalf("second Drain() returned %v, want nil", touches)
	}
	if got := q.Len(); got != 0 {
		t.Errorf("Len() after drain = %d, want 0", got)
	}
}

func TestQueue_ConcurrentEnqueue(t *testing.T) {
	q := NewQueue()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue("shared", model.SessionMetadata{IP: "203.0.113.1", UserAgent: "racing"})
		}()
	}
	wg.Wait()

	// 同一セッションへの並行タッチは1件に合流する
	touches := q.Drain()
	if len(touches) != 1 {
		t.Fatalf("Drain() returned %d touches, want 1", len(touches))
	}
	if touches[0].SessionID != "shared" {
		t.Errorf("SessionID = %q, want %q", touches[0].SessionID, "shared")
	}
}

func TestFlusher_RunOnce_WritesDrainedTouches(t *testing.T) {
	q := NewQueue()
	updater := &mockLastSeenUpdater{}
	f := NewFlusher(q, updater, nil, nil)

	q.Enqueue("s1", model.SessionMetadata{IP: "203.0.113.1", UserAgent: "agent-1"})
	q.Enqueue("s2", model.SessionMetadata{IP: "203.0.113.2", UserAgent: "agent-2"})

	if err := f.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if len(updater.batches) != 1 {
		t.Fatalf("UpdateLastSeen called %d times, want 1", len(updater.batches))
	}
	if len(updater.batches[0]) != 2 {
		t.Errorf("batch size = %d, want 2", len(updater.batches[0]))
	}

	// フラッシュ後はキューが空であること
	if got := q.Len(); got != 0 {
		t.Errorf("Len() after flush = %d, want 0", got)
	}
}

func TestFlusher_RunOnce_EmptyQueue_SkipsWrite(t *testing.T) {
	q := NewQueue()
	updater := &mockLastSeenUpdater{}
	f := NewFlusher(q, updater, nil, nil)

	if err := f.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if len(updater.batches) != 0 {
		t.Errorf("UpdateLastSeen called %d times, want 0", len(updater.batches))
	}
}

func TestFlusher_RunOnce_WriteFailure_ReturnsError(t *testing.T) {
	q := NewQueue()
	updater := &mockLastSeenUpdater{err: errors.New("db unavailable")}
	f := NewFlusher(q, updater, nil, nil)

	q.Enqueue("s1", model.SessionMetadata{IP: "203.0.113.1"})

	if err := f.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error from RunOnce when store write fails")
	}

	// 失敗したタッチはリトライされず破棄される（ベストエフォート）
	if got := q.Len(); got != 0 {
		t.Errorf("Len() after failed flush = %d, want 0", got)
	}
}

func TestFlusher_Start_FinalFlushOnCancel(t *testing.T) {
	q := NewQueue()
	updater := &mockLastSeenUpdater{}
	f := NewFlusher(q, updater, nil, nil)

	q.Enqueue("s1", model.SessionMetadata{IP: "203.0.113.1"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.Start(ctx, time.Hour) // ティッカーは発火しない長さ
	}()

	cancel()
	<-done

	// キャンセル時に残りのタッチが書き出されること
	updater.mu.Lock()
	defer updater.mu.Unlock()
	if len(updater.batches) != 1 {
		t.Fatalf("UpdateLastSeen called %d times, want 1 (final flush)", len(updater.batches))
	}
}
