package trigger

import (
	"sync"
	"time"
)

// Gate は最小間隔に基づいてトリガーを受理するかを判定する
type Gate struct {
	clock  Clock
	minGap time.Duration

	mu   sync.Mutex
	last time.Time // 最後に受理したトリガーの時刻
}

// NewGate は新しいGateを作成する
func NewGate(minGap time.Duration, clock Clock) *Gate {
	if clock == nil {
		clock = SystemClock{}
	}
	if minGap < 0 {
		minGap = 0
	}

	// 初回トリガーを必ず受理するため、最小間隔分だけ過去を起点にする
	return &Gate{
		clock:  clock,
		minGap: minGap,
		last:   clock.Now().Add(-minGap),
	}
}

// Accept は現在時刻でトリガーを判定する
func (g *Gate) Accept() bool {
	return g.AcceptAt(g.clock.Now())
}

// AcceptAt は指定時刻でトリガーを判定する
// 受理した場合は最終トリガー時刻を now に更新する
func (g *Gate) AcceptAt(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if now.Sub(g.last) < g.minGap {
		return false
	}

	g.last = now
	return true
}

// Last は最後に受理したトリガーの時刻を返す
func (g *Gate) Last() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// MinGap は設定された最小間隔を返す
func (g *Gate) MinGap() time.Duration {
	return g.minGap
}
