package recorder

import "sync"

// Tracker は実行中の録画数を管理する
type Tracker struct {
	mu        sync.Mutex
	idle      *sync.Cond
	active    int
	anomalies int
}

// NewTracker は新しいTrackerを作成する
func NewTracker() *Tracker {
	t := &Tracker{}
	t.idle = sync.NewCond(&t.mu)
	return t
}

// Acquire は実行中の録画数を1増やす
func (t *Tracker) Acquire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active++
}

// Release は実行中の録画数を1減らす
// 既に0の場合は減算せず false を返す
func (t *Tracker) Release() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active == 0 {
		t.anomalies++
		return false
	}

	t.active--
	if t.active == 0 {
		t.idle.Broadcast()
	}
	return true
}

// Active は実行中の録画数を返す
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Anomalies は記録より多く終了を検出した回数を返す
func (t *Tracker) Anomalies() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.anomalies
}

// WaitIdle は実行中の録画数が0になるまでブロックする
func (t *Tracker) WaitIdle() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for t.active > 0 {
		t.idle.Wait()
	}
}
