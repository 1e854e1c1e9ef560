package recorder

import (
	"fmt"
	"path/filepath"
	"time"
)

// Request は1回分の録画要求
type Request struct {
	Duration time.Duration // 録画時間
	Path     string        // 出力先ファイル
}

// Recording は起動済みの録画
type Recording struct {
	ID        string        `json:"id"`         // 録画ID
	PID       int           `json:"pid"`        // 録画プロセスのPID
	Path      string        `json:"path"`       // 出力先ファイル
	Duration  time.Duration `json:"duration"`   // 録画時間
	StartedAt time.Time     `json:"started_at"` // 起動時刻
}

// Exit は録画プロセスの終了情報
type Exit struct {
	Recording Recording
	ExitCode  int
	Err       error
	EndedAt   time.Time
}

// EventType は録画イベントの種類
type EventType string

// EventType の定数定義
const (
	EventStarted  EventType = "started"  // 録画開始
	EventFinished EventType = "finished" // 録画プロセス終了
	EventFailed   EventType = "failed"   // 起動失敗
)

// Event は録画の状態変化を通知する
type Event struct {
	Type      EventType  `json:"type"`
	Recording *Recording `json:"recording,omitempty"`
	ExitCode  int        `json:"exit_code"`
	Error     string     `json:"error,omitempty"`
	Time      time.Time  `json:"time"`
}

// Sink は録画イベントの通知先
type Sink interface {
	Publish(Event)
}

// NopSink は何もしない Sink
type NopSink struct{}

// Publish は何もしない
func (NopSink) Publish(Event) {}

// LaunchError は録画プロセスを起動できなかったことを表す
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("録画プロセスの起動に失敗 (%s): %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// clipTimeFormat はクリップ名の時刻部分のフォーマット
const clipTimeFormat = "20060102-150405"

// ClipPath は出力ディレクトリと時刻からクリップのパスを生成する
func ClipPath(dir string, t time.Time) string {
	return clipPathSeq(dir, t, 1)
}

// clipPathSeq は同じ秒の2件目以降に _2, _3 ... を付ける
// 新しい順の並びでは連番付きが元の名前より前に来る
func clipPathSeq(dir string, t time.Time, seq int) string {
	if seq <= 1 {
		return filepath.Join(dir, fmt.Sprintf("clip-%s.mp4", t.Format(clipTimeFormat)))
	}
	return filepath.Join(dir, fmt.Sprintf("clip-%s_%d.mp4", t.Format(clipTimeFormat), seq))
}
