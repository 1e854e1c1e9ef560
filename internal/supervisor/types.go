package supervisor

import (
	"context"
	"errors"
	"time"

	"camtrigger/internal/output"
	"camtrigger/internal/recorder"
	"camtrigger/internal/storage"
	"camtrigger/internal/trigger"
)

// ErrNotRunning はコマンドを受け付けない状態であることを表す
var ErrNotRunning = errors.New("終了処理中のためコマンドを受け付けません")

// State はスーパーバイザーの状態
type State string

// State の定数定義
const (
	StateRunning    State = "running"    // コマンド受付中
	StateDraining   State = "draining"   // 実行中の録画の終了待ち
	StateTerminated State = "terminated" // 終了済み
)

// Outcome は save コマンドの処理結果
type Outcome string

// Outcome の定数定義
const (
	OutcomeStarted   Outcome = "started"   // 録画を開始した
	OutcomeDebounced Outcome = "debounced" // 最小間隔内のため無視した
	OutcomeBusy      Outcome = "busy"      // 録画中のため無視した
	OutcomeRefused   Outcome = "refused"   // 容量不足などで開始しなかった
	OutcomeFailed    Outcome = "failed"    // 録画プロセスの起動に失敗した
)

// Recorder は録画の起動と終了待ちを提供する
type Recorder interface {
	Launch(ctx context.Context, duration time.Duration) (*recorder.Recording, error)
	Active() int
	Anomalies() int
	Drain()
}

// StorageChecker は録画前の容量チェックを行う
type StorageChecker interface {
	CheckStorage() (storage.Result, []string, error)
}

// Options はスーパーバイザーの構成
type Options struct {
	DefaultDuration time.Duration // save の既定録画時間
	Verbose         bool          // 詳細ログ
	Gate            *trigger.Gate
	Recorder        Recorder
	Storage         StorageChecker // nil の場合は容量チェックを行わない
	Sink            recorder.Sink  // nil の場合は通知しない
	Output          *output.Formatter
}

// Reply はコマンドの処理結果
type Reply struct {
	Command   string              `json:"command"`
	Outcome   Outcome             `json:"outcome,omitempty"`
	Message   string              `json:"message,omitempty"`
	Recording *recorder.Recording `json:"recording,omitempty"`

	level output.Level
	quiet bool // 標準出力には表示しない（詳細ログにのみ出す）
}

// Snapshot はスーパーバイザーの現在状態
type Snapshot struct {
	State       State     `json:"state"`
	Active      int       `json:"active"`
	Recording   bool      `json:"recording"`
	Anomalies   int       `json:"anomalies"`
	LastTrigger time.Time `json:"last_trigger"`
}

type request struct {
	line  string
	reply chan Reply
}
