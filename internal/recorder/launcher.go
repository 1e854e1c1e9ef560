package recorder

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Launcher は録画プロセスを起動し、終了をリーパーに引き渡す
type Launcher struct {
	starter Starter
	outDir  string
	verbose bool
	now     func() time.Time
	tracker *Tracker
	reaper  *Reaper

	mu       sync.Mutex
	lastBase string // 直前に採番したクリップの基本パス
	lastSeq  int
}

// NewLauncher は新しいLauncherを作成する
// onExit は録画プロセスの終了ごとにリーパーのゴルーチンから呼ばれる
func NewLauncher(starter Starter, outDir string, verbose bool, onExit func(Exit)) *Launcher {
	tracker := NewTracker()
	return &Launcher{
		starter: starter,
		outDir:  outDir,
		verbose: verbose,
		now:     time.Now,
		tracker: tracker,
		reaper:  NewReaper(tracker, onExit),
	}
}

// Launch は指定時間の録画を開始する
// 出力先ディレクトリの存在と書き込み可否は呼び出し側で保証済みとする
func (l *Launcher) Launch(ctx context.Context, duration time.Duration) (*Recording, error) {
	// 録画コマンドにはミリ秒で渡すため、1ms 未満は -t 0 (無制限) になってしまう
	if duration < time.Millisecond {
		return nil, fmt.Errorf("録画時間は1ms以上である必要があります: %v", duration)
	}

	req := Request{
		Duration: duration,
		Path:     l.nextPath(l.now()),
	}

	h, err := l.starter.Start(ctx, req)
	if err != nil {
		return nil, &LaunchError{Path: req.Path, Err: err}
	}

	l.tracker.Acquire()

	rec := Recording{
		ID:        uuid.NewString(),
		PID:       h.Pid(),
		Path:      req.Path,
		Duration:  duration,
		StartedAt: l.now(),
	}
	if l.verbose {
		log.Printf("録画プロセスを起動しました (pid=%d, %dms): %s", rec.PID, duration.Milliseconds(), rec.Path)
	}

	l.reaper.Watch(rec, h)
	return &rec, nil
}

// Active は実行中の録画数を返す
func (l *Launcher) Active() int {
	return l.tracker.Active()
}

// Anomalies は過剰な終了検出の回数を返す
func (l *Launcher) Anomalies() int {
	return l.tracker.Anomalies()
}

// Drain は全ての録画が終了するまでブロックする
func (l *Launcher) Drain() {
	l.reaper.Drain()
}

// nextPath は同じ秒のトリガーや既存ファイルと重ならないクリップのパスを返す
func (l *Launcher) nextPath(t time.Time) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	base := ClipPath(l.outDir, t)
	seq := 1
	if base == l.lastBase {
		seq = l.lastSeq + 1
	}

	path := clipPathSeq(l.outDir, t, seq)
	for fileExists(path) {
		seq++
		path = clipPathSeq(l.outDir, t, seq)
	}

	l.lastBase = base
	l.lastSeq = seq
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
