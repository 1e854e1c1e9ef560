package recorder

import (
	"errors"
	"log"
	"os/exec"
	"time"
)

// Reaper は録画プロセスの終了を非同期に検出する
type Reaper struct {
	tracker *Tracker
	onExit  func(Exit)
}

// NewReaper は新しいReaperを作成する
func NewReaper(tracker *Tracker, onExit func(Exit)) *Reaper {
	if onExit == nil {
		onExit = func(Exit) {}
	}
	return &Reaper{
		tracker: tracker,
		onExit:  onExit,
	}
}

// Watch はプロセスの終了を待つゴルーチンを開始する
// 呼び出し前に Tracker.Acquire 済みであること
func (r *Reaper) Watch(rec Recording, h Handle) {
	go r.wait(rec, h)
}

// wait はプロセスの終了を待ち、実行中の録画数を1度だけ減らす
func (r *Reaper) wait(rec Recording, h Handle) {
	err := h.Wait()

	exit := Exit{
		Recording: rec,
		ExitCode:  exitCode(err),
		Err:       err,
		EndedAt:   time.Now(),
	}

	if !r.tracker.Release() {
		log.Printf("警告: 実行中の録画がないのに終了を検出しました (pid=%d)", rec.PID)
	}

	if err != nil {
		log.Printf("録画プロセスが異常終了しました (pid=%d, code=%d): %v", rec.PID, exit.ExitCode, err)
	} else {
		log.Printf("録画が完了しました: %s", rec.Path)
	}

	r.onExit(exit)
}

// Drain は全ての録画プロセスが終了するまでブロックする
func (r *Reaper) Drain() {
	r.tracker.WaitIdle()
}

// exitCode はWaitのエラーから終了コードを取り出す
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
