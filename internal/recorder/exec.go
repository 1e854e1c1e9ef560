package recorder

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
)

// DefaultBinary は既定の録画コマンド
const DefaultBinary = "rpicam-vid"

// Handle は起動済みプロセスへの参照
type Handle interface {
	Pid() int
	// Wait はプロセスの終了までブロックする
	Wait() error
}

// Starter は録画プロセスを起動する
type Starter interface {
	Start(ctx context.Context, req Request) (Handle, error)
}

// ExecStarter は外部コマンドで録画する Starter 実装
type ExecStarter struct {
	Binary    string    // 録画コマンド
	ExtraArgs []string  // 追加引数
	Output    io.Writer // 子プロセスの標準出力/標準エラー（nil の場合は破棄）
}

// NewExecStarter は新しいExecStarterを作成する
func NewExecStarter(binary string, extraArgs []string, output io.Writer) *ExecStarter {
	if binary == "" {
		binary = DefaultBinary
	}
	return &ExecStarter{
		Binary:    binary,
		ExtraArgs: extraArgs,
		Output:    output,
	}
}

// Args は録画コマンドに渡す引数を返す
// -n でプレビューウィンドウを抑止する
func (s *ExecStarter) Args(req Request) []string {
	args := []string{
		"-n",
		"-t", strconv.FormatInt(req.Duration.Milliseconds(), 10),
		"-o", req.Path,
	}
	return append(args, s.ExtraArgs...)
}

// Start は録画プロセスを起動し、完了を待たずに戻る
// ctx のキャンセルで録画を中断させないため exec.CommandContext は使わない
func (s *ExecStarter) Start(_ context.Context, req Request) (Handle, error) {
	cmd := exec.Command(s.Binary, s.Args(req)...)
	cmd.Stdout = s.Output
	cmd.Stderr = s.Output
	cmd.SysProcAttr = detachedProcAttr()

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execHandle{cmd: cmd}, nil
}

// CheckBinary は録画コマンドが利用可能かチェックする
func (s *ExecStarter) CheckBinary() error {
	if _, err := exec.LookPath(s.Binary); err != nil {
		return fmt.Errorf("%s が見つかりません。インストールしてください: %w", s.Binary, err)
	}
	return nil
}

type execHandle struct {
	cmd *exec.Cmd
}

func (h *execHandle) Pid() int {
	return h.cmd.Process.Pid
}

func (h *execHandle) Wait() error {
	return h.cmd.Wait()
}
