//go:build unix

package recorder

import "syscall"

// detachedProcAttr は子プロセスを別のプロセスグループで起動する
// 端末の Ctrl-C が録画中のプロセスに届かないようにする
func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
