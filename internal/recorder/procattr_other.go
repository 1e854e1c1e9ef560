//go:build !unix

package recorder

import "syscall"

func detachedProcAttr() *syscall.SysProcAttr {
	return nil
}
