//go:build linux || darwin

package storage

import "golang.org/x/sys/unix"

// freeBytes は非特権ユーザーが利用できる空き容量を返す
func freeBytes(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}
