//go:build !linux && !darwin

package storage

import "errors"

func freeBytes(string) (uint64, error) {
	return 0, errors.New("このプラットフォームでは空き容量を取得できません")
}
