package trigger

import "time"

// Clock は現在時刻を返す
type Clock interface {
	Now() time.Time
}

// SystemClock は time.Now を使う Clock 実装
// time.Now の戻り値は単調時計の読みを含むため、Sub による差分は壁時計の変更の影響を受けない
type SystemClock struct{}

// Now は現在時刻を返す
func (SystemClock) Now() time.Time {
	return time.Now()
}
