// Package version はビルド時に埋め込まれるバージョン情報を保持する
package version

import "fmt"

// ldflags で上書きされる
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Full はバージョン情報を1行で返す
func Full() string {
	return fmt.Sprintf("camtrigger %s, commit %s, built at %s", Version, Commit, Date)
}
