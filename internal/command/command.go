// Package command は標準入力から受け取る1行のコマンドを解釈する
package command

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind はコマンドの種類
type Kind int

// Kind の定数定義
const (
	KindNone    Kind = iota // 空行（何もしない）
	KindSave                // 録画を開始する
	KindStatus              // 録画中かどうかを表示する
	KindQuit                // 終了する
	KindHelp                // コマンド一覧を表示する
	KindUnknown             // 不明なコマンド
)

// String はコマンド種別の名前を返す
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSave:
		return "save"
	case KindStatus:
		return "status"
	case KindQuit:
		return "quit"
	case KindHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Usage は利用可能なコマンドの一覧
const Usage = "save [ms] | status | quit"

// Command は解釈済みのコマンド
type Command struct {
	Kind Kind
	// Duration は save の録画時間の上書き値。0 の場合は既定値を使う
	Duration time.Duration
	// Text は前後の空白を除いた入力行
	Text string
}

// Parse は1行の入力をコマンドに分類する
// キーワードは大文字小文字を区別した前方一致で判定する
func Parse(line string) Command {
	text := strings.TrimSpace(line)
	cmd := Command{Kind: KindUnknown, Text: text}

	switch {
	case text == "":
		cmd.Kind = KindNone
	case strings.HasPrefix(text, "quit"), strings.HasPrefix(text, "exit"):
		cmd.Kind = KindQuit
	case strings.HasPrefix(text, "status"):
		cmd.Kind = KindStatus
	case strings.HasPrefix(text, "save"):
		cmd.Kind = KindSave
		cmd.Duration = parseDuration(text[len("save"):])
	case strings.HasPrefix(text, "help"), strings.HasPrefix(text, "?"):
		cmd.Kind = KindHelp
	}

	return cmd
}

// parseDuration は save の引数をミリ秒として解釈する
// 正の整数でなければ 0 を返し、呼び出し側で既定値を使わせる
// time.Duration に収まらない値も解釈できないものとして扱う
func parseDuration(arg string) time.Duration {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return 0
	}

	ms, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || ms <= 0 || ms > maxDurationMS {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// maxDurationMS は time.Duration で表せる最大のミリ秒数
const maxDurationMS = math.MaxInt64 / int64(time.Millisecond)
