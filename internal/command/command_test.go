package command

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		line     string
		kind     Kind
		duration time.Duration
		text     string
	}{
		{"空行", "", KindNone, 0, ""},
		{"空白のみ", " \t\r\n", KindNone, 0, ""},
		{"save", "save", KindSave, 0, "save"},
		{"save 前後の空白", "  save\n", KindSave, 0, "save"},
		{"save 時間指定", "save 2500", KindSave, 2500 * time.Millisecond, "save 2500"},
		{"save タブ区切り", "save\t15000", KindSave, 15 * time.Second, "save\t15000"},
		{"save 数値でない", "save abc", KindSave, 0, "save abc"},
		{"save 負の値", "save -5", KindSave, 0, "save -5"},
		{"save ゼロ", "save 0", KindSave, 0, "save 0"},
		{"save 最小値", "save 1", KindSave, time.Millisecond, "save 1"},
		{"save 表現可能な最大値", "save 9223372036854", KindSave, 9223372036854 * time.Millisecond, "save 9223372036854"},
		{"save 桁あふれで負になる値", "save 9223372036855", KindSave, 0, "save 9223372036855"},
		{"save 桁あふれで小さな正になる値", "save 18446744073710", KindSave, 0, "save 18446744073710"},
		{"save int64 を超える値", "save 99999999999999999999", KindSave, 0, "save 99999999999999999999"},
		{"status", "status", KindStatus, 0, "status"},
		{"quit", "quit", KindQuit, 0, "quit"},
		{"exit", "exit", KindQuit, 0, "exit"},
		{"quit 前方一致", "quitnow", KindQuit, 0, "quitnow"},
		{"help", "help", KindHelp, 0, "help"},
		{"疑問符", "?", KindHelp, 0, "?"},
		{"大文字は不明", "SAVE", KindUnknown, 0, "SAVE"},
		{"不明なコマンド", "foobar", KindUnknown, 0, "foobar"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := Parse(tc.line)
			if cmd.Kind != tc.kind {
				t.Errorf("種別が一致しません: got %s, want %s", cmd.Kind, tc.kind)
			}
			if cmd.Duration != tc.duration {
				t.Errorf("録画時間が一致しません: got %v, want %v", cmd.Duration, tc.duration)
			}
			if cmd.Text != tc.text {
				t.Errorf("テキストが一致しません: got %q, want %q", cmd.Text, tc.text)
			}
		})
	}
}
