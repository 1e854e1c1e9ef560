// Package output はコマンド応答を利用者向けに整形して出力する
package output

import (
	"fmt"
	"io"
	"sync"
)

// Level は応答の種類
type Level int

// Level の定数定義
const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// Formatter は応答を1行ずつ書き出す
type Formatter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewFormatter は新しいFormatterを作成する
func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

// Print は指定した種類で1行出力する
func (f *Formatter) Print(level Level, msg string) {
	if msg == "" {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch level {
	case LevelSuccess:
		fmt.Fprintf(f.w, "✅ %s\n", msg)
	case LevelWarning:
		fmt.Fprintf(f.w, "⚠️  %s\n", msg)
	case LevelError:
		fmt.Fprintf(f.w, "❌ %s\n", msg)
	default:
		fmt.Fprintf(f.w, "%s\n", msg)
	}
}

// Info は通常のメッセージを出力する
func (f *Formatter) Info(msg string) {
	f.Print(LevelInfo, msg)
}

// Success は成功メッセージを出力する
func (f *Formatter) Success(msg string) {
	f.Print(LevelSuccess, msg)
}

// Warning は警告メッセージを出力する
func (f *Formatter) Warning(msg string) {
	f.Print(LevelWarning, msg)
}

// Error はエラーメッセージを出力する
func (f *Formatter) Error(msg string) {
	f.Print(LevelError, msg)
}
