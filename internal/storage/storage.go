// Package storage はクリップの出力先ディレクトリと空き容量を管理する
package storage

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// エラー定義
var (
	ErrNotDirectory      = errors.New("ディレクトリではありません")
	ErrInsufficientSpace = errors.New("空き容量が不足しています")
)

// Result は容量チェックの結果
type Result string

// Result の定数定義
const (
	ResultOK      Result = "ok"      // 十分な空き容量がある
	ResultEvicted Result = "evicted" // 古いクリップを削除して空き容量を確保した
)

// Clip は保存済みクリップの情報
type Clip struct {
	Name    string    `json:"name"`     // ファイル名
	Path    string    `json:"path"`     // ファイルパス
	Size    int64     `json:"size"`     // ファイルサイズ
	ModTime time.Time `json:"mod_time"` // 更新日時
}

// Manager はクリップの保存先を管理する
type Manager struct {
	dir          string
	minFreeBytes uint64
	freeSpace    func(path string) (uint64, error)
}

// NewManager は新しいManagerを作成する
// minFreeBytes が0の場合、容量チェックは常にOKを返す
func NewManager(dir string, minFreeBytes uint64) *Manager {
	return &Manager{
		dir:          dir,
		minFreeBytes: minFreeBytes,
		freeSpace:    freeBytes,
	}
}

// Dir は出力先ディレクトリを返す
func (m *Manager) Dir() string {
	return m.dir
}

// EnsureOutputDir は出力先ディレクトリを作成し、ディレクトリであることを確認する
func (m *Manager) EnsureOutputDir() error {
	if m.dir == "" {
		return fmt.Errorf("出力ディレクトリが指定されていません")
	}

	if err := os.MkdirAll(m.dir, 0o775); err != nil {
		return fmt.Errorf("出力ディレクトリの作成に失敗: %w", err)
	}

	info, err := os.Stat(m.dir)
	if err != nil {
		return fmt.Errorf("出力ディレクトリの確認に失敗: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", m.dir, ErrNotDirectory)
	}
	return nil
}

// EnsureWritable は出力先に一時ファイルを作成・削除できることを確認する
func (m *Manager) EnsureWritable() error {
	f, err := os.CreateTemp(m.dir, ".write_check-*")
	if err != nil {
		return fmt.Errorf("出力ディレクトリに書き込めません: %w", err)
	}
	name := f.Name()
	_ = f.Close()

	if err := os.Remove(name); err != nil {
		return fmt.Errorf("書き込みチェック用ファイルの削除に失敗: %w", err)
	}
	return nil
}

// CheckStorage は空き容量を確認し、不足していれば古いクリップから削除する
func (m *Manager) CheckStorage() (Result, []string, error) {
	if m.minFreeBytes == 0 {
		return ResultOK, nil, nil
	}

	free, err := m.freeSpace(m.dir)
	if err != nil {
		return "", nil, fmt.Errorf("空き容量の取得に失敗: %w", err)
	}
	if free >= m.minFreeBytes {
		return ResultOK, nil, nil
	}

	clips, err := m.ListClips()
	if err != nil {
		return "", nil, err
	}

	// ListClips は新しい順なので末尾から削除する
	var evicted []string
	for i := len(clips) - 1; i >= 0 && free < m.minFreeBytes; i-- {
		if err := os.Remove(clips[i].Path); err != nil {
			log.Printf("クリップの削除に失敗: %v", err)
			continue
		}
		evicted = append(evicted, clips[i].Path)
		log.Printf("空き容量確保のためクリップを削除しました: %s", clips[i].Name)

		if free, err = m.freeSpace(m.dir); err != nil {
			return "", evicted, fmt.Errorf("空き容量の取得に失敗: %w", err)
		}
	}

	if free < m.minFreeBytes {
		return "", evicted, fmt.Errorf("%w (空き %d バイト, 必要 %d バイト)", ErrInsufficientSpace, free, m.minFreeBytes)
	}
	return ResultEvicted, evicted, nil
}

// ListClips は保存済みクリップを新しい順に返す
func (m *Manager) ListClips() ([]Clip, error) {
	clips := []Clip{}

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return clips, nil
		}
		return nil, fmt.Errorf("ディレクトリの読み取りに失敗: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isClip(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Printf("ファイル情報の取得に失敗: %v", err)
			continue
		}
		clips = append(clips, Clip{
			Name:    entry.Name(),
			Path:    filepath.Join(m.dir, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	// ファイル名の時刻部分は辞書順で時系列順になる
	sort.Slice(clips, func(i, j int) bool {
		return clips[i].Name > clips[j].Name
	})
	return clips, nil
}

func isClip(name string) bool {
	return strings.HasPrefix(name, "clip-") && filepath.Ext(name) == ".mp4"
}
