package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 既定値
const (
	DefaultDurationMS = 10000
	DefaultOutputDir  = "/mnt/ssd/clips"
	DefaultMinGapMS   = 500
	DefaultRecorder   = "rpicam-vid"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Recording RecordingConfig `yaml:"recording" toml:"recording"`
	Storage   StorageConfig   `yaml:"storage" toml:"storage"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Verbose   bool            `yaml:"verbose" toml:"verbose"` // 詳細ログ
}

// RecordingConfig は録画の設定
type RecordingConfig struct {
	DurationMS int      `yaml:"duration_ms" toml:"duration_ms" validate:"gt=0"`  // 既定の録画時間 (ms)
	MinGapMS   int      `yaml:"min_gap_ms" toml:"min_gap_ms" validate:"gte=0"`   // トリガーの最小間隔 (ms)
	Binary     string   `yaml:"binary" toml:"binary" validate:"required"`        // 録画コマンド
	ExtraArgs  []string `yaml:"extra_args" toml:"extra_args"`                    // 録画コマンドへの追加引数
}

// StorageConfig は保存先の設定
type StorageConfig struct {
	OutputDir string `yaml:"output_dir" toml:"output_dir" validate:"required"` // クリップの保存先
	MinFreeMB int    `yaml:"min_free_mb" toml:"min_free_mb" validate:"gte=0"`  // 録画前に確保する空き容量 (0で無効)
}

// ServerConfig はHTTP制御サーバーの設定
type ServerConfig struct {
	Addr            string        `yaml:"addr" toml:"addr" validate:"omitempty,hostname_port"` // 空の場合は起動しない
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout" validate:"gte=0"`
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Recording: RecordingConfig{
			DurationMS: DefaultDurationMS,
			MinGapMS:   DefaultMinGapMS,
			Binary:     DefaultRecorder,
		},
		Storage: StorageConfig{
			OutputDir: DefaultOutputDir,
		},
		Server: ServerConfig{
			ShutdownTimeout: 5 * time.Second,
		},
	}
}

// Load は設定を読み込む
// 優先順位: デフォルト < 設定ファイル < 環境変数（.env を含む）
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// .env は存在しなくてもよい
	_ = godotenv.Load()
	applyEnvOverrides(cfg)

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// loadFile は拡張子に応じて YAML または TOML の設定ファイルを読み込む
func loadFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("設定ファイルの読み込みに失敗 (%s): %w", path, err)
		}
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("設定ファイルの読み込みに失敗 (%s): %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("設定ファイルの解析に失敗 (%s): %w", path, err)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Recording.DurationMS = getEnvAsIntOrDefault("CAMTRIGGER_DURATION_MS", cfg.Recording.DurationMS)
	cfg.Recording.MinGapMS = getEnvAsIntOrDefault("CAMTRIGGER_MIN_GAP_MS", cfg.Recording.MinGapMS)
	cfg.Recording.Binary = getEnvOrDefault("CAMTRIGGER_RECORDER", cfg.Recording.Binary)
	cfg.Storage.OutputDir = expandTilde(getEnvOrDefault("CAMTRIGGER_OUTDIR", cfg.Storage.OutputDir))
	cfg.Storage.MinFreeMB = getEnvAsIntOrDefault("CAMTRIGGER_MIN_FREE_MB", cfg.Storage.MinFreeMB)
	cfg.Server.Addr = getEnvOrDefault("CAMTRIGGER_HTTP_ADDR", cfg.Server.Addr)
	if v := os.Getenv("CAMTRIGGER_VERBOSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Verbose = b
		}
	}
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	return nil
}

// Duration は既定の録画時間を返す
func (c *Config) Duration() time.Duration {
	return time.Duration(c.Recording.DurationMS) * time.Millisecond
}

// MinGap はトリガーの最小間隔を返す
func (c *Config) MinGap() time.Duration {
	return time.Duration(c.Recording.MinGapMS) * time.Millisecond
}

// MinFreeBytes は録画前に確保する空き容量をバイト単位で返す
func (c *Config) MinFreeBytes() uint64 {
	return uint64(c.Storage.MinFreeMB) * 1024 * 1024
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// expandTilde は先頭の ~/ をホームディレクトリに展開する
func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
