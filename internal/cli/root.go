package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"camtrigger/internal/config"
	"camtrigger/internal/output"
	"camtrigger/internal/recorder"
	"camtrigger/internal/server"
	"camtrigger/internal/storage"
	"camtrigger/internal/supervisor"
	"camtrigger/internal/trigger"
	"camtrigger/internal/version"
)

// flags はコマンドライン引数の値を保持する
type flags struct {
	configPath string
	durationMS int
	outDir     string
	minGapMS   int
	binary     string
	httpAddr   string
	minFreeMB  int
	verbose    bool
}

// NewRootCmd はルートコマンドを作成する
func NewRootCmd() *cobra.Command {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:   "camtrigger",
		Short: "Trigger fixed-length camera clips from stdin commands",
		Long: "Reads commands from stdin (save [ms] | status | quit) and launches one " +
			"camera recorder process per accepted trigger, with debounce and single-flight guards.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "config file (.yaml or .toml)")
	pf.IntVar(&f.durationMS, "duration", config.DefaultDurationMS, "default clip length in milliseconds")
	pf.StringVar(&f.outDir, "outdir", config.DefaultOutputDir, "directory clips are written to")
	pf.IntVar(&f.minGapMS, "min-gap", config.DefaultMinGapMS, "minimum gap between accepted triggers in milliseconds")
	pf.StringVar(&f.binary, "recorder", config.DefaultRecorder, "recorder binary")
	pf.StringVar(&f.httpAddr, "http", "", "address for the HTTP control server (disabled when empty)")
	pf.IntVar(&f.minFreeMB, "min-free-mb", 0, "free space to keep in the output directory in MB (0 disables)")
	pf.BoolVar(&f.verbose, "verbose", false, "verbose logging")

	rootCmd.AddCommand(NewDoctorCmd(f))
	rootCmd.AddCommand(NewListCmd(f))

	return rootCmd
}

// loadConfig は設定を読み込み、指定されたフラグで上書きする
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	fs := cmd.Flags()
	if fs.Changed("duration") {
		cfg.Recording.DurationMS = f.durationMS
	}
	if fs.Changed("outdir") {
		cfg.Storage.OutputDir = f.outDir
	}
	if fs.Changed("min-gap") {
		cfg.Recording.MinGapMS = f.minGapMS
	}
	if fs.Changed("recorder") {
		cfg.Recording.Binary = f.binary
	}
	if fs.Changed("http") {
		cfg.Server.Addr = f.httpAddr
	}
	if fs.Changed("min-free-mb") {
		cfg.Storage.MinFreeMB = f.minFreeMB
	}
	if fs.Changed("verbose") {
		cfg.Verbose = f.verbose
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}
	return cfg, nil
}

// run は録画トリガーを起動し、終了処理が完了するまでブロックする
func run(cmd *cobra.Command, cfg *config.Config) error {
	store := storage.NewManager(cfg.Storage.OutputDir, cfg.MinFreeBytes())
	if err := store.EnsureOutputDir(); err != nil {
		return err
	}
	if err := store.EnsureWritable(); err != nil {
		return err
	}

	var logOutput io.Writer
	if cfg.Verbose {
		logOutput = cmd.ErrOrStderr()
	}
	starter := recorder.NewExecStarter(cfg.Recording.Binary, cfg.Recording.ExtraArgs, logOutput)
	if err := starter.CheckBinary(); err != nil {
		log.Printf("警告: %v", err)
	}

	var hub *server.Hub
	var sink recorder.Sink = recorder.NopSink{}
	if cfg.Server.Addr != "" {
		hub = server.NewHub()
		sink = hub
	}

	launcher := recorder.NewLauncher(starter, cfg.Storage.OutputDir, cfg.Verbose, func(exit recorder.Exit) {
		rec := exit.Recording
		event := recorder.Event{
			Type:      recorder.EventFinished,
			Recording: &rec,
			ExitCode:  exit.ExitCode,
			Time:      exit.EndedAt,
		}
		if exit.Err != nil {
			event.Error = exit.Err.Error()
		}
		sink.Publish(event)
	})

	sup := supervisor.New(supervisor.Options{
		DefaultDuration: cfg.Duration(),
		Verbose:         cfg.Verbose,
		Gate:            trigger.NewGate(cfg.MinGap(), nil),
		Recorder:        launcher,
		Storage:         store,
		Sink:            sink,
		Output:          output.NewFormatter(cmd.OutOrStdout()),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("録画トリガーを起動しました (録画時間=%dms, 最小間隔=%dms, 保存先=%s)",
		cfg.Recording.DurationMS, cfg.Recording.MinGapMS, cfg.Storage.OutputDir)

	var wg sync.WaitGroup
	serverCtx, cancelServer := context.WithCancel(ctx)
	defer cancelServer()

	if hub != nil {
		if !cfg.Verbose {
			gin.SetMode(gin.ReleaseMode)
		}
		srv := server.New(cfg.Server, sup, store, hub)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Start(serverCtx); err != nil {
				log.Printf("エラー: %v", err)
			}
		}()
	}

	err := sup.Run(ctx, cmd.InOrStdin())

	cancelServer()
	wg.Wait()

	return err
}
