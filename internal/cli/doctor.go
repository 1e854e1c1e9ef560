package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"camtrigger/internal/output"
	"camtrigger/internal/recorder"
	"camtrigger/internal/storage"
)

// NewDoctorCmd は実行環境を確認するコマンドを作成する
func NewDoctorCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}

			out := output.NewFormatter(cmd.OutOrStdout())
			ok := true

			starter := recorder.NewExecStarter(cfg.Recording.Binary, nil, nil)
			if err := starter.CheckBinary(); err != nil {
				out.Error(err.Error())
				ok = false
			} else {
				out.Success(fmt.Sprintf("%s: installed", cfg.Recording.Binary))
			}

			store := storage.NewManager(cfg.Storage.OutputDir, cfg.MinFreeBytes())
			if err := store.EnsureOutputDir(); err != nil {
				out.Error(err.Error())
				ok = false
			} else if err := store.EnsureWritable(); err != nil {
				out.Error(err.Error())
				ok = false
			} else {
				out.Success(fmt.Sprintf("%s: writable", store.Dir()))
			}

			if ok {
				out.Success("All prerequisites met. Ready to record!")
			} else {
				out.Warning("Some prerequisites are missing.")
			}
			return nil
		},
	}
}
