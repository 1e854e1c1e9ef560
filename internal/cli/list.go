package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"camtrigger/internal/output"
	"camtrigger/internal/storage"
)

// NewListCmd は保存済みクリップを一覧表示するコマンドを作成する
func NewListCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded clips, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}

			clips, err := storage.NewManager(cfg.Storage.OutputDir, 0).ListClips()
			if err != nil {
				return err
			}

			out := output.NewFormatter(cmd.OutOrStdout())
			if len(clips) == 0 {
				out.Info("No clips found.")
				return nil
			}
			for _, c := range clips {
				out.Info(fmt.Sprintf("%s  %s  %d bytes", c.ModTime.Format("2006-01-02 15:04:05"), c.Name, c.Size))
			}
			return nil
		},
	}
}
