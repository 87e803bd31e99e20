package cmd

import (
	"learnhub_backend/internal/app"
	"learnhub_backend/pkg/logger"

	"github.com/spf13/cobra"
)

var forceMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.ForceMigrate = forceMigrate

		application, err := app.NewApp(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		return application.Run()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&forceMigrate, "migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
}
