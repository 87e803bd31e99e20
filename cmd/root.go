package cmd

import (
	"fmt"
	"learnhub_backend/internal/config"
	"os"

	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "learnhub",
	Short: "LearnHub 学习平台后端",
	Long: `LearnHub 为分层学习内容提供进度跟踪、测验评分与学习助手服务。
不带子命令时等同于 serve。`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", "configs", "配置文件所在目录（读取其中的 config.yaml）")
	rootCmd.Flags().BoolVar(&forceMigrate, "migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")

	rootCmd.AddCommand(serveCmd, migrateCmd, adminCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("load config from %s: %w", configDir, err)
	}
	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
