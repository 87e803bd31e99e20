package cmd

import (
	"errors"
	"fmt"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/service"
	"learnhub_backend/pkg/database"
	"learnhub_backend/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	adminEmail    string
	adminName     string
	adminPassword string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "管理员账号维护",
}

// 首个管理员只能通过命令行创建，之后可在管理端维护学生账号
var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "创建管理员账号",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(adminPassword) < 6 {
			return errors.New("password must be at least 6 characters")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger.InitLogger(cfg)
		defer logger.Sync()

		db, err := database.InitDB(&cfg.Database, true)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		auth := service.NewAuthService(repository.NewUserRepository(db), cfg)
		user := &model.User{
			Name:     adminName,
			Email:    adminEmail,
			Password: adminPassword,
			Role:     model.Admin,
		}
		if err := auth.Register(user); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "管理员已创建: id=%d email=%s\n", user.ID, user.Email)
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "登录邮箱")
	adminCreateCmd.Flags().StringVar(&adminName, "name", "Administrator", "显示名称")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "初始密码（至少 6 位）")
	adminCreateCmd.MarkFlagRequired("email")
	adminCreateCmd.MarkFlagRequired("password")

	adminCmd.AddCommand(adminCreateCmd)
}
