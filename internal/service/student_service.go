package service

import (
	"context"
	"errors"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// StudentInput 管理端创建或更新学生时提交的字段
// swagger:model StudentInput
type StudentInput struct {
	Name     string         `json:"name" binding:"required,max=100"`
	Email    string         `json:"email" binding:"required,email"`
	Password string         `json:"password" binding:"omitempty,min=6,max=72"`
	Role     model.UserRole `json:"role" binding:"omitempty,oneof=student admin"`
	Disabled bool           `json:"disabled"`
}

// StudentService 管理端的学生账号维护
type StudentService struct {
	UserRepo     *repository.UserRepository
	ProgressRepo *repository.ProgressRepository
	QuizRepo     *repository.QuizRepository
	CopilotRepo  *repository.CopilotRepository
	Auth         *AuthService
}

func NewStudentService(userRepo *repository.UserRepository, progressRepo *repository.ProgressRepository,
	quizRepo *repository.QuizRepository, copilotRepo *repository.CopilotRepository, auth *AuthService) *StudentService {
	return &StudentService{
		UserRepo:     userRepo,
		ProgressRepo: progressRepo,
		QuizRepo:     quizRepo,
		CopilotRepo:  copilotRepo,
		Auth:         auth,
	}
}

// List 分页查询，默认只列学生
func (s *StudentService) List(filter repository.UserFilter, page, pageSize int) ([]model.User, int64, error) {
	if filter.Role == "" {
		filter.Role = model.Student
	}
	return s.UserRepo.List(filter, page, pageSize)
}

func (s *StudentService) Get(id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Create 创建账号，必须提供密码
func (s *StudentService) Create(in StudentInput) (*model.User, error) {
	if in.Password == "" {
		return nil, util.ErrPasswordRequired
	}
	user := &model.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Role:     in.Role,
		Disabled: in.Disabled,
	}
	if err := s.Auth.Register(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Update 更新基本信息，Password 非空时一并修改密码
func (s *StudentService) Update(id uint, in StudentInput) (*model.User, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email != user.Email {
		other, err := s.UserRepo.FindByEmail(email)
		if err == nil && other.ID != user.ID {
			return nil, util.ErrEmailRegistered
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	user.Name = in.Name
	user.Email = email
	if in.Role.Valid() {
		user.Role = in.Role
	}
	user.Disabled = in.Disabled

	if in.Password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hashedPassword)
	}

	if err := s.UserRepo.Update(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrEmailRegistered
		}
		return nil, err
	}
	return user, nil
}

// Delete 软删除账号，同时清理进度、测验记录和助手会话
func (s *StudentService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}

	if err := s.ProgressRepo.DeleteByStudent(ctx, id); err != nil {
		return err
	}
	if err := s.QuizRepo.DeleteByStudent(ctx, id); err != nil {
		return err
	}
	if err := s.CopilotRepo.DeleteByStudent(ctx, id); err != nil {
		return err
	}
	if err := s.UserRepo.Delete(id); err != nil {
		return err
	}

	logger.Log.Info("Student deleted", zap.Uint("studentId", id))
	return nil
}

// SetDisabled 禁用/启用账号
func (s *StudentService) SetDisabled(id uint, disabled bool) (*model.User, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	user.Disabled = disabled
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// ResetPassword 生成临时密码并返回明文，只返回这一次
func (s *StudentService) ResetPassword(id uint) (string, error) {
	user, err := s.Get(id)
	if err != nil {
		return "", err
	}

	tempPassword := generateTempPassword()
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	user.Password = string(hashedPassword)
	if err := s.UserRepo.Update(user); err != nil {
		return "", err
	}
	return tempPassword, nil
}

// generateTempPassword 12 位随机临时密码
func generateTempPassword() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
