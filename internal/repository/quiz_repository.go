package repository

import (
	"context"
	"database/sql"
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) CreateAttempt(ctx context.Context, attempt *model.QuizAttempt) error {
	return r.DB.WithContext(ctx).Create(attempt).Error
}

func (r *QuizRepository) ListAttempts(ctx context.Context, studentID uint, key model.ContentKey, limit int) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND topic = ? AND subtopic = ? AND nested_topic = ?",
			studentID, key.Topic, key.Subtopic, key.NestedTopic).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

// BestScore 返回该页面测验的最高分，没有提交记录时返回 nil
func (r *QuizRepository) BestScore(ctx context.Context, studentID uint, key model.ContentKey) (*int, error) {
	var best sql.NullInt64
	err := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("student_id = ? AND topic = ? AND subtopic = ? AND nested_topic = ?",
			studentID, key.Topic, key.Subtopic, key.NestedTopic).
		Select("MAX(score)").
		Scan(&best).Error
	if err != nil || !best.Valid {
		return nil, err
	}
	score := int(best.Int64)
	return &score, nil
}

func (r *QuizRepository) DeleteByStudent(ctx context.Context, studentID uint) error {
	return r.DB.WithContext(ctx).Where("student_id = ?", studentID).Delete(&model.QuizAttempt{}).Error
}
