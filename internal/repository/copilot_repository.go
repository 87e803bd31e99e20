package repository

import (
	"context"
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
)

type CopilotRepository struct {
	DB *gorm.DB
}

func NewCopilotRepository(db *gorm.DB) *CopilotRepository {
	return &CopilotRepository{DB: db}
}

// AppendTurn 在同一事务中写入一问一答
func (r *CopilotRepository) AppendTurn(ctx context.Context, messages ...*model.CopilotMessage) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range messages {
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// History 返回会话最近 limit 条消息，按时间正序
func (r *CopilotRepository) History(ctx context.Context, sessionID string, studentID uint, limit int) ([]model.CopilotMessage, error) {
	var messages []model.CopilotMessage
	err := r.DB.WithContext(ctx).
		Where("session_id = ? AND student_id = ?", sessionID, studentID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *CopilotRepository) DeleteByStudent(ctx context.Context, studentID uint) error {
	return r.DB.WithContext(ctx).Where("student_id = ?", studentID).Delete(&model.CopilotMessage{}).Error
}
