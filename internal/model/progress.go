package model

import (
	"time"

	"gorm.io/datatypes"
)

// ProgressSource 记录进度更新的来源
type ProgressSource string

const (
	SourceQuiz    ProgressSource = "quiz"
	SourceCopilot ProgressSource = "copilot"
	SourceClient  ProgressSource = "client"
	SourceAdmin   ProgressSource = "admin"
)

// ProgressRecord 学生在某个页面上的学习目标进度
// 管理员重置时物理删除，因此不使用软删除
// swagger:model ProgressRecord
type ProgressRecord struct {
	ID          uint                                 `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID   uint                                 `gorm:"not null;uniqueIndex:idx_progress_key,priority:1" json:"studentId"`
	Topic       string                               `gorm:"size:100;not null;uniqueIndex:idx_progress_key,priority:2" json:"topic"`
	Subtopic    string                               `gorm:"size:100;not null;uniqueIndex:idx_progress_key,priority:3" json:"subtopic"`
	NestedTopic string                               `gorm:"size:100;not null;uniqueIndex:idx_progress_key,priority:4" json:"nestedTopic"`
	Objectives  datatypes.JSONSlice[ObjectiveStatus] `gorm:"not null" json:"objectives"`
	Grade       int                                  `gorm:"not null;default:0" json:"grade"`
	BestGrade   int                                  `gorm:"not null;default:0" json:"bestGrade"`
	LastSource  ProgressSource                       `gorm:"size:20" json:"lastSource"`
	CreatedAt   time.Time                            `json:"createdAt"`
	UpdatedAt   time.Time                            `json:"updatedAt"`
	Student     *User                                `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

func (ProgressRecord) TableName() string {
	return "progress_records"
}

func (r *ProgressRecord) Key() ContentKey {
	return ContentKey{Topic: r.Topic, Subtopic: r.Subtopic, NestedTopic: r.NestedTopic}
}

func (r *ProgressRecord) SetKey(k ContentKey) {
	r.Topic = k.Topic
	r.Subtopic = k.Subtopic
	r.NestedTopic = k.NestedTopic
}

func (r *ProgressRecord) Vector() ProgressVector {
	return ProgressVector(r.Objectives).Clone()
}

func (r *ProgressRecord) SetVector(v ProgressVector) {
	r.Objectives = datatypes.JSONSlice[ObjectiveStatus](v.Clone())
}

// QuizAttempt 一次测验提交
// swagger:model QuizAttempt
type QuizAttempt struct {
	BaseModel
	StudentID   uint                                 `gorm:"not null;index:idx_quiz_attempt_key,priority:1" json:"studentId"`
	Topic       string                               `gorm:"size:100;not null;index:idx_quiz_attempt_key,priority:2" json:"topic"`
	Subtopic    string                               `gorm:"size:100;not null;index:idx_quiz_attempt_key,priority:3" json:"subtopic"`
	NestedTopic string                               `gorm:"size:100;not null;index:idx_quiz_attempt_key,priority:4" json:"nestedTopic"`
	Correct     int                                  `gorm:"not null" json:"correct"`
	Total       int                                  `gorm:"not null" json:"total"`
	Score       int                                  `gorm:"not null" json:"score"`
	Objectives  datatypes.JSONSlice[ObjectiveStatus] `json:"objectives"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

func (a *QuizAttempt) SetKey(k ContentKey) {
	a.Topic = k.Topic
	a.Subtopic = k.Subtopic
	a.NestedTopic = k.NestedTopic
}
