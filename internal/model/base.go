package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// swagger:model
type BaseModel struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// swagger:model
type UUIDBase struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

func (b *UUIDBase) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return
}

// ContentKey 定位一个三级知识点页面（主题 / 子主题 / 嵌套主题）
// swagger:model ContentKey
type ContentKey struct {
	Topic       string `gorm:"size:100;not null" json:"topic"`
	Subtopic    string `gorm:"size:100;not null" json:"subtopic"`
	NestedTopic string `gorm:"size:100;not null" json:"nestedTopic"`
}

func (k ContentKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Topic, k.Subtopic, k.NestedTopic)
}
