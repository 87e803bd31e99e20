package model

// CopilotRole 助手会话中消息的发送方
type CopilotRole string

const (
	CopilotRoleUser      CopilotRole = "user"
	CopilotRoleAssistant CopilotRole = "assistant"
)

// CopilotMessage 学习助手的一条会话消息
// swagger:model CopilotMessage
type CopilotMessage struct {
	UUIDBase
	SessionID   string      `gorm:"type:varchar(36);index;not null" json:"sessionId"`
	StudentID   uint        `gorm:"index;not null" json:"studentId"`
	Topic       string      `gorm:"size:100" json:"topic"`
	Subtopic    string      `gorm:"size:100" json:"subtopic"`
	NestedTopic string      `gorm:"size:100" json:"nestedTopic"`
	Role        CopilotRole `gorm:"size:20;not null" json:"role"`
	Content     string      `gorm:"type:text;not null" json:"content"`
}

func (CopilotMessage) TableName() string {
	return "copilot_messages"
}

func (m *CopilotMessage) SetKey(k ContentKey) {
	m.Topic = k.Topic
	m.Subtopic = k.Subtopic
	m.NestedTopic = k.NestedTopic
}
