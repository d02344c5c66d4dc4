package model

import (
	"encoding/json"
	"time"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionArchived  SessionStatus = "archived"
)

// Session 一个用户的学习会话，承载整个路线图生命周期
type Session struct {
	BaseModel
	UserID      uint          `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	Name        string        `gorm:"size:255" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	Status      SessionStatus `gorm:"size:20;default:'active';index" json:"status"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

func (Session) TableName() string {
	return "sessions"
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// SessionMessage 会话内的一轮消息，只追加不修改，按插入顺序回放
type SessionMessage struct {
	BaseModel
	SessionID uint            `gorm:"index;type:bigint unsigned;not null" json:"sessionId"`
	Role      MessageRole     `gorm:"size:16;not null" json:"role"`
	Content   string          `gorm:"type:text" json:"content"`
	ToolCalls json.RawMessage `gorm:"type:json" json:"toolCalls,omitempty"` // 本轮发出的工具调用记录
	Usage     json.RawMessage `gorm:"type:json" json:"usage,omitempty"`     // token 用量统计
}

func (SessionMessage) TableName() string {
	return "session_messages"
}
