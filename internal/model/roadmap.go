package model

import "encoding/json"

type RoadmapStatus string

const (
	RoadmapDraft      RoadmapStatus = "draft"
	RoadmapInProgress RoadmapStatus = "in_progress"
	RoadmapCompleted  RoadmapStatus = "completed"
	RoadmapArchived   RoadmapStatus = "archived"
)

type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

// Roadmap 学习路线图，与会话一对一
type Roadmap struct {
	BaseModel
	SessionID               uint          `gorm:"uniqueIndex;type:bigint unsigned;not null" json:"sessionId"`
	UserRequest             string        `gorm:"type:text" json:"userRequest"` // 触发创建时的原始用户请求
	TotalEstimatedWeeks     int           `gorm:"default:0" json:"totalEstimatedWeeks"`
	GraduationProjectTitle  string        `gorm:"size:255" json:"graduationProjectTitle"`
	GraduationProject       string        `gorm:"type:text" json:"graduationProject"`
	Status                  RoadmapStatus `gorm:"size:20;default:'draft';index" json:"status"`
}

func (Roadmap) TableName() string {
	return "roadmaps"
}

// RoadmapGoal 路线图下的学习目标，goal_number 在同一路线图内唯一且决定展示顺序
type RoadmapGoal struct {
	BaseModel
	RoadmapID      uint            `gorm:"index;uniqueIndex:idx_roadmap_goal_number;type:bigint unsigned;not null" json:"roadmapId"`
	GoalNumber     int             `gorm:"uniqueIndex:idx_roadmap_goal_number;not null" json:"goalNumber"`
	Title          string          `gorm:"size:255;not null" json:"title"`
	Description    string          `gorm:"type:text" json:"description"`
	Priority       int             `gorm:"default:3" json:"priority"` // 1-5，数值越小优先级越高
	SkillLevel     SkillLevel      `gorm:"size:20;default:'beginner'" json:"skillLevel"`
	EstimatedHours int             `gorm:"default:0" json:"estimatedHours"`
	ActualHours    int             `gorm:"default:0" json:"actualHours"`
	Completion     float64         `gorm:"default:0" json:"completion"` // 0-100，正常操作下单调不减
	Prerequisites  json.RawMessage `gorm:"type:json" json:"prerequisites,omitempty"`
	IsCompleted    bool            `gorm:"default:false" json:"isCompleted"`
}

func (RoadmapGoal) TableName() string {
	return "roadmap_goals"
}
