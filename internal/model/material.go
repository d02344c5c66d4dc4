package model

// LearningMaterial 针对某个学习目标生成的学习材料
type LearningMaterial struct {
	BaseModel
	GoalID               uint       `gorm:"index;type:bigint unsigned;not null" json:"goalId"`
	Title                string     `gorm:"size:255;not null" json:"title"`
	MaterialType         string     `gorm:"size:50;default:'lesson'" json:"materialType"` // article / video / tutorial / lesson
	Description          string     `gorm:"type:text" json:"description"`
	Content              string     `gorm:"type:longtext" json:"content"` // Markdown 正文
	EstimatedTimeMinutes int        `gorm:"default:0" json:"estimatedTimeMinutes"`
	DifficultyLevel      SkillLevel `gorm:"size:20;default:'intermediate'" json:"difficultyLevel"`
	IsCompleted          bool       `gorm:"default:false" json:"isCompleted"`
	UserRating           *int       `json:"userRating,omitempty"` // 1-5，可为空
}

func (LearningMaterial) TableName() string {
	return "learning_materials"
}
