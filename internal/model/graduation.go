package model

import (
	"encoding/json"
	"time"
)

type QuestionDifficulty string

const (
	DifficultyIntroductory QuestionDifficulty = "introductory"
	DifficultyIntermediate QuestionDifficulty = "intermediate"
	DifficultyAdvanced     QuestionDifficulty = "advanced"
)

// GraduationProject 毕业项目考核，每个路线图最多一个
type GraduationProject struct {
	BaseModel
	RoadmapID   uint   `gorm:"uniqueIndex;type:bigint unsigned;not null" json:"roadmapId"`
	SessionID   uint   `gorm:"index;type:bigint unsigned;not null" json:"sessionId"`
	Title       string `gorm:"size:255" json:"title"`
	Description string `gorm:"type:text" json:"description"`
}

func (GraduationProject) TableName() string {
	return "graduation_projects"
}

// GraduationQuestion 毕业项目开放题，question_slug 为稳定的 kebab-case 标识
type GraduationQuestion struct {
	BaseModel
	ProjectID            uint               `gorm:"index;type:bigint unsigned;not null" json:"projectId"`
	SessionID            uint               `gorm:"index;type:bigint unsigned;not null" json:"sessionId"`
	QuestionSlug         string             `gorm:"size:128;index;not null" json:"questionSlug"`
	Prompt               string             `gorm:"type:text;not null" json:"prompt"`
	Rationale            string             `gorm:"type:text" json:"rationale"`
	GoalsCovered         json.RawMessage    `gorm:"type:json" json:"goalsCovered"`     // 目标ID数组
	MaterialsCovered     json.RawMessage    `gorm:"type:json" json:"materialsCovered"` // 材料ID数组
	ExpectedCompetencies json.RawMessage    `gorm:"type:json" json:"expectedCompetencies"`
	Difficulty           QuestionDifficulty `gorm:"size:20;default:'intermediate'" json:"difficulty"`
	EstimatedTimeMinutes int                `gorm:"default:20" json:"estimatedTimeMinutes"`
	EvaluationRubric     json.RawMessage    `gorm:"type:json" json:"evaluationRubric"` // 3-5 条评分标准
	AnswerMinChars       int                `gorm:"default:500" json:"answerMinChars"`
	AnswerMaxChars       int                `gorm:"default:2500" json:"answerMaxChars"`
	RequiresCitations    bool               `gorm:"default:false" json:"requiresCitations"`
}

func (GraduationQuestion) TableName() string {
	return "graduation_questions"
}

// GraduationSubmission 每题一条作答，附 AI 评估结果
type GraduationSubmission struct {
	BaseModel
	SessionID          uint            `gorm:"index;type:bigint unsigned;not null" json:"sessionId"`
	QuestionID         uint            `gorm:"index;type:bigint unsigned;not null" json:"questionId"`
	AnswerText         string          `gorm:"type:longtext;not null" json:"answerText"`
	EvaluationScore    *float64        `json:"evaluationScore,omitempty"` // [0,1]
	EvaluationFeedback string          `gorm:"type:text" json:"evaluationFeedback"`
	RubricScores       json.RawMessage `gorm:"type:json" json:"rubricScores,omitempty"`
	EvaluationError    string          `gorm:"type:text" json:"evaluationError,omitempty"`
	EvaluatedAt        *time.Time      `json:"evaluatedAt,omitempty"`
}

func (GraduationSubmission) TableName() string {
	return "graduation_submissions"
}
