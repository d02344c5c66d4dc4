package model

import (
	"encoding/json"
	"time"
)

// Quiz 针对某个学习目标生成的测验
type Quiz struct {
	BaseModel
	GoalID                 uint    `gorm:"index;type:bigint unsigned;not null" json:"goalId"`
	Title                  string  `gorm:"size:255;not null" json:"title"`
	Description            string  `gorm:"type:text" json:"description"`
	TimeLimitMinutes       int     `gorm:"default:30" json:"timeLimitMinutes"`
	PassingScorePercentage float64 `gorm:"default:70" json:"passingScorePercentage"`
	MaxAttempts            int     `gorm:"default:3" json:"maxAttempts"`
	TotalQuestions         int     `gorm:"default:0" json:"totalQuestions"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// QuizQuestion 测验题目，按 question_order 排序
type QuizQuestion struct {
	BaseModel
	QuizID        uint            `gorm:"index;type:bigint unsigned;not null" json:"quizId"`
	QuestionOrder int             `gorm:"default:0" json:"questionOrder"`
	QuestionText  string          `gorm:"type:text;not null" json:"questionText"`
	Options       json.RawMessage `gorm:"type:json" json:"options"` // 选项文本数组
	CorrectAnswer string          `gorm:"size:512;not null" json:"-"`
	Explanation   string          `gorm:"type:text" json:"explanation"`
	Points        int             `gorm:"default:1" json:"points"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

// QuizAttempt 一次答题记录，次数受 Quiz.MaxAttempts 限制
type QuizAttempt struct {
	BaseModel
	QuizID           uint          `gorm:"index;type:bigint unsigned;not null" json:"quizId"`
	UserID           uint          `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	AttemptNumber    int           `gorm:"default:1" json:"attemptNumber"`
	Status           AttemptStatus `gorm:"size:20;default:'in_progress'" json:"status"`
	TotalQuestions   int           `gorm:"default:0" json:"totalQuestions"`
	CorrectAnswers   int           `gorm:"default:0" json:"correctAnswers"`
	ScorePercentage  float64       `gorm:"default:0" json:"scorePercentage"`
	Passed           bool          `gorm:"default:false" json:"passed"`
	StartedAt        time.Time     `gorm:"autoCreateTime" json:"startedAt"`
	CompletedAt      *time.Time    `json:"completedAt,omitempty"`
	TimeSpentMinutes int           `gorm:"default:0" json:"timeSpentMinutes"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// QuizAnswer 单题作答明细
type QuizAnswer struct {
	BaseModel
	AttemptID        uint   `gorm:"index;type:bigint unsigned;not null" json:"attemptId"`
	QuestionID       uint   `gorm:"index;type:bigint unsigned;not null" json:"questionId"`
	SelectedAnswer   string `gorm:"size:512" json:"selectedAnswer"`
	IsCorrect        bool   `gorm:"default:false" json:"isCorrect"`
	PointsEarned     int    `gorm:"default:0" json:"pointsEarned"`
	TimeSpentSeconds int    `gorm:"default:0" json:"timeSpentSeconds"`
}

func (QuizAnswer) TableName() string {
	return "quiz_answers"
}
