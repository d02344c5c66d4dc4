package util

import "errors"

var (
	ErrSessionNotFound     = errors.New("会话不存在")
	ErrSessionArchived     = errors.New("会话已归档")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrRoadmapNotFound     = errors.New("roadmap not found")
	ErrRoadmapExists       = errors.New("roadmap already exists for this session")
	ErrGoalNotFound        = errors.New("goal not found")
	ErrQuizNotFound        = errors.New("quiz not found")
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrAttemptNotActive    = errors.New("quiz attempt is not in progress")
	ErrAttemptsExhausted   = errors.New("maximum quiz attempts exceeded")
	ErrQuestionNotFound    = errors.New("graduation question not found")
	ErrProjectExists       = errors.New("graduation project already exists")
	ErrProjectNotFound     = errors.New("graduation project not found")
	ErrAnswerTooShort      = errors.New("answer is below the minimum length")
	ErrAnswerTooLong       = errors.New("answer exceeds the maximum length")
	ErrTurnInProgress      = errors.New("another turn is already running for this session")
	ErrCVNotFound          = errors.New("CV not found")
	ErrUnsupportedCVFormat = errors.New("unsupported CV file format")
)
