package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"roadmap_ai_backend/pkg/logger"
	"roadmap_ai_backend/pkg/monitoring"
)

// persistenceFailure 重试一次后仍写库失败
type persistenceFailure struct {
	err error
}

func (e *persistenceFailure) Error() string { return e.err.Error() }
func (e *persistenceFailure) Unwrap() error { return e.err }

// persistRetry 持久化失败立即重试一次，无退避。
// fn 内部必须自行重建待写入的对象，保证重试时是干净状态
func persistRetry(fn func() error) error {
	if err := fn(); err != nil {
		logger.Log.Warn("持久化失败，重试一次", zap.Error(err))
		if err := fn(); err != nil {
			return &persistenceFailure{err: err}
		}
	}
	return nil
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	if f, ok := args[key].(float64); ok {
		return int(f)
	}
	return fallback
}

// ToolResult 一次工具调用的结果，作为 tool_result 帧下发
type ToolResult struct {
	Tool    ToolName    `json:"tool"`
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ToolError  `json:"error,omitempty"`
}

// ToolHandler 单个工具的执行逻辑，返回给用户看的消息与结果载荷
type ToolHandler func(ctx context.Context, sessionID, userID uint, args map[string]interface{}) (string, interface{}, error)

// ToolDispatcher 校验并执行模型提出的工具调用。
// 工具表在构造时固定，按名字查表分发
type ToolDispatcher struct {
	handlers map[ToolName]ToolHandler
}

func NewToolDispatcher(
	roadmapSvc *RoadmapService,
	materialSvc *MaterialService,
	quizSvc *QuizService,
	gradSvc *GraduationService,
) *ToolDispatcher {
	d := &ToolDispatcher{handlers: make(map[ToolName]ToolHandler)}

	d.handlers[ToolCreateRoadmapSkeleton] = func(ctx context.Context, sessionID, userID uint, args map[string]interface{}) (string, interface{}, error) {
		userRequest, _ := args["userRequest"].(string)
		userExperience, _ := args["userExperience"].(string)
		roadmap, goals, err := roadmapSvc.CreateSkeleton(ctx, sessionID, userRequest, userExperience)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("已生成包含 %d 个目标的路线图骨架，确认后即可开始学习", len(goals)),
			map[string]interface{}{"roadmap": roadmap, "goals": goals}, nil
	}

	d.handlers[ToolEditRoadmapSkeleton] = func(ctx context.Context, sessionID, userID uint, args map[string]interface{}) (string, interface{}, error) {
		editRequest, _ := args["editRequest"].(string)
		roadmap, goals, err := roadmapSvc.EditSkeleton(ctx, sessionID, editRequest)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("路线图骨架已更新，现在共 %d 个目标", len(goals)),
			map[string]interface{}{"roadmap": roadmap, "goals": goals}, nil
	}

	d.handlers[ToolCreateLearningMaterial] = func(ctx context.Context, sessionID, userID uint, args map[string]interface{}) (string, interface{}, error) {
		goalNumber := intArg(args, "goalNumber", 0)
		materialRequest, _ := args["materialRequest"].(string)
		material, err := materialSvc.CreateForGoal(ctx, sessionID, goalNumber, materialRequest)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("已为目标 %d 生成学习材料《%s》", goalNumber, material.Title),
			map[string]interface{}{"material": material}, nil
	}

	d.handlers[ToolCreateQuizForGoal] = func(ctx context.Context, sessionID, userID uint, args map[string]interface{}) (string, interface{}, error) {
		goalNumber := intArg(args, "goalNumber", 0)
		questionCount := intArg(args, "questionCount", 5)
		quiz, err := quizSvc.CreateForGoal(ctx, sessionID, goalNumber, questionCount)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("已为目标 %d 生成测验《%s》，共 %d 题", goalNumber, quiz.Title, quiz.TotalQuestions),
			map[string]interface{}{"quiz": quiz}, nil
	}

	d.handlers[ToolCreateGraduationProject] = func(ctx context.Context, sessionID, userID uint, args map[string]interface{}) (string, interface{}, error) {
		project, questions, err := gradSvc.CreateProject(ctx, sessionID)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("毕业项目《%s》已就绪，共 %d 道考核题", project.Title, len(questions)),
			map[string]interface{}{"project": project, "questions": questions}, nil
	}

	d.handlers[ToolEvaluateGraduationAnswer] = func(ctx context.Context, sessionID, userID uint, args map[string]interface{}) (string, interface{}, error) {
		questionSlug, _ := args["questionSlug"].(string)
		submission, err := gradSvc.EvaluateAnswer(ctx, sessionID, questionSlug)
		if err != nil {
			return "", nil, err
		}
		message := fmt.Sprintf("题目 %s 已批改", questionSlug)
		if submission.EvaluationScore != nil {
			message = fmt.Sprintf("题目 %s 已批改，得分 %.2f", questionSlug, *submission.EvaluationScore)
		}
		return message, map[string]interface{}{"submission": submission}, nil
	}

	return d
}

// Dispatch 按顺序执行：阶段校验 → 参数校验 → 业务执行。
// 任何失败都只影响这一次调用，以带错误的 ToolResult 返回
func (d *ToolDispatcher) Dispatch(ctx context.Context, sessionID, userID uint, phase Phase, eligible []ToolName, name ToolName, args map[string]interface{}) ToolResult {
	result := ToolResult{Tool: name}

	if !toolEligible(name, eligible) {
		result.Error = NewPhaseViolation(name, phase)
		result.Message = result.Error.Message
		monitoring.ToolExecutions.WithLabelValues(string(name), "phase_violation").Inc()
		return result
	}

	if verr := ValidateArgs(name, args); verr != nil {
		result.Error = verr
		result.Message = verr.Message
		monitoring.ToolExecutions.WithLabelValues(string(name), "invalid_args").Inc()
		return result
	}

	handler, ok := d.handlers[name]
	if !ok {
		result.Error = NewSchemaValidationError("", fmt.Sprintf("工具 %s 没有对应的执行逻辑", name))
		result.Message = result.Error.Message
		return result
	}

	message, data, err := handler(ctx, sessionID, userID, args)
	if err != nil {
		result.Error = classifyToolError(err)
		result.Message = result.Error.Message
		monitoring.ToolExecutions.WithLabelValues(string(name), "failed").Inc()
		logger.Log.Warn("工具执行失败",
			zap.String("tool", string(name)),
			zap.Uint("session_id", sessionID),
			zap.String("code", result.Error.Code),
			zap.Error(err))
		return result
	}

	result.Success = true
	result.Message = message
	result.Data = data
	monitoring.ToolExecutions.WithLabelValues(string(name), "ok").Inc()
	return result
}

func toolEligible(name ToolName, eligible []ToolName) bool {
	for _, tool := range eligible {
		if tool == name {
			return true
		}
	}
	return false
}

func classifyToolError(err error) *ToolError {
	var terr *ToolError
	if errors.As(err, &terr) {
		return terr
	}

	var mterr *ModelTransportError
	if errors.As(err, &mterr) || errors.Is(err, ErrModelTimeout) {
		return &ToolError{Code: ErrCodeModel, Message: err.Error()}
	}

	var pfail *persistenceFailure
	if errors.As(err, &pfail) {
		return NewPersistenceError(err)
	}
	return NewDomainError(err)
}
