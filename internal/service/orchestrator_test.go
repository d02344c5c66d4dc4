package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadmap_ai_backend/internal/model"
)

const materialJSON = `{
	"title": "Goroutine 入门",
	"material_type": "article",
	"content": "goroutine 是 Go 运行时调度的轻量级线程……",
	"estimated_time_minutes": 25,
	"difficulty_level": "beginner"
}`

const quizJSON = `{
	"title": "并发基础测验",
	"passing_score_percentage": 70,
	"questions": [
		{"question_order": 1, "question_text": "channel 的零值是什么？",
		 "options": {"A": "nil", "B": "空 channel", "C": "panic"}, "correct_answer": "A", "points": 1},
		{"question_order": 2, "question_text": "go 关键字的作用？",
		 "options": {"A": "声明变量", "B": "启动 goroutine"}, "correct_answer": "B", "points": 1}
	]
}`

func toolCall(id string, name ToolName, args string) AIToolCall {
	call := AIToolCall{ID: id, Type: "function"}
	call.Function.Name = string(name)
	call.Function.Arguments = args
	return call
}

func collectEvents(t *testing.T, events <-chan TurnEvent) []TurnEvent {
	t.Helper()
	collected := make([]TurnEvent, 0, 8)
	for event := range events {
		collected = append(collected, event)
	}
	return collected
}

func TestSubmitTurnBootstrapsRoadmap(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)

	env.model.withTools = func(messages []AIChatMessage, tools []AIToolDefinition) (*AIResult, error) {
		// roadmap 阶段只应暴露两个工具
		require.Len(t, tools, 2)
		return &AIResult{
			Content: "好的，我来为你规划一条学习路线。",
			ToolCalls: []AIToolCall{
				toolCall("call_1", ToolCreateRoadmapSkeleton, `{"userRequest": "我想学 Go 后端开发"}`),
			},
			FinishReason: "tool_calls",
			Usage:        AIUsage{PromptTokens: 120, CompletionTokens: 80, TotalTokens: 200},
		}, nil
	}
	env.model.structured = structuredFromJSON(skeletonJSON)

	events, err := env.orchestrator().SubmitTurn(context.Background(), session.ID, 1, "我想学 Go 后端开发")
	require.NoError(t, err)
	collected := collectEvents(t, events)

	require.Len(t, collected, 3)
	assert.Equal(t, EventMessage, collected[0].Type)
	assert.Equal(t, EventToolResult, collected[1].Type)
	require.NotNil(t, collected[1].ToolResult)
	assert.True(t, collected[1].ToolResult.Success)
	assert.Equal(t, EventDone, collected[2].Type)
	require.NotNil(t, collected[2].Usage)
	assert.Equal(t, 200, collected[2].Usage.TotalTokens)

	roadmap, err := env.roadmapRepo.FindBySessionID(session.ID)
	require.NoError(t, err)
	goals, err := env.roadmapRepo.Goals(roadmap.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, goals)

	// 用户消息与助手消息都已落库
	messages, total, err := env.sessionRepo.ListMessages(session.ID, 1, 50)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, messages, 2)
	assert.Equal(t, model.RoleUser, messages[0].Role)
	assert.Equal(t, model.RoleAssistant, messages[1].Role)
	assert.Contains(t, messages[1].Content, "学习路线")
}

func TestSubmitTurnIllegalToolDoesNotAbort(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)

	env.model.withTools = func(messages []AIChatMessage, tools []AIToolDefinition) (*AIResult, error) {
		return &AIResult{
			ToolCalls: []AIToolCall{
				toolCall("call_1", ToolCreateQuizForGoal, `{"goalNumber": 1}`),
				toolCall("call_2", ToolCreateRoadmapSkeleton, `{"userRequest": "学习 Go"}`),
			},
		}, nil
	}
	env.model.structured = structuredFromJSON(skeletonJSON)

	events, err := env.orchestrator().SubmitTurn(context.Background(), session.ID, 1, "帮我出一份测验")
	require.NoError(t, err)
	collected := collectEvents(t, events)

	require.Len(t, collected, 3)
	require.NotNil(t, collected[0].ToolResult)
	assert.Equal(t, ErrCodePhaseViolation, collected[0].ToolResult.Error.Code)

	// 非法调用只影响它自己，后面的工具照常执行
	require.NotNil(t, collected[1].ToolResult)
	assert.True(t, collected[1].ToolResult.Success)
	assert.Equal(t, EventDone, collected[2].Type)

	var quizCount int64
	require.NoError(t, env.db.Model(&model.Quiz{}).Count(&quizCount).Error)
	assert.Zero(t, quizCount)

	_, err = env.roadmapRepo.FindBySessionID(session.ID)
	assert.NoError(t, err)
}

func TestSubmitTurnExecutesToolsInModelOrder(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)
	env.seedRoadmap(t, session.ID, model.RoadmapInProgress, "Go 基础", "并发编程")

	env.model.withTools = func(messages []AIChatMessage, tools []AIToolDefinition) (*AIResult, error) {
		return &AIResult{
			ToolCalls: []AIToolCall{
				toolCall("call_1", ToolCreateLearningMaterial, `{"goalNumber": 1}`),
				toolCall("call_2", ToolCreateQuizForGoal, `{"goalNumber": 1, "questionCount": 3}`),
				toolCall("call_3", ToolCreateLearningMaterial, `{"goalNumber": 2}`),
			},
		}, nil
	}
	env.model.structured = func(system, user string, out interface{}) error {
		if strings.Contains(system, "createquizforgoal") {
			return json.Unmarshal([]byte(quizJSON), out)
		}
		return json.Unmarshal([]byte(materialJSON), out)
	}

	events, err := env.orchestrator().SubmitTurn(context.Background(), session.ID, 1, "给我安排学习内容")
	require.NoError(t, err)
	collected := collectEvents(t, events)

	require.Len(t, collected, 4)
	wantOrder := []ToolName{ToolCreateLearningMaterial, ToolCreateQuizForGoal, ToolCreateLearningMaterial}
	for i, want := range wantOrder {
		require.Equal(t, EventToolResult, collected[i].Type)
		require.NotNil(t, collected[i].ToolResult)
		assert.Equal(t, want, collected[i].ToolResult.Tool)
		assert.True(t, collected[i].ToolResult.Success, "tool %d: %+v", i, collected[i].ToolResult.Error)
	}
	assert.Equal(t, EventDone, collected[3].Type)
}

func TestSubmitTurnModelFailureIsFatal(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)

	env.model.withTools = func(messages []AIChatMessage, tools []AIToolDefinition) (*AIResult, error) {
		return nil, &ModelTransportError{StatusCode: 503, Err: fmt.Errorf("service unavailable")}
	}

	events, err := env.orchestrator().SubmitTurn(context.Background(), session.ID, 1, "你好")
	require.NoError(t, err)
	collected := collectEvents(t, events)

	// 轮级错误：error 帧即流的结尾，没有 done
	require.Len(t, collected, 1)
	assert.Equal(t, EventError, collected[0].Type)
	require.NotNil(t, collected[0].Error)
	assert.Equal(t, ErrCodeModelTransport, collected[0].Error.Code)

	// 用户消息保留，助手消息不落库
	messages, _, err := env.sessionRepo.ListMessages(session.ID, 1, 50)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, model.RoleUser, messages[0].Role)
}

func TestSubmitTurnModelTimeout(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)

	env.model.withTools = func(messages []AIChatMessage, tools []AIToolDefinition) (*AIResult, error) {
		return nil, ErrModelTimeout
	}

	events, err := env.orchestrator().SubmitTurn(context.Background(), session.ID, 1, "你好")
	require.NoError(t, err)
	collected := collectEvents(t, events)

	require.Len(t, collected, 1)
	assert.Equal(t, EventError, collected[0].Type)
	require.NotNil(t, collected[0].Error)
	assert.Equal(t, ErrCodeModelTimeout, collected[0].Error.Code)
}

func TestSubmitTurnMalformedToolArgs(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)

	env.model.withTools = func(messages []AIChatMessage, tools []AIToolDefinition) (*AIResult, error) {
		return &AIResult{
			ToolCalls: []AIToolCall{
				toolCall("call_1", ToolCreateRoadmapSkeleton, `{"userRequest": `),
			},
		}, nil
	}

	events, err := env.orchestrator().SubmitTurn(context.Background(), session.ID, 1, "帮我规划")
	require.NoError(t, err)
	collected := collectEvents(t, events)

	require.Len(t, collected, 2)
	require.NotNil(t, collected[0].ToolResult)
	assert.Equal(t, ErrCodeSchemaValidation, collected[0].ToolResult.Error.Code)
	assert.Equal(t, EventDone, collected[1].Type)
}

func TestSubmitTurnRejectsEmptyContent(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)

	_, err := env.orchestrator().SubmitTurn(context.Background(), session.ID, 1, "   ")
	assert.Error(t, err)
}

func TestSubmitTurnRejectsArchivedSession(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)
	require.NoError(t, env.sessionSvc.Archive(session.ID, 1))

	_, err := env.orchestrator().SubmitTurn(context.Background(), session.ID, 1, "继续")
	assert.Error(t, err)
}

func TestSubmitTurnPlainAnswerWithoutTools(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t, 1)

	env.model.withTools = func(messages []AIChatMessage, tools []AIToolDefinition) (*AIResult, error) {
		// 历史里应包含刚写入的用户消息
		require.GreaterOrEqual(t, len(messages), 2)
		assert.Equal(t, "system", messages[0].Role)
		return &AIResult{Content: "学习路线可以随时调整，想好了告诉我。", FinishReason: "stop"}, nil
	}

	events, err := env.orchestrator().SubmitTurn(context.Background(), session.ID, 1, "我还在犹豫学什么")
	require.NoError(t, err)
	collected := collectEvents(t, events)

	require.Len(t, collected, 2)
	assert.Equal(t, EventMessage, collected[0].Type)
	assert.Equal(t, EventDone, collected[1].Type)

	messages, _, err := env.sessionRepo.ListMessages(session.ID, 1, 50)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "学习路线可以随时调整，想好了告诉我。", messages[1].Content)
}
