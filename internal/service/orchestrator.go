package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"roadmap_ai_backend/internal/model"
	"roadmap_ai_backend/internal/repository"
	"roadmap_ai_backend/internal/util"
	"roadmap_ai_backend/pkg/logger"
	"roadmap_ai_backend/pkg/monitoring"
	"roadmap_ai_backend/pkg/prompt"
)

// 事件帧类型，按类型消费，不保证固定顺序
const (
	EventMessage    = "message"
	EventToolResult = "tool_result"
	EventDone       = "done"
	EventError      = "error"
)

// 回合级致命错误码
const (
	ErrCodeModelTransport = "model_transport_error"
	ErrCodeModelTimeout   = "model_timeout"
)

// TurnEvent 一帧流式事件，Type 决定哪些字段有值
type TurnEvent struct {
	Type       string      `json:"type"`
	Content    string      `json:"content,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
	Error      *TurnError  `json:"error,omitempty"`
	Usage      *AIUsage    `json:"usage,omitempty"`
}

// TurnError 整轮对话失败，客户端应按可重试处理
type TurnError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Orchestrator 驱动一轮对话：组上下文、调模型、顺序执行工具、
// 边执行边下发事件、最后落库助手消息
type Orchestrator struct {
	sessionSvc  *SessionService
	sessionRepo *repository.SessionRepository
	cvRepo      *repository.CVRepository
	phaseSvc    *PhaseService
	dispatcher  *ToolDispatcher
	ai          ModelClient
	prompts     prompt.Provider
	redis       *redis.Client

	historyWindow int
	turnLockTTL   time.Duration
}

func NewOrchestrator(
	sessionSvc *SessionService,
	sessionRepo *repository.SessionRepository,
	cvRepo *repository.CVRepository,
	phaseSvc *PhaseService,
	dispatcher *ToolDispatcher,
	ai ModelClient,
	prompts prompt.Provider,
	redisClient *redis.Client,
	historyWindow int,
	turnLockSeconds int,
) *Orchestrator {
	if historyWindow <= 0 {
		historyWindow = 20
	}
	if turnLockSeconds <= 0 {
		turnLockSeconds = 120
	}
	return &Orchestrator{
		sessionSvc:    sessionSvc,
		sessionRepo:   sessionRepo,
		cvRepo:        cvRepo,
		phaseSvc:      phaseSvc,
		dispatcher:    dispatcher,
		ai:            ai,
		prompts:       prompts,
		redis:         redisClient,
		historyWindow: historyWindow,
		turnLockTTL:   time.Duration(turnLockSeconds) * time.Second,
	}
}

func turnLockKey(sessionID uint) string {
	return fmt.Sprintf("turn_lock:session:%d", sessionID)
}

// acquireTurnLock 同一会话同时只允许一轮对话，拿不到锁直接拒绝。
// redis 未配置时退化为不加锁
func (o *Orchestrator) acquireTurnLock(ctx context.Context, sessionID uint) (func(), error) {
	if o.redis == nil {
		return func() {}, nil
	}

	key := turnLockKey(sessionID)
	ok, err := o.redis.SetNX(ctx, key, "1", o.turnLockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ErrTurnInProgress
	}
	return func() {
		if err := o.redis.Del(context.Background(), key).Err(); err != nil {
			logger.Log.Warn("释放会话锁失败", zap.Uint("session_id", sessionID), zap.Error(err))
		}
	}, nil
}

// SubmitTurn 处理一轮用户输入，事件通过返回的 channel 下发。
// clientCtx 只控制事件下发：客户端断开后已派发的工具照常执行、
// 助手消息照常落库，只是不再写帧
func (o *Orchestrator) SubmitTurn(clientCtx context.Context, sessionID, userID uint, content string) (<-chan TurnEvent, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("消息内容不能为空")
	}
	if _, err := o.sessionSvc.EnsureWritable(sessionID, userID); err != nil {
		return nil, err
	}

	workCtx, cancel := context.WithTimeout(context.Background(), o.turnLockTTL)

	release, err := o.acquireTurnLock(workCtx, sessionID)
	if err != nil {
		cancel()
		if err == util.ErrTurnInProgress {
			monitoring.TurnCounter.WithLabelValues("lock_busy").Inc()
		}
		return nil, err
	}

	userMessage := &model.SessionMessage{
		SessionID: sessionID,
		Role:      model.RoleUser,
		Content:   content,
	}
	if err := o.sessionRepo.CreateMessage(userMessage); err != nil {
		release()
		cancel()
		return nil, err
	}

	events := make(chan TurnEvent)
	go func() {
		defer close(events)
		defer cancel()
		defer release()
		o.runTurn(workCtx, clientCtx, sessionID, userID, events)
	}()
	return events, nil
}

// emit 往客户端写一帧；客户端已断开则丢弃
func emit(clientCtx context.Context, events chan<- TurnEvent, event TurnEvent) {
	select {
	case events <- event:
	case <-clientCtx.Done():
	}
}

func (o *Orchestrator) runTurn(workCtx, clientCtx context.Context, sessionID, userID uint, events chan<- TurnEvent) {
	decision, err := o.phaseSvc.Resolve(sessionID)
	if err != nil {
		emit(clientCtx, events, TurnEvent{Type: EventError, Error: &TurnError{Code: ErrCodePersistence, Message: err.Error()}})
		return
	}

	messages, err := o.assembleContext(sessionID, userID, decision)
	if err != nil {
		emit(clientCtx, events, TurnEvent{Type: EventError, Error: &TurnError{Code: ErrCodePersistence, Message: err.Error()}})
		return
	}

	// 只把当前阶段的工具交给模型，非法调用从构造上就不可能发生
	tools := ToolDefinitions(decision.Tools)

	temperature := 0.7
	if tpl, err := o.prompts.Get("master"); err == nil {
		temperature = tpl.Temperature
	}

	result, err := o.ai.ExecuteWithTools(workCtx, messages, tools, temperature)
	if err != nil {
		// 模型传输失败对整轮是致命的，立即终止并明确告知
		code := ErrCodeModelTransport
		if err == ErrModelTimeout {
			code = ErrCodeModelTimeout
		}
		monitoring.TurnCounter.WithLabelValues("model_error").Inc()
		logger.Log.Error("模型调用失败",
			zap.Uint("session_id", sessionID),
			zap.String("code", code),
			zap.Error(err))
		// 轮级错误直接终止流，不再补发 done
		emit(clientCtx, events, TurnEvent{Type: EventError, Error: &TurnError{Code: code, Message: err.Error()}})
		return
	}

	if result.Content != "" {
		emit(clientCtx, events, TurnEvent{Type: EventMessage, Content: result.Content})
	}

	// 严格按模型给出的顺序逐个执行，结果即时下发而不是攒到最后
	toolResults := make([]ToolResult, 0, len(result.ToolCalls))
	for _, call := range result.ToolCalls {
		name := ToolName(call.Function.Name)

		var args map[string]interface{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				verr := NewSchemaValidationError("", "工具参数不是合法 JSON")
				toolResult := ToolResult{Tool: name, Message: verr.Message, Error: verr}
				toolResults = append(toolResults, toolResult)
				emit(clientCtx, events, TurnEvent{Type: EventToolResult, ToolResult: &toolResult})
				continue
			}
		}
		if args == nil {
			args = map[string]interface{}{}
		}

		toolResult := o.dispatcher.Dispatch(workCtx, sessionID, userID, decision.Phase, decision.Tools, name, args)
		toolResults = append(toolResults, toolResult)
		emit(clientCtx, events, TurnEvent{Type: EventToolResult, ToolResult: &toolResult})
	}

	o.persistAssistantMessage(sessionID, result, toolResults)

	monitoring.TurnCounter.WithLabelValues("complete").Inc()
	emit(clientCtx, events, TurnEvent{Type: EventDone, Usage: &result.Usage})
}

// assembleContext 组装系统提示词与窗口内历史
func (o *Orchestrator) assembleContext(sessionID, userID uint, decision PhaseDecision) ([]AIChatMessage, error) {
	toolNames := make([]string, 0, len(decision.Tools))
	for _, tool := range decision.Tools {
		toolNames = append(toolNames, string(tool))
	}

	cvSummary := ""
	if cv, err := o.cvRepo.FindLatestByUser(userID); err == nil {
		cvSummary = cv.Summary
	}

	tpl, err := o.prompts.Get("master")
	if err != nil {
		return nil, err
	}
	system, _ := tpl.Render(map[string]string{
		"phase":           string(decision.Phase),
		"available_tools": strings.Join(toolNames, ", "),
		"cv_summary":      cvSummary,
	})

	history, err := o.sessionRepo.RecentMessages(sessionID, o.historyWindow)
	if err != nil {
		return nil, err
	}

	messages := make([]AIChatMessage, 0, len(history)+1)
	messages = append(messages, AIChatMessage{Role: "system", Content: system})
	for _, msg := range history {
		messages = append(messages, AIChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return messages, nil
}

// persistAssistantMessage 助手消息汇总自由文本与工具结果后落库。
// 客户端是否还在线不影响这一步
func (o *Orchestrator) persistAssistantMessage(sessionID uint, result *AIResult, toolResults []ToolResult) {
	parts := make([]string, 0, 1+len(toolResults))
	if result.Content != "" {
		parts = append(parts, result.Content)
	}
	for _, tr := range toolResults {
		parts = append(parts, tr.Message)
	}

	toolCalls, _ := json.Marshal(toolResults)
	usage, _ := json.Marshal(result.Usage)

	message := &model.SessionMessage{
		SessionID: sessionID,
		Role:      model.RoleAssistant,
		Content:   strings.Join(parts, "\n\n"),
		ToolCalls: toolCalls,
		Usage:     usage,
	}
	if err := persistRetry(func() error {
		message.ID = 0
		return o.sessionRepo.CreateMessage(message)
	}); err != nil {
		logger.Log.Error("助手消息落库失败",
			zap.Uint("session_id", sessionID),
			zap.Error(err))
	}
}
