package controller

import (
	"github.com/gin-gonic/gin"

	"roadmap_ai_backend/internal/service"
	"roadmap_ai_backend/internal/util"
)

type ChatController struct {
	orchestrator *service.Orchestrator
}

func NewChatController(orchestrator *service.Orchestrator) *ChatController {
	return &ChatController{orchestrator: orchestrator}
}

type ChatRequest struct {
	Content string `json:"content" binding:"required"`
}

// SubmitTurn 提交一轮对话，结果以 SSE 流式返回
// @Summary 会话聊天
// @Description 提交用户消息，模型响应与工具执行结果通过 SSE 事件流逐帧下发，帧类型为 message / tool_result / error / done
// @Tags Chat
// @Accept json
// @Produce text/event-stream
// @Param id path int true "会话 ID"
// @Param request body ChatRequest true "用户消息"
// @Success 200 {string} string "SSE 事件流"
// @Router /api/sessions/{id}/chat [post]
func (ctl *ChatController) SubmitTurn(c *gin.Context) {
	sessionID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	events, err := ctl.orchestrator.SubmitTurn(c.Request.Context(), sessionID, userID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Transfer-Encoding", "chunked")

	// 帧按完成顺序下发，消费端按类型处理而不是按位置
	for event := range events {
		c.SSEvent(event.Type, event)
		c.Writer.Flush()
	}
}
