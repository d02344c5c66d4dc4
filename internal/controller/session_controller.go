package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"roadmap_ai_backend/internal/service"
	"roadmap_ai_backend/internal/util"
)

type SessionController struct {
	sessionService *service.SessionService
}

func NewSessionController(sessionService *service.SessionService) *SessionController {
	return &SessionController{sessionService: sessionService}
}

type CreateSessionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create 创建学习会话
// @Summary 创建会话
// @Tags Session
// @Accept json
// @Produce json
// @Param request body CreateSessionRequest true "会话信息"
// @Success 201 {object} util.Response
// @Router /api/sessions [post]
func (ctl *SessionController) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	session, err := ctl.sessionService.Create(userID, req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Created(c, session)
}

// List 分页列出当前用户的会话
// @Summary 会话列表
// @Tags Session
// @Produce json
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response
// @Router /api/sessions [get]
func (ctl *SessionController) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	sessions, total, err := ctl.sessionService.List(userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.PageResponse{List: sessions, Total: total, Page: page, Limit: limit})
}

// Get 会话详情
// @Summary 会话详情
// @Tags Session
// @Produce json
// @Param id path int true "会话 ID"
// @Success 200 {object} util.Response
// @Router /api/sessions/{id} [get]
func (ctl *SessionController) Get(c *gin.Context) {
	sessionID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	session, err := ctl.sessionService.Get(sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, session)
}

// Update 修改会话名称或描述
// @Summary 更新会话
// @Tags Session
// @Accept json
// @Produce json
// @Param id path int true "会话 ID"
// @Param request body CreateSessionRequest true "会话信息"
// @Success 200 {object} util.Response
// @Router /api/sessions/{id} [put]
func (ctl *SessionController) Update(c *gin.Context) {
	sessionID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	session, err := ctl.sessionService.Update(sessionID, userID, req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, session)
}

// Messages 会话消息记录，时间正序
// @Summary 会话消息记录
// @Tags Session
// @Produce json
// @Param id path int true "会话 ID"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response
// @Router /api/sessions/{id}/messages [get]
func (ctl *SessionController) Messages(c *gin.Context) {
	sessionID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	messages, total, err := ctl.sessionService.Messages(sessionID, userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, util.PageResponse{List: messages, Total: total, Page: page, Limit: limit})
}

// Archive 归档会话，归档后不再接受新的对话
// @Summary 归档会话
// @Tags Session
// @Produce json
// @Param id path int true "会话 ID"
// @Success 200 {object} util.Response
// @Router /api/sessions/{id}/archive [post]
func (ctl *SessionController) Archive(c *gin.Context) {
	sessionID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := ctl.sessionService.Archive(sessionID, userID); err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, nil)
}

// Delete 删除会话
// @Summary 删除会话
// @Tags Session
// @Produce json
// @Param id path int true "会话 ID"
// @Success 200 {object} util.Response
// @Router /api/sessions/{id} [delete]
func (ctl *SessionController) Delete(c *gin.Context) {
	sessionID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := ctl.sessionService.Delete(sessionID, userID); err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, nil)
}
