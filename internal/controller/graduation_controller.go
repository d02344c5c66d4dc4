package controller

import (
	"github.com/gin-gonic/gin"

	"roadmap_ai_backend/internal/service"
	"roadmap_ai_backend/internal/util"
)

type GraduationController struct {
	graduationService *service.GraduationService
}

func NewGraduationController(graduationService *service.GraduationService) *GraduationController {
	return &GraduationController{graduationService: graduationService}
}

// GetProject 毕业项目与考核题
// @Summary 毕业项目详情
// @Tags Graduation
// @Produce json
// @Param id path int true "会话 ID"
// @Success 200 {object} util.Response
// @Router /api/sessions/{id}/graduation [get]
func (ctl *GraduationController) GetProject(c *gin.Context) {
	sessionID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	project, questions, err := ctl.graduationService.GetProject(sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, gin.H{"project": project, "questions": questions})
}

type SubmitAnswersRequest struct {
	// 题目标识到答案文本的映射
	Answers map[string]string `json:"answers" binding:"required"`
}

// SubmitAnswers 提交考核题答案：字数按闭区间校验，落库后逐题批改
// @Summary 提交毕业考核答案
// @Tags Graduation
// @Accept json
// @Produce json
// @Param id path int true "会话 ID"
// @Param request body SubmitAnswersRequest true "按题目标识提交的答案"
// @Success 201 {object} util.Response
// @Router /api/sessions/{id}/graduation/submissions [post]
func (ctl *GraduationController) SubmitAnswers(c *gin.Context) {
	sessionID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req SubmitAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	submissions, err := ctl.graduationService.SubmitAnswers(c.Request.Context(), sessionID, userID, req.Answers)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Created(c, submissions)
}

// ListSubmissions 历史提交与批改结果
// @Summary 毕业考核提交记录
// @Tags Graduation
// @Produce json
// @Param id path int true "会话 ID"
// @Success 200 {object} util.Response
// @Router /api/sessions/{id}/graduation/submissions [get]
func (ctl *GraduationController) ListSubmissions(c *gin.Context) {
	sessionID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	submissions, err := ctl.graduationService.ListSubmissions(sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, submissions)
}
