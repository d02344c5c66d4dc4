package controller

import (
	"github.com/gin-gonic/gin"

	"roadmap_ai_backend/internal/service"
	"roadmap_ai_backend/internal/util"
)

type QuizController struct {
	quizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{quizService: quizService}
}

// Get 测验详情与题目，不含正确答案
// @Summary 测验详情
// @Tags Quiz
// @Produce json
// @Param quizId path int true "测验 ID"
// @Success 200 {object} util.Response
// @Router /api/quizzes/{quizId} [get]
func (ctl *QuizController) Get(c *gin.Context) {
	quizID, ok := uintParam(c, "quizId")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	quiz, questions, err := ctl.quizService.Get(quizID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, gin.H{"quiz": quiz, "questions": questions})
}

// StartAttempt 开始一次答题，超出次数限制返回 422
// @Summary 开始答题
// @Tags Quiz
// @Produce json
// @Param quizId path int true "测验 ID"
// @Success 201 {object} util.Response
// @Router /api/quizzes/{quizId}/attempts [post]
func (ctl *QuizController) StartAttempt(c *gin.Context) {
	quizID, ok := uintParam(c, "quizId")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	attempt, err := ctl.quizService.StartAttempt(quizID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Created(c, attempt)
}

type SubmitAttemptRequest struct {
	// 题目 ID 到所选选项键的映射
	Answers map[uint]string `json:"answers" binding:"required"`
}

// SubmitAttempt 提交答案并批改
// @Summary 提交答题
// @Tags Quiz
// @Accept json
// @Produce json
// @Param attemptId path int true "答题 ID"
// @Param request body SubmitAttemptRequest true "逐题答案"
// @Success 200 {object} util.Response
// @Router /api/attempts/{attemptId}/submit [post]
func (ctl *QuizController) SubmitAttempt(c *gin.Context) {
	attemptID, ok := uintParam(c, "attemptId")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	attempt, err := ctl.quizService.SubmitAttempt(attemptID, userID, req.Answers)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, attempt)
}

// AbandonAttempt 放弃本次答题，不计入次数限制
// @Summary 放弃答题
// @Tags Quiz
// @Produce json
// @Param attemptId path int true "答题 ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{attemptId}/abandon [post]
func (ctl *QuizController) AbandonAttempt(c *gin.Context) {
	attemptID, ok := uintParam(c, "attemptId")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := ctl.quizService.AbandonAttempt(attemptID, userID); err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, nil)
}

// ListAttempts 当前用户对该测验的历史答题
// @Summary 答题记录
// @Tags Quiz
// @Produce json
// @Param quizId path int true "测验 ID"
// @Success 200 {object} util.Response
// @Router /api/quizzes/{quizId}/attempts [get]
func (ctl *QuizController) ListAttempts(c *gin.Context) {
	quizID, ok := uintParam(c, "quizId")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	attempts, err := ctl.quizService.ListAttempts(quizID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, attempts)
}
