package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"roadmap_ai_backend/internal/util"
)

// respondError 把业务错误映射成对应的 HTTP 状态码
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrSessionNotFound),
		errors.Is(err, util.ErrRoadmapNotFound),
		errors.Is(err, util.ErrGoalNotFound),
		errors.Is(err, util.ErrQuizNotFound),
		errors.Is(err, util.ErrAttemptNotFound),
		errors.Is(err, util.ErrQuestionNotFound),
		errors.Is(err, util.ErrProjectNotFound),
		errors.Is(err, util.ErrCVNotFound):
		util.NotFound(c)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(c)
	case errors.Is(err, util.ErrRoadmapExists),
		errors.Is(err, util.ErrProjectExists),
		errors.Is(err, util.ErrTurnInProgress),
		errors.Is(err, util.ErrSessionArchived),
		errors.Is(err, util.ErrAttemptNotActive):
		util.Conflict(c, err.Error())
	case errors.Is(err, util.ErrAttemptsExhausted),
		errors.Is(err, util.ErrAnswerTooShort),
		errors.Is(err, util.ErrAnswerTooLong),
		errors.Is(err, util.ErrUnsupportedCVFormat):
		util.Error(c, http.StatusUnprocessableEntity, err.Error())
	default:
		util.LogInternalError(c, err)
	}
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		util.BadRequest(c, "参数 "+name+" 必须是正整数")
		return 0, false
	}
	return uint(value), true
}

func currentUserID(c *gin.Context) (uint, bool) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return 0, false
	}
	return claims.UserID, true
}
