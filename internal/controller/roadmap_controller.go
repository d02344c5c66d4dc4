package controller

import (
	"github.com/gin-gonic/gin"

	"roadmap_ai_backend/internal/service"
	"roadmap_ai_backend/internal/util"
)

type RoadmapController struct {
	roadmapService *service.RoadmapService
}

func NewRoadmapController(roadmapService *service.RoadmapService) *RoadmapController {
	return &RoadmapController{roadmapService: roadmapService}
}

// Get 查看会话的路线图与目标
// @Summary 路线图详情
// @Tags Roadmap
// @Produce json
// @Param id path int true "会话 ID"
// @Success 200 {object} util.Response
// @Router /api/sessions/{id}/roadmap [get]
func (ctl *RoadmapController) Get(c *gin.Context) {
	sessionID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	roadmap, goals, err := ctl.roadmapService.Get(sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, gin.H{"roadmap": roadmap, "goals": goals})
}

// Progress 会话学习进度汇总
// @Summary 学习进度
// @Tags Roadmap
// @Produce json
// @Param id path int true "会话 ID"
// @Success 200 {object} util.Response
// @Router /api/sessions/{id}/progress [get]
func (ctl *RoadmapController) Progress(c *gin.Context) {
	sessionID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := ctl.roadmapService.Progress(sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, stats)
}

// Start 确认骨架并开始执行，会话进入学习阶段
// @Summary 启动路线图
// @Tags Roadmap
// @Produce json
// @Param id path int true "会话 ID"
// @Success 200 {object} util.Response
// @Router /api/sessions/{id}/roadmap/start [post]
func (ctl *RoadmapController) Start(c *gin.Context) {
	sessionID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	roadmap, err := ctl.roadmapService.Start(sessionID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, roadmap)
}

type LogHoursRequest struct {
	Hours int `json:"hours" binding:"required,min=1"`
}

// LogHours 记录某个目标的实际投入时长
// @Summary 记录目标用时
// @Tags Roadmap
// @Accept json
// @Produce json
// @Param id path int true "会话 ID"
// @Param goalNumber path int true "目标序号"
// @Param request body LogHoursRequest true "投入小时数"
// @Success 200 {object} util.Response
// @Router /api/sessions/{id}/goals/{goalNumber}/hours [post]
func (ctl *RoadmapController) LogHours(c *gin.Context) {
	sessionID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	goalNumber, ok := uintParam(c, "goalNumber")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req LogHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	goal, err := ctl.roadmapService.LogGoalHours(sessionID, userID, int(goalNumber), req.Hours)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, goal)
}
