package controller

import (
	"github.com/gin-gonic/gin"

	"roadmap_ai_backend/internal/service"
	"roadmap_ai_backend/internal/util"
)

type MaterialController struct {
	materialService *service.MaterialService
}

func NewMaterialController(materialService *service.MaterialService) *MaterialController {
	return &MaterialController{materialService: materialService}
}

// ListByGoal 某目标下的全部学习材料
// @Summary 目标材料列表
// @Tags Material
// @Produce json
// @Param id path int true "会话 ID"
// @Param goalNumber path int true "目标序号"
// @Success 200 {object} util.Response
// @Router /api/sessions/{id}/goals/{goalNumber}/materials [get]
func (ctl *MaterialController) ListByGoal(c *gin.Context) {
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

	materials, err := ctl.materialService.ListByGoal(sessionID, userID, int(goalNumber))
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, materials)
}

type CompleteMaterialRequest struct {
	Rating *int `json:"rating"`
}

// Complete 标记材料已完成，可附带 1-5 的评分
// @Summary 完成学习材料
// @Tags Material
// @Accept json
// @Produce json
// @Param materialId path int true "材料 ID"
// @Param request body CompleteMaterialRequest false "评分"
// @Success 200 {object} util.Response
// @Router /api/materials/{materialId}/complete [post]
func (ctl *MaterialController) Complete(c *gin.Context) {
	materialID, ok := uintParam(c, "materialId")
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CompleteMaterialRequest
	_ = c.ShouldBindJSON(&req)

	material, err := ctl.materialService.MarkCompleted(materialID, userID, req.Rating)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, material)
}
