package controller

import (
	"io"

	"github.com/gin-gonic/gin"

	"roadmap_ai_backend/internal/service"
	"roadmap_ai_backend/internal/util"
)

// 简历文件大小上限 10MB
const maxCVSize = 10 << 20

type CVController struct {
	cvService *service.CVService
}

func NewCVController(cvService *service.CVService) *CVController {
	return &CVController{cvService: cvService}
}

// Upload 上传简历，抽取文本并生成摘要，摘要用于个性化路线图
// @Summary 上传简历
// @Tags CV
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF 或纯文本简历"
// @Success 201 {object} util.Response
// @Router /api/cv [post]
func (ctl *CVController) Upload(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		util.BadRequest(c, "缺少 file 字段")
		return
	}
	if fileHeader.Size > maxCVSize {
		util.BadRequest(c, "文件超过 10MB 限制")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	cv, err := ctl.cvService.Upload(c.Request.Context(), userID, fileHeader.Filename, contentType, data)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Created(c, cv)
}

// Latest 当前用户最近一次上传的简历
// @Summary 简历详情
// @Tags CV
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/cv [get]
func (ctl *CVController) Latest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	cv, err := ctl.cvService.Latest(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, cv)
}

// Resummarize 对已上传简历重新生成摘要
// @Summary 重新生成简历摘要
// @Tags CV
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/cv/resummarize [post]
func (ctl *CVController) Resummarize(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	cv, err := ctl.cvService.Resummarize(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	util.Success(c, cv)
}
