package controller

import (
	"errors"

	"course_delivery_backend/internal/service"
	"course_delivery_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// RecordVideoProgress godoc
// @Summary 上报视频观看进度
// @Description 累计观看时长与播放位置；显式声明完成或双信号达到 85% 时标记完成并触发解锁传播
// @Tags 进度
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "视频ID"
// @Param   body body service.VideoProgressRequest true "观看数据"
// @Success 200 {object} util.Response{data=service.ProgressSummary} "更新后的进度"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 404 {object} util.Response "视频不存在"
// @Router /api/progress/videos/{id} [post]
func (c *ProgressController) RecordVideoProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	videoID := util.MustParseUint(ctx.Param("id"))

	var req service.VideoProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	summary, err := c.ProgressService.RecordVideoProgress(claims.UserID, videoID, req)
	if err != nil {
		if errors.Is(err, util.ErrVideoNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, summary)
}

// RecordDocumentRead godoc
// @Summary 标记文档已读
// @Description 幂等；首次标记触发解锁传播
// @Tags 进度
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "文档ID"
// @Success 200 {object} util.Response{data=service.ProgressSummary} "更新后的进度"
// @Failure 404 {object} util.Response "文档不存在"
// @Router /api/progress/documents/{id} [post]
func (c *ProgressController) RecordDocumentRead(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	documentID := util.MustParseUint(ctx.Param("id"))

	summary, err := c.ProgressService.RecordDocumentRead(claims.UserID, documentID)
	if err != nil {
		if errors.Is(err, util.ErrDocumentNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, summary)
}

// GetProgressionStatus godoc
// @Summary 课程进度总览
// @Description 总进度、被阻塞单元与下一个可学单元
// @Tags 进度
// @Produce  json
// @Security BearerAuth
// @Param   courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.ProgressionStatus} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/progress/courses/{courseId} [get]
func (c *ProgressController) GetProgressionStatus(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID := util.MustParseUint(ctx.Param("courseId"))

	status, err := c.ProgressService.GetProgressionStatus(claims.UserID, courseID)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, status)
}
