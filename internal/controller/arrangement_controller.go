package controller

import (
	"errors"

	"course_delivery_backend/internal/service"
	"course_delivery_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ArrangementController struct {
	Arrangements *service.ArrangementService
}

func NewArrangementController(arrangements *service.ArrangementService) *ArrangementController {
	return &ArrangementController{Arrangements: arrangements}
}

// CreateDraft godoc
// @Summary 创建编排草稿
// @Description 为课程创建一份新的内容顺序草稿，版本号自增
// @Tags 编排
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   courseId path int true "课程ID"
// @Param   body body service.ArrangementDraftRequest true "条目列表"
// @Success 201 {object} util.Response{data=model.ContentArrangement} "创建成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/arrangements/courses/{courseId} [post]
func (c *ArrangementController) CreateDraft(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID := util.MustParseUint(ctx.Param("courseId"))

	var req service.ArrangementDraftRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	arrangement, err := c.Arrangements.CreateDraft(claims.UserID, courseID, req)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, arrangement)
}

// Submit godoc
// @Summary 提交编排送审
// @Tags 编排
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "编排ID"
// @Success 200 {object} util.Response{data=model.ContentArrangement} "成功"
// @Failure 404 {object} util.Response "编排不存在"
// @Failure 412 {object} util.Response "编排不在 open 状态"
// @Router /api/arrangements/{id}/submit [post]
func (c *ArrangementController) Submit(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	arrangement, err := c.Arrangements.Submit(id)
	if err != nil {
		c.writeErr(ctx, err)
		return
	}

	util.Success(ctx, arrangement)
}

// Approve godoc
// @Summary 批准编排
// @Description 批准后该版本成为已上线课程的权威顺序，旧缓存即刻失效
// @Tags 编排
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "编排ID"
// @Success 200 {object} util.Response{data=model.ContentArrangement} "成功"
// @Failure 404 {object} util.Response "编排不存在"
// @Failure 412 {object} util.Response "编排不在 submitted 状态"
// @Router /api/arrangements/{id}/approve [post]
func (c *ArrangementController) Approve(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id := util.MustParseUint(ctx.Param("id"))

	arrangement, err := c.Arrangements.Approve(claims.UserID, id)
	if err != nil {
		c.writeErr(ctx, err)
		return
	}

	util.Success(ctx, arrangement)
}

// Reject godoc
// @Summary 驳回编排
// @Tags 编排
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "编排ID"
// @Success 200 {object} util.Response{data=model.ContentArrangement} "成功"
// @Failure 404 {object} util.Response "编排不存在"
// @Failure 412 {object} util.Response "编排不在 submitted 状态"
// @Router /api/arrangements/{id}/reject [post]
func (c *ArrangementController) Reject(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	id := util.MustParseUint(ctx.Param("id"))

	arrangement, err := c.Arrangements.Reject(claims.UserID, id)
	if err != nil {
		c.writeErr(ctx, err)
		return
	}

	util.Success(ctx, arrangement)
}

// ListVersions godoc
// @Summary 课程的编排版本历史
// @Tags 编排
// @Produce  json
// @Security BearerAuth
// @Param   courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.ContentArrangement} "成功"
// @Router /api/arrangements/courses/{courseId} [get]
func (c *ArrangementController) ListVersions(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("courseId"))

	versions, err := c.Arrangements.ListVersions(courseID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, versions)
}

// GetEffectiveOrder godoc
// @Summary 当前有效的内容顺序
// @Description 未上线课程用目录顺序；已上线课程用最新批准的编排合并目录新增项
// @Tags 编排
// @Produce  json
// @Security BearerAuth
// @Param   courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.ResolvedOrder} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/arrangements/courses/{courseId}/effective [get]
func (c *ArrangementController) GetEffectiveOrder(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("courseId"))

	resolved, err := c.Arrangements.ResolveEffectiveOrder(courseID)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, resolved)
}

func (c *ArrangementController) writeErr(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrCourseNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrArrangementNotOpen):
		util.PreconditionFailed(ctx, "ARRANGEMENT_NOT_OPEN", nil)
	case errors.Is(err, util.ErrArrangementNotSubmitted):
		util.PreconditionFailed(ctx, "ARRANGEMENT_NOT_SUBMITTED", nil)
	default:
		util.LogInternalError(ctx, err)
	}
}
