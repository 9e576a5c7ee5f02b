package controller

import (
	"errors"

	"course_delivery_backend/internal/service"
	"course_delivery_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LockController struct {
	Locks       *service.LockService
	AuthService *service.AuthService
}

func NewLockController(locks *service.LockService, authService *service.AuthService) *LockController {
	return &LockController{Locks: locks, AuthService: authService}
}

// GrantUnlock godoc
// @Summary 授予解锁
// @Description 按 teacher→hod→dean→admin 严格升序授予一次追加作答机会；层级必须等于锁记录当前要求的授权层级
// @Tags 锁定
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   studentId path int true "学生ID"
// @Param   poolId path int true "题库ID"
// @Param   body body service.UnlockGrantRequest true "授权层级"
// @Success 200 {object} util.Response{data=model.QuizLock} "更新后的锁记录"
// @Failure 403 {object} util.Response "操作者权限不足或层级越级"
// @Failure 404 {object} util.Response "锁记录不存在"
// @Failure 409 {object} util.Response "该层级已被并发消耗"
// @Failure 412 {object} util.Response "四级授权已用尽"
// @Router /api/locks/students/{studentId}/pools/{poolId}/unlock [post]
func (c *LockController) GrantUnlock(ctx *gin.Context) {
	actor := c.AuthService.GetCurrentUser(ctx)
	if actor == nil {
		util.Unauthorized(ctx)
		return
	}
	studentID := util.MustParseUint(ctx.Param("studentId"))
	poolID := util.MustParseUint(ctx.Param("poolId"))

	var req service.UnlockGrantRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lock, err := c.Locks.GrantUnlock(actor, studentID, poolID, req.Tier)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrLockNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrPermissionDenied), errors.Is(err, util.ErrTierMismatch):
			util.Error(ctx, 403, err.Error())
		case errors.Is(err, util.ErrUnlockConflict):
			util.Conflict(ctx, err.Error(), nil)
		case errors.Is(err, util.ErrUnlockTierExhausted):
			util.PreconditionFailed(ctx, "UNLOCK_TIERS_EXHAUSTED", nil)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, lock)
}

// GetLock godoc
// @Summary 查询锁记录
// @Tags 锁定
// @Produce  json
// @Security BearerAuth
// @Param   studentId path int true "学生ID"
// @Param   poolId path int true "题库ID"
// @Success 200 {object} util.Response{data=model.QuizLock} "成功"
// @Failure 404 {object} util.Response "锁记录不存在"
// @Router /api/locks/students/{studentId}/pools/{poolId} [get]
func (c *LockController) GetLock(ctx *gin.Context) {
	studentID := util.MustParseUint(ctx.Param("studentId"))
	poolID := util.MustParseUint(ctx.Param("poolId"))

	lock, err := c.Locks.LockRepo.Find(studentID, poolID)
	if err != nil {
		util.NotFound(ctx)
		return
	}

	util.Success(ctx, lock)
}
