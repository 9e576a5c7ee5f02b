package controller

import (
	"errors"

	"course_delivery_backend/internal/service"
	"course_delivery_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	Gate        *service.QuizGate
	Attempts    *service.QuizAttemptService
	AuthService *service.AuthService
}

func NewQuizController(gate *service.QuizGate, attempts *service.QuizAttemptService, authService *service.AuthService) *QuizController {
	return &QuizController{Gate: gate, Attempts: attempts, AuthService: authService}
}

// GetAvailability godoc
// @Summary 测验可用性
// @Description 判定当前学生能否开始该单元的测验，不可用时带机器可读原因码
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   unitId path int true "单元ID"
// @Success 200 {object} util.Response{data=service.QuizAvailability} "判定结果"
// @Failure 404 {object} util.Response "单元或题库不存在"
// @Router /api/quizzes/units/{unitId}/availability [get]
func (c *QuizController) GetAvailability(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	unitID := util.MustParseUint(ctx.Param("unitId"))

	avail, err := c.Gate.CheckAvailability(claims.UserID, unitID)
	if err != nil {
		if errors.Is(err, util.ErrUnitNotFound) || errors.Is(err, util.ErrQuizPoolNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, avail)
}

// GenerateAttempt godoc
// @Summary 生成试卷
// @Description 从已审核题目中抽题生成一次作答；存在未提交作答时默认复用，destroyIncomplete=true 时销毁重出
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   unitId path int true "单元ID"
// @Param   destroyIncomplete query bool false "销毁未提交的旧作答"
// @Success 201 {object} util.Response{data=service.AttemptView} "试卷（不含答案）"
// @Failure 404 {object} util.Response "单元或题库不存在"
// @Failure 412 {object} util.Response "前置条件不满足，reason 为原因码"
// @Router /api/quizzes/units/{unitId}/attempts [post]
func (c *QuizController) GenerateAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	unitID := util.MustParseUint(ctx.Param("unitId"))
	destroy := ctx.Query("destroyIncomplete") == "true"

	view, avail, err := c.Attempts.GenerateAttempt(claims.UserID, unitID, destroy)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrUnitNotFound), errors.Is(err, util.ErrQuizPoolNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrQuizNotAvailable):
			util.PreconditionFailed(ctx, avail.Reason, avail)
		case errors.Is(err, util.ErrQuizPoolEmpty):
			util.PreconditionFailed(ctx, service.ReasonNoApprovedQuestions, gin.H{"error": err.Error()})
		case errors.Is(err, util.ErrInsufficientApprovedQuestions):
			util.PreconditionFailed(ctx, service.ReasonInsufficientApprovedQuestions, gin.H{"error": err.Error()})
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, view)
}

// SubmitAttempt godoc
// @Summary 提交作答
// @Description 判分并冻结作答；对已提交作答的二次提交返回 409 与原始结果
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   attemptId path string true "作答ID"
// @Param   body body service.SubmitAttemptRequest true "答案与安全遥测"
// @Success 200 {object} util.Response{data=service.AttemptResult} "判分结果"
// @Failure 403 {object} util.Response "非本人作答"
// @Failure 404 {object} util.Response "作答不存在"
// @Failure 409 {object} util.Response{data=service.AttemptResult} "重复提交，返回原始结果"
// @Router /api/quizzes/attempts/{attemptId}/submit [post]
func (c *QuizController) SubmitAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	attemptID := ctx.Param("attemptId")

	var req service.SubmitAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Attempts.SubmitAttempt(claims.UserID, attemptID, req)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrAttemptNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrNotAttemptOwner):
			util.Forbidden(ctx)
		case errors.Is(err, util.ErrAttemptAlreadySubmitted):
			util.Conflict(ctx, "attempt already submitted", result)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, result)
}

// GetAttemptResult godoc
// @Summary 查询作答结果
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   attemptId path string true "作答ID"
// @Success 200 {object} util.Response{data=service.AttemptResult} "成功"
// @Failure 403 {object} util.Response "无权查看"
// @Failure 404 {object} util.Response "作答不存在"
// @Router /api/quizzes/attempts/{attemptId} [get]
func (c *QuizController) GetAttemptResult(ctx *gin.Context) {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	attemptID := ctx.Param("attemptId")

	result, err := c.Attempts.GetAttemptResult(user, attemptID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrAttemptNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrNotAttemptOwner):
			util.Forbidden(ctx)
		case errors.Is(err, util.ErrAttemptNotSubmitted):
			util.PreconditionFailed(ctx, "ATTEMPT_NOT_SUBMITTED", nil)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, result)
}
