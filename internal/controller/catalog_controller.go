package controller

import (
	"errors"

	"course_delivery_backend/internal/service"
	"course_delivery_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CatalogController struct {
	Catalog *service.CatalogService
}

func NewCatalogController(catalog *service.CatalogService) *CatalogController {
	return &CatalogController{Catalog: catalog}
}

// CreateCourse godoc
// @Summary 创建课程
// @Tags 目录
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.CourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/catalog/courses [post]
func (c *CatalogController) CreateCourse(ctx *gin.Context) {
	var req service.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.Catalog.CreateCourse(req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, course)
}

// GetOutline godoc
// @Summary 课程结构
// @Description 单元及其视频/文档，按目录顺序
// @Tags 目录
// @Produce  json
// @Security BearerAuth
// @Param   courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseOutline} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/catalog/courses/{courseId} [get]
func (c *CatalogController) GetOutline(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("courseId"))

	outline, err := c.Catalog.GetOutline(courseID)
	if err != nil {
		c.writeErr(ctx, err)
		return
	}

	util.Success(ctx, outline)
}

// LaunchCourse godoc
// @Summary 上线课程
// @Description 上线后最新批准的编排快照开始生效，内容新增触发重校验
// @Tags 目录
// @Produce  json
// @Security BearerAuth
// @Param   courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/catalog/courses/{courseId}/launch [post]
func (c *CatalogController) LaunchCourse(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("courseId"))

	course, err := c.Catalog.LaunchCourse(courseID)
	if err != nil {
		c.writeErr(ctx, err)
		return
	}

	util.Success(ctx, course)
}

// CreateUnit godoc
// @Summary 创建单元
// @Tags 目录
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   courseId path int true "课程ID"
// @Param   body body service.UnitRequest true "单元信息"
// @Success 201 {object} util.Response{data=model.Unit} "创建成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/catalog/courses/{courseId}/units [post]
func (c *CatalogController) CreateUnit(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("courseId"))

	var req service.UnitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	unit, err := c.Catalog.CreateUnit(courseID, req)
	if err != nil {
		c.writeErr(ctx, err)
		return
	}

	util.Created(ctx, unit)
}

// AddVideo godoc
// @Summary 添加视频
// @Description 已上线课程新增视频会把已完成该单元的学生回退到 needs_review
// @Tags 目录
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   unitId path int true "单元ID"
// @Param   body body service.VideoRequest true "视频信息"
// @Success 201 {object} util.Response{data=model.Video} "创建成功"
// @Failure 404 {object} util.Response "单元不存在"
// @Router /api/catalog/units/{unitId}/videos [post]
func (c *CatalogController) AddVideo(ctx *gin.Context) {
	unitID := util.MustParseUint(ctx.Param("unitId"))

	var req service.VideoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	video, err := c.Catalog.AddVideo(unitID, req)
	if err != nil {
		c.writeErr(ctx, err)
		return
	}

	util.Created(ctx, video)
}

// AddDocument godoc
// @Summary 添加文档
// @Description 已上线课程新增文档会把已完成该单元的学生回退到 needs_review
// @Tags 目录
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   unitId path int true "单元ID"
// @Param   body body service.DocumentRequest true "文档信息"
// @Success 201 {object} util.Response{data=model.Document} "创建成功"
// @Failure 404 {object} util.Response "单元不存在"
// @Router /api/catalog/units/{unitId}/documents [post]
func (c *CatalogController) AddDocument(ctx *gin.Context) {
	unitID := util.MustParseUint(ctx.Param("unitId"))

	var req service.DocumentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	doc, err := c.Catalog.AddDocument(unitID, req)
	if err != nil {
		c.writeErr(ctx, err)
		return
	}

	util.Created(ctx, doc)
}

// CreateQuizPool godoc
// @Summary 创建题库
// @Tags 目录
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   unitId path int true "单元ID"
// @Param   body body service.QuizPoolRequest true "题库配置"
// @Success 201 {object} util.Response{data=model.QuizPool} "创建成功"
// @Failure 404 {object} util.Response "单元不存在"
// @Router /api/catalog/units/{unitId}/pools [post]
func (c *CatalogController) CreateQuizPool(ctx *gin.Context) {
	unitID := util.MustParseUint(ctx.Param("unitId"))

	var req service.QuizPoolRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	pool, err := c.Catalog.CreateQuizPool(unitID, req)
	if err != nil {
		c.writeErr(ctx, err)
		return
	}

	util.Created(ctx, pool)
}

// AddQuestion godoc
// @Summary 添加题目
// @Description 新题目默认待审，审核通过前不会进入任何试卷
// @Tags 目录
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   poolId path int true "题库ID"
// @Param   body body service.QuestionRequest true "题目内容"
// @Success 201 {object} util.Response{data=model.QuizQuestion} "创建成功"
// @Failure 404 {object} util.Response "题库不存在"
// @Router /api/catalog/pools/{poolId}/questions [post]
func (c *CatalogController) AddQuestion(ctx *gin.Context) {
	poolID := util.MustParseUint(ctx.Param("poolId"))

	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.Catalog.AddQuestion(poolID, req)
	if err != nil {
		c.writeErr(ctx, err)
		return
	}

	util.Created(ctx, question)
}

type ReviewQuestionRequest struct {
	Approve bool `json:"approve"`
}

// ReviewQuestion godoc
// @Summary 审核题目
// @Tags 目录
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   questionId path int true "题目ID"
// @Param   body body ReviewQuestionRequest true "审核结论"
// @Success 200 {object} util.Response{data=model.QuizQuestion} "成功"
// @Failure 404 {object} util.Response "题目不存在"
// @Router /api/catalog/questions/{questionId}/review [post]
func (c *CatalogController) ReviewQuestion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	questionID := util.MustParseUint(ctx.Param("questionId"))

	var req ReviewQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.Catalog.ReviewQuestion(claims.UserID, questionID, req.Approve)
	if err != nil {
		c.writeErr(ctx, err)
		return
	}

	util.Success(ctx, question)
}

// SaveSectionConfig godoc
// @Summary 班级测验配置
// @Description 按班级覆盖题量、及格线、作答上限与时限
// @Tags 目录
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   sectionId path int true "班级ID"
// @Param   courseId path int true "课程ID"
// @Param   body body service.SectionQuizConfigRequest true "配置覆盖"
// @Success 200 {object} util.Response{data=model.SectionQuizConfig} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/catalog/sections/{sectionId}/courses/{courseId}/quiz-config [put]
func (c *CatalogController) SaveSectionConfig(ctx *gin.Context) {
	sectionID := util.MustParseUint(ctx.Param("sectionId"))
	courseID := util.MustParseUint(ctx.Param("courseId"))

	var req service.SectionQuizConfigRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	cfg, err := c.Catalog.SaveSectionConfig(sectionID, courseID, req)
	if err != nil {
		c.writeErr(ctx, err)
		return
	}

	util.Success(ctx, cfg)
}

func (c *CatalogController) writeErr(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrCourseNotFound),
		errors.Is(err, util.ErrUnitNotFound),
		errors.Is(err, util.ErrQuizPoolNotFound):
		util.NotFound(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}
