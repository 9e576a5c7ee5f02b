package service

import (
	"errors"
	"time"

	"course_delivery_backend/internal/model"
	"course_delivery_backend/internal/repository"
	"course_delivery_backend/internal/util"
	"course_delivery_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CatalogService 内容目录管理：课程、单元、视频、文档、题库与题目。
// 已上线课程新增内容时联动重校验，并使该课程的有效顺序缓存失效。
type CatalogService struct {
	CourseRepo   *repository.CourseRepository
	QuizRepo     *repository.QuizRepository
	Revalidation *RevalidationService
	Arrangements *ArrangementService
}

func NewCatalogService(
	courseRepo *repository.CourseRepository,
	quizRepo *repository.QuizRepository,
	revalidation *RevalidationService,
	arrangements *ArrangementService,
) *CatalogService {
	return &CatalogService{
		CourseRepo:   courseRepo,
		QuizRepo:     quizRepo,
		Revalidation: revalidation,
		Arrangements: arrangements,
	}
}

type CourseRequest struct {
	Title            string `json:"title" binding:"required"`
	Description      string `json:"description"`
	BaseAttemptLimit int    `json:"baseAttemptLimit"`
	PassingPercent   int    `json:"passingPercent"`
}

type UnitRequest struct {
	Title string `json:"title" binding:"required"`
	Order int    `json:"order"`
}

type VideoRequest struct {
	Title           string `json:"title" binding:"required"`
	Order           int    `json:"order"`
	DurationSeconds int    `json:"durationSeconds"`
	URL             string `json:"url"`
}

type DocumentRequest struct {
	Title string `json:"title" binding:"required"`
	Order int    `json:"order"`
	URL   string `json:"url"`
}

type QuizPoolRequest struct {
	Title            string `json:"title" binding:"required"`
	QuestionCount    int    `json:"questionCount"`
	ShuffleQuestions *bool  `json:"shuffleQuestions"`
	PassingPercent   int    `json:"passingPercent"`
	AttemptLimit     int    `json:"attemptLimit"`
	TimeLimitSeconds int    `json:"timeLimitSeconds"`
}

type QuestionRequest struct {
	Text          string   `json:"text" binding:"required"`
	Options       []string `json:"options" binding:"required,min=2"`
	CorrectOption int      `json:"correctOption"`
	Points        int      `json:"points"`
	Order         int      `json:"order"`
}

type SectionQuizConfigRequest struct {
	TimeLimitSeconds int `json:"timeLimitSeconds"`
	QuestionCount    int `json:"questionCount"`
	PassingPercent   int `json:"passingPercent"`
	MaxAttempts      int `json:"maxAttempts"`
}

func (s *CatalogService) CreateCourse(req CourseRequest) (*model.Course, error) {
	course := &model.Course{
		Title:            req.Title,
		Description:      req.Description,
		BaseAttemptLimit: req.BaseAttemptLimit,
		PassingPercent:   req.PassingPercent,
	}
	if err := s.CourseRepo.CreateCourse(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CatalogService) GetCourse(courseID uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindCourseByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}

// LaunchCourse 上线课程，此后最新批准的编排快照生效
func (s *CatalogService) LaunchCourse(courseID uint) (*model.Course, error) {
	course, err := s.GetCourse(courseID)
	if err != nil {
		return nil, err
	}
	if course.IsLaunched {
		return course, nil
	}
	if err := s.CourseRepo.Launch(courseID); err != nil {
		return nil, err
	}
	s.Arrangements.InvalidateCache(courseID)
	now := time.Now()
	course.IsLaunched = true
	course.LaunchedAt = &now
	logger.Log.Info("course launched", zap.Uint("courseId", courseID))
	return course, nil
}

func (s *CatalogService) CreateUnit(courseID uint, req UnitRequest) (*model.Unit, error) {
	if _, err := s.GetCourse(courseID); err != nil {
		return nil, err
	}
	unit := &model.Unit{CourseID: courseID, Title: req.Title, Order: req.Order}
	if err := s.CourseRepo.CreateUnit(unit); err != nil {
		return nil, err
	}
	s.Arrangements.InvalidateCache(courseID)
	return unit, nil
}

// AddVideo 向单元添加视频；已上线课程触发已完成学生的重校验
func (s *CatalogService) AddVideo(unitID uint, req VideoRequest) (*model.Video, error) {
	unit, err := s.CourseRepo.FindUnitByID(unitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUnitNotFound
		}
		return nil, err
	}
	video := &model.Video{
		UnitID:          unitID,
		Title:           req.Title,
		Order:           req.Order,
		DurationSeconds: req.DurationSeconds,
		URL:             req.URL,
	}
	if err := s.CourseRepo.CreateVideo(video); err != nil {
		return nil, err
	}
	s.Arrangements.InvalidateCache(unit.CourseID)
	item := ContentItem{Type: model.ItemTypeVideo, ID: video.ID, UnitID: unitID}
	if _, err := s.Revalidation.HandleContentAdded(unitID, item); err != nil {
		// 重校验失败不回滚目录写入，后台巡检会补
		logger.Log.Error("revalidation after video add failed",
			zap.Uint("unitId", unitID), zap.Uint("videoId", video.ID), zap.Error(err))
	}
	return video, nil
}

// AddDocument 向单元添加文档；已上线课程触发已完成学生的重校验
func (s *CatalogService) AddDocument(unitID uint, req DocumentRequest) (*model.Document, error) {
	unit, err := s.CourseRepo.FindUnitByID(unitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUnitNotFound
		}
		return nil, err
	}
	doc := &model.Document{UnitID: unitID, Title: req.Title, Order: req.Order, URL: req.URL}
	if err := s.CourseRepo.CreateDocument(doc); err != nil {
		return nil, err
	}
	s.Arrangements.InvalidateCache(unit.CourseID)
	item := ContentItem{Type: model.ItemTypeDocument, ID: doc.ID, UnitID: unitID}
	if _, err := s.Revalidation.HandleContentAdded(unitID, item); err != nil {
		logger.Log.Error("revalidation after document add failed",
			zap.Uint("unitId", unitID), zap.Uint("documentId", doc.ID), zap.Error(err))
	}
	return doc, nil
}

// CreateQuizPool 为单元创建题库，每单元最多一个
func (s *CatalogService) CreateQuizPool(unitID uint, req QuizPoolRequest) (*model.QuizPool, error) {
	if _, err := s.CourseRepo.FindUnitByID(unitID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUnitNotFound
		}
		return nil, err
	}
	pool := &model.QuizPool{
		UnitID:           unitID,
		Title:            req.Title,
		QuestionCount:    req.QuestionCount,
		ShuffleQuestions: true,
		PassingPercent:   req.PassingPercent,
		AttemptLimit:     req.AttemptLimit,
		TimeLimitSeconds: req.TimeLimitSeconds,
	}
	if req.ShuffleQuestions != nil {
		pool.ShuffleQuestions = *req.ShuffleQuestions
	}
	if err := s.QuizRepo.CreatePool(pool); err != nil {
		return nil, err
	}
	return pool, nil
}

// AddQuestion 向题库添加题目，初始为待审状态，审核通过前不入卷
func (s *CatalogService) AddQuestion(poolID uint, req QuestionRequest) (*model.QuizQuestion, error) {
	if _, err := s.QuizRepo.FindPoolByID(poolID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizPoolNotFound
		}
		return nil, err
	}
	if req.CorrectOption < 0 || req.CorrectOption >= len(req.Options) {
		return nil, errors.New("correctOption out of range")
	}
	points := req.Points
	if points <= 0 {
		points = 1
	}
	q := &model.QuizQuestion{
		PoolID:         poolID,
		Text:           req.Text,
		Options:        req.Options,
		CorrectOption:  req.CorrectOption,
		Points:         points,
		Order:          req.Order,
		ApprovalStatus: model.QuestionPending,
	}
	if err := s.QuizRepo.CreateQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

// ReviewQuestion 课程协调人审题
func (s *CatalogService) ReviewQuestion(reviewerID, questionID uint, approve bool) (*model.QuizQuestion, error) {
	q, err := s.QuizRepo.FindQuestionByID(questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizPoolNotFound
		}
		return nil, err
	}
	status := model.QuestionRejected
	if approve {
		status = model.QuestionApproved
	}
	if err := s.QuizRepo.SetQuestionApproval(questionID, reviewerID, status); err != nil {
		return nil, err
	}
	now := time.Now()
	q.ApprovalStatus = status
	q.ReviewerID = &reviewerID
	q.ReviewedAt = &now
	return q, nil
}

// SaveSectionConfig 班级级测验配置覆盖
func (s *CatalogService) SaveSectionConfig(sectionID, courseID uint, req SectionQuizConfigRequest) (*model.SectionQuizConfig, error) {
	if _, err := s.GetCourse(courseID); err != nil {
		return nil, err
	}
	cfg := &model.SectionQuizConfig{
		SectionID:        sectionID,
		CourseID:         courseID,
		TimeLimitSeconds: req.TimeLimitSeconds,
		QuestionCount:    req.QuestionCount,
		PassingPercent:   req.PassingPercent,
		MaxAttempts:      req.MaxAttempts,
	}
	if err := s.QuizRepo.SaveSectionConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CourseOutline 课程结构（单元及其内容），按目录顺序
type CourseOutline struct {
	Course *model.Course `json:"course"`
	Units  []OutlineUnit `json:"units"`
}

type OutlineUnit struct {
	Unit      model.Unit       `json:"unit"`
	Videos    []model.Video    `json:"videos"`
	Documents []model.Document `json:"documents"`
	HasQuiz   bool             `json:"hasQuiz"`
}

func (s *CatalogService) GetOutline(courseID uint) (*CourseOutline, error) {
	course, err := s.GetCourse(courseID)
	if err != nil {
		return nil, err
	}
	units, err := s.CourseRepo.ListUnits(courseID)
	if err != nil {
		return nil, err
	}
	var unitIDs []uint
	for _, u := range units {
		unitIDs = append(unitIDs, u.ID)
	}
	pools, err := s.QuizRepo.ListPoolsByUnits(unitIDs)
	if err != nil {
		return nil, err
	}
	hasQuiz := make(map[uint]bool, len(pools))
	for _, p := range pools {
		hasQuiz[p.UnitID] = true
	}

	outline := &CourseOutline{Course: course}
	for _, u := range units {
		videos, err := s.CourseRepo.ListVideos(u.ID)
		if err != nil {
			return nil, err
		}
		docs, err := s.CourseRepo.ListDocuments(u.ID)
		if err != nil {
			return nil, err
		}
		outline.Units = append(outline.Units, OutlineUnit{
			Unit:      u,
			Videos:    videos,
			Documents: docs,
			HasQuiz:   hasQuiz[u.ID],
		})
	}
	return outline, nil
}
