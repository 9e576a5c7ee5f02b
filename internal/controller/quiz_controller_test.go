package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"course_delivery_backend/internal/config"
	"course_delivery_backend/internal/model"
	"course_delivery_backend/internal/repository"
	"course_delivery_backend/internal/service"
	"course_delivery_backend/internal/util"
	"course_delivery_backend/pkg/database"
	"course_delivery_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type quizHandlerEnv struct {
	db       *gorm.DB
	quizzes  *repository.QuizRepository
	courses  *repository.CourseRepository
	progress *service.ProgressService
	handler  *QuizController
}

func newQuizHandlerEnv(t *testing.T) *quizHandlerEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		Quiz: config.QuizConfig{
			BaseAttemptLimit:       3,
			PassingPercent:         70,
			QuestionCount:          2,
			ViolationLockThreshold: 3,
		},
	}
	keys := util.NewKeyedMutex()

	users := repository.NewUserRepository(db)
	courses := repository.NewCourseRepository(db)
	quizzes := repository.NewQuizRepository(db)
	arrangements := repository.NewArrangementRepository(db)
	attempts := repository.NewAttemptRepository(db)
	locks := repository.NewLockRepository(db)

	arrangement := service.NewArrangementService(arrangements, courses, nil, cfg, db)
	progress := service.NewProgressService(repository.NewProgressRepository(db), courses, quizzes, arrangement, keys, db)
	lockSvc := service.NewLockService(locks, keys, db)
	gate := service.NewQuizGate(quizzes, attempts, users, courses, locks, lockSvc, progress, cfg)
	attemptSvc := service.NewQuizAttemptService(gate, attempts, quizzes, lockSvc, progress, nil, keys, cfg, db)

	return &quizHandlerEnv{
		db:       db,
		quizzes:  quizzes,
		courses:  courses,
		progress: progress,
		handler:  NewQuizController(gate, attemptSvc, service.NewAuthService(users, cfg)),
	}
}

func (e *quizHandlerEnv) generateAttempt(t *testing.T, userID, unitID uint) (*httptest.ResponseRecorder, util.Response) {
	t.Helper()
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	ctx.Params = gin.Params{{Key: "unitId", Value: fmt.Sprint(unitID)}}
	ctx.Set("user", &util.Claims{UserID: userID, Role: model.Student})

	e.handler.GenerateAttempt(ctx)

	var body util.Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return w, body
}

// 空题库与题目不足是两个不同的原因码
func TestGenerateAttemptReasonCodes(t *testing.T) {
	e := newQuizHandlerEnv(t)

	student := &model.User{Name: "学生", Email: "s@example.com", Password: "x", Role: model.Student}
	if err := e.db.Create(student).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	course := &model.Course{Title: "课程"}
	if err := e.courses.CreateCourse(course); err != nil {
		t.Fatalf("create course: %v", err)
	}
	unit := &model.Unit{CourseID: course.ID, Title: "单元", Order: 1}
	if err := e.courses.CreateUnit(unit); err != nil {
		t.Fatalf("create unit: %v", err)
	}
	video := &model.Video{UnitID: unit.ID, Title: "视频", Order: 1, DurationSeconds: 100}
	if err := e.courses.CreateVideo(video); err != nil {
		t.Fatalf("create video: %v", err)
	}
	pool := &model.QuizPool{UnitID: unit.ID, Title: "测验", ShuffleQuestions: false}
	if err := e.quizzes.CreatePool(pool); err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if _, err := e.progress.RecordVideoProgress(student.ID, video.ID, service.VideoProgressRequest{
		TimeSpentSeconds: 1, PositionSeconds: 1, Completed: true,
	}); err != nil {
		t.Fatalf("complete video: %v", err)
	}

	// 无已审核题目
	w, body := e.generateAttempt(t, student.ID, unit.ID)
	if w.Code != http.StatusPreconditionFailed || body.Reason != service.ReasonNoApprovedQuestions {
		t.Fatalf("empty pool: status %d reason %s, want 412 NO_APPROVED_QUESTIONS", w.Code, body.Reason)
	}

	// 有 1 题已审核，配置要求 2 题
	q := &model.QuizQuestion{
		PoolID:         pool.ID,
		Text:           "第 1 题",
		Options:        []string{"A", "B", "C", "D"},
		CorrectOption:  0,
		Points:         1,
		ApprovalStatus: model.QuestionApproved,
	}
	if err := e.quizzes.CreateQuestion(q); err != nil {
		t.Fatalf("create question: %v", err)
	}

	w, body = e.generateAttempt(t, student.ID, unit.ID)
	if w.Code != http.StatusPreconditionFailed || body.Reason != service.ReasonInsufficientApprovedQuestions {
		t.Fatalf("short pool: status %d reason %s, want 412 INSUFFICIENT_APPROVED_QUESTIONS", w.Code, body.Reason)
	}
}
