package service

import (
	"errors"

	"course_delivery_backend/internal/config"
	"course_delivery_backend/internal/model"
	"course_delivery_backend/internal/repository"
	"course_delivery_backend/internal/util"
	"course_delivery_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 可用性判定的机器可读原因码，首个不满足的前置条件即为返回原因
const (
	ReasonAvailable              = "AVAILABLE"
	ReasonNoApprovedQuestions    = "NO_APPROVED_QUESTIONS"
	ReasonPreviousUnitIncomplete = "PREVIOUS_UNIT_INCOMPLETE"
	ReasonRevalidationRequired   = "REVALIDATION_REQUIRED"
	ReasonContentIncomplete      = "CONTENT_INCOMPLETE"
	ReasonAlreadyPassed          = "ALREADY_PASSED"
	ReasonQuizLocked             = "QUIZ_LOCKED"
	ReasonAttemptsExhausted      = "ATTEMPTS_EXHAUSTED"

	// 出题端专用：题库有已审核题目，但少于配置的出题数
	ReasonInsufficientApprovedQuestions = "INSUFFICIENT_APPROVED_QUESTIONS"
)

type LockInfo struct {
	IsLocked                 bool                    `json:"isLocked"`
	FailureReason            model.LockFailureReason `json:"failureReason,omitempty"`
	UnlockAuthorizationLevel model.UserRole          `json:"unlockAuthorizationLevel,omitempty"`
	TotalUnlockGrants        int                     `json:"totalUnlockGrants"`
}

type QuizAvailability struct {
	Available         bool      `json:"available"`
	Reason            string    `json:"reason"`
	AttemptsTaken     int       `json:"attemptsTaken"`
	AttemptLimit      int       `json:"attemptLimit"`
	RemainingAttempts int       `json:"remainingAttempts"`
	Lock              *LockInfo `json:"lockInfo,omitempty"`
}

// QuizConfig 单次判定解析出的生效测验配置。
// 优先级：题库自身配置 > 学生班级配置 > 课程默认 > 全局默认。
type QuizConfig struct {
	QuestionCount    int
	PassingPercent   int
	BaseAttemptLimit int
	TimeLimitSeconds int
	ShuffleQuestions bool
}

// QuizGate 测验可用性门：只读的前置条件判定。
// 读取端与出题端共用同一份判定，保证二者永不背离。
type QuizGate struct {
	QuizRepo    *repository.QuizRepository
	AttemptRepo *repository.AttemptRepository
	UserRepo    *repository.UserRepository
	CourseRepo  *repository.CourseRepository
	LockRepo    *repository.LockRepository
	Locks       *LockService
	Progress    *ProgressService
	Cfg         *config.Config
}

func NewQuizGate(
	quizRepo *repository.QuizRepository,
	attemptRepo *repository.AttemptRepository,
	userRepo *repository.UserRepository,
	courseRepo *repository.CourseRepository,
	lockRepo *repository.LockRepository,
	locks *LockService,
	progress *ProgressService,
	cfg *config.Config,
) *QuizGate {
	return &QuizGate{
		QuizRepo:    quizRepo,
		AttemptRepo: attemptRepo,
		UserRepo:    userRepo,
		CourseRepo:  courseRepo,
		LockRepo:    lockRepo,
		Locks:       locks,
		Progress:    progress,
		Cfg:         cfg,
	}
}

// gateContext 一次判定所需的全部已装载状态，出题端复用以避免重复查询
type gateContext struct {
	unit     *model.Unit
	pool     *model.QuizPool
	state    *progressState
	cfg      QuizConfig
	lock     *model.QuizLock
	taken    int
	limit    int
	approved int64
}

// CheckAvailability 判定学生能否开始某单元的测验。
// 前置条件按序求值，第一个不满足的即为返回原因。
func (g *QuizGate) CheckAvailability(userID, unitID uint) (*QuizAvailability, error) {
	gc, err := g.load(userID, unitID)
	if err != nil {
		return nil, err
	}
	return g.evaluate(gc), nil
}

func (g *QuizGate) load(userID, unitID uint) (*gateContext, error) {
	unit, err := g.CourseRepo.FindUnitByID(unitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUnitNotFound
		}
		return nil, err
	}

	pool, err := g.QuizRepo.FindPoolByUnit(unitID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizPoolNotFound
		}
		return nil, err
	}

	state, err := g.Progress.loadState(userID, unit.CourseID)
	if err != nil {
		return nil, err
	}

	cfg, err := g.resolveQuizConfig(userID, unit.CourseID, pool)
	if err != nil {
		return nil, err
	}

	lock, err := g.LockRepo.Find(userID, pool.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	taken, err := g.AttemptRepo.CountCompleted(userID, pool.ID)
	if err != nil {
		return nil, err
	}

	approved, err := g.QuizRepo.CountApprovedQuestions(pool.ID)
	if err != nil {
		return nil, err
	}

	gc := &gateContext{
		unit:     unit,
		pool:     pool,
		state:    state,
		cfg:      cfg,
		lock:     lock,
		taken:    int(taken),
		approved: approved,
	}
	gc.limit = g.effectiveLimit(gc)
	return gc, nil
}

// effectiveLimit = 基础上限 + 行政加试 + 四级解锁授予之和
func (g *QuizGate) effectiveLimit(gc *gateContext) int {
	limit := gc.cfg.BaseAttemptLimit
	if up := gc.state.findUnitProgress(gc.unit.ID); up != nil {
		limit += up.ExtraAttempts
	}
	if gc.lock != nil {
		limit += gc.lock.TotalUnlockGrants()
	}
	return limit
}

func (g *QuizGate) evaluate(gc *gateContext) *QuizAvailability {
	// 解锁授予抬高上限后，锁在下一次判定时自然解除
	if gc.lock != nil && gc.lock.IsLocked && gc.taken < gc.limit {
		if err := g.Locks.Refresh(gc.lock, gc.taken, gc.limit); err != nil {
			logger.Log.Warn("lock refresh failed",
				zap.Uint("userId", gc.lock.UserID), zap.Uint("poolId", gc.lock.PoolID), zap.Error(err))
		}
	}

	avail := &QuizAvailability{
		AttemptsTaken: gc.taken,
		AttemptLimit:  gc.limit,
	}
	if remaining := gc.limit - gc.taken; remaining > 0 {
		avail.RemainingAttempts = remaining
	}
	if gc.lock != nil {
		avail.Lock = &LockInfo{
			IsLocked:                 gc.lock.IsLocked,
			FailureReason:            gc.lock.FailureReason,
			UnlockAuthorizationLevel: gc.lock.UnlockAuthorizationLevel,
			TotalUnlockGrants:        gc.lock.TotalUnlockGrants(),
		}
	}

	avail.Reason = g.firstFailure(gc)
	avail.Available = avail.Reason == ReasonAvailable
	return avail
}

func (g *QuizGate) firstFailure(gc *gateContext) string {
	if gc.approved == 0 {
		return ReasonNoApprovedQuestions
	}

	groups := groupByUnit(gc.state.resolved.Items)
	view := gc.state.view
	for _, prev := range groups {
		if prev.unitID == gc.unit.ID {
			break
		}
		if view.NeedsReview[prev.unitID] {
			return ReasonRevalidationRequired
		}
		if !unitContentComplete(prev, view) {
			return ReasonPreviousUnitIncomplete
		}
		if view.UnitHasQuiz[prev.unitID] && !view.QuizPassed[prev.unitID] {
			return ReasonPreviousUnitIncomplete
		}
	}

	if view.NeedsReview[gc.unit.ID] {
		return ReasonRevalidationRequired
	}

	for _, grp := range groups {
		if grp.unitID != gc.unit.ID {
			continue
		}
		if !unitContentComplete(grp, view) {
			return ReasonContentIncomplete
		}
	}

	if view.QuizPassed[gc.unit.ID] {
		return ReasonAlreadyPassed
	}

	// 软锁规则：锁只有在尝试次数耗尽时才生效，上限内的锁记录只作提示
	if gc.taken >= gc.limit {
		if gc.lock != nil && gc.lock.IsLocked {
			return ReasonQuizLocked
		}
		return ReasonAttemptsExhausted
	}

	return ReasonAvailable
}

// resolveQuizConfig 逐字段解析生效配置
func (g *QuizGate) resolveQuizConfig(userID, courseID uint, pool *model.QuizPool) (QuizConfig, error) {
	cfg := QuizConfig{
		QuestionCount:    g.Cfg.Quiz.QuestionCount,
		PassingPercent:   g.Cfg.Quiz.PassingPercent,
		BaseAttemptLimit: g.Cfg.Quiz.BaseAttemptLimit,
		ShuffleQuestions: pool.ShuffleQuestions,
		TimeLimitSeconds: pool.TimeLimitSeconds,
	}

	course, err := g.CourseRepo.FindCourseByID(courseID)
	if err != nil {
		return cfg, err
	}
	if course.BaseAttemptLimit > 0 {
		cfg.BaseAttemptLimit = course.BaseAttemptLimit
	}
	if course.PassingPercent > 0 {
		cfg.PassingPercent = course.PassingPercent
	}

	sectionIDs, err := g.UserRepo.GetSectionIDs(userID)
	if err != nil {
		return cfg, err
	}
	if len(sectionIDs) > 0 {
		sc, err := g.QuizRepo.FindSectionConfig(sectionIDs, courseID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return cfg, err
		}
		if sc != nil {
			if sc.QuestionCount > 0 {
				cfg.QuestionCount = sc.QuestionCount
			}
			if sc.PassingPercent > 0 {
				cfg.PassingPercent = sc.PassingPercent
			}
			if sc.MaxAttempts > 0 {
				cfg.BaseAttemptLimit = sc.MaxAttempts
			}
			if sc.TimeLimitSeconds > 0 && cfg.TimeLimitSeconds == 0 {
				cfg.TimeLimitSeconds = sc.TimeLimitSeconds
			}
		}
	}

	// 题库自身配置优先级最高
	if pool.QuestionCount > 0 {
		cfg.QuestionCount = pool.QuestionCount
	}
	if pool.PassingPercent > 0 {
		cfg.PassingPercent = pool.PassingPercent
	}
	if pool.AttemptLimit > 0 {
		cfg.BaseAttemptLimit = pool.AttemptLimit
	}

	return cfg, nil
}
