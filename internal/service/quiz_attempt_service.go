package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"course_delivery_backend/internal/config"
	"course_delivery_backend/internal/model"
	"course_delivery_backend/internal/repository"
	"course_delivery_backend/internal/util"
	"course_delivery_backend/pkg/logger"
	"course_delivery_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuizAttemptService 测验作答引擎：出题、判分、冻结。
// 出题前置条件与只读可用性门共用同一份判定。
type QuizAttemptService struct {
	Gate         *QuizGate
	AttemptRepo  *repository.AttemptRepository
	QuizRepo     *repository.QuizRepository
	Locks        *LockService
	Progress     *ProgressService
	Certificates *CertificateService
	Keys         *util.KeyedMutex
	Cfg          *config.Config
	DB           *gorm.DB
}

func NewQuizAttemptService(
	gate *QuizGate,
	attemptRepo *repository.AttemptRepository,
	quizRepo *repository.QuizRepository,
	locks *LockService,
	progress *ProgressService,
	certificates *CertificateService,
	keys *util.KeyedMutex,
	cfg *config.Config,
	db *gorm.DB,
) *QuizAttemptService {
	return &QuizAttemptService{
		Gate:         gate,
		AttemptRepo:  attemptRepo,
		QuizRepo:     quizRepo,
		Locks:        locks,
		Progress:     progress,
		Certificates: certificates,
		Keys:         keys,
		Cfg:          cfg,
		DB:           db,
	}
}

type AttemptQuestionView struct {
	QuestionID uint     `json:"questionId"`
	Text       string   `json:"text"`
	Options    []string `json:"options"`
	Points     int      `json:"points"`
}

// AttemptView 发给学生的试卷，不含正确答案
type AttemptView struct {
	PublicID         string                `json:"attemptId"`
	UnitID           uint                  `json:"unitId"`
	PoolID           uint                  `json:"poolId"`
	StartedAt        time.Time             `json:"startedAt"`
	TimeLimitSeconds int                   `json:"timeLimitSeconds"`
	Questions        []AttemptQuestionView `json:"questions"`
}

type AnswerSubmission struct {
	QuestionID     uint `json:"questionId" binding:"required"`
	SelectedOption int  `json:"selectedOption"`
}

type ViolationReport struct {
	Type       string    `json:"type" binding:"required"`
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurredAt"`
}

type SubmitAttemptRequest struct {
	Answers        []AnswerSubmission `json:"answers"`
	TabSwitchCount int                `json:"tabSwitchCount"`
	Violations     []ViolationReport  `json:"violations"`
	IsAutoSubmit   bool               `json:"isAutoSubmit"`
}

type AttemptResult struct {
	PublicID     string     `json:"attemptId"`
	Score        int        `json:"score"`
	MaxScore     int        `json:"maxScore"`
	Percentage   int        `json:"percentage"`
	Passed       bool       `json:"passed"`
	IsAutoSubmit bool       `json:"isAutoSubmit"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	Lock         *LockInfo  `json:"lockInfo,omitempty"`
}

func attemptGenKey(userID, poolID uint) string {
	return fmt.Sprintf("attemptgen:%d:%d", userID, poolID)
}

func attemptKey(publicID string) string {
	return "attempt:" + publicID
}

// GenerateAttempt 生成一次作答。
// 命中未提交的旧作答时直接复用，除非调用方显式要求销毁重出。
// 可用性不满足时返回判定结果与 ErrQuizNotAvailable，原因码在判定结果里。
func (s *QuizAttemptService) GenerateAttempt(userID, unitID uint, destroyIncomplete bool) (*AttemptView, *QuizAvailability, error) {
	gc, err := s.Gate.load(userID, unitID)
	if err != nil {
		return nil, nil, err
	}

	unlock := s.Keys.Lock(attemptGenKey(userID, gc.pool.ID))
	defer unlock()

	existing, err := s.AttemptRepo.FindIncomplete(userID, gc.pool.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}
	if existing != nil {
		if !destroyIncomplete {
			return attemptView(existing), nil, nil
		}
		// 销毁未提交的旧作答不计入尝试次数
		if err := s.AttemptRepo.DeleteIncomplete(userID, gc.pool.ID); err != nil {
			return nil, nil, err
		}
	}

	avail := s.Gate.evaluate(gc)
	if !avail.Available {
		return nil, avail, util.ErrQuizNotAvailable
	}

	questions, err := s.QuizRepo.ListApprovedQuestions(gc.pool.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(questions) == 0 {
		return nil, avail, util.ErrQuizPoolEmpty
	}
	if len(questions) < gc.cfg.QuestionCount {
		return nil, avail, util.ErrInsufficientApprovedQuestions
	}

	drawn := drawQuestions(questions, gc.cfg.QuestionCount, gc.cfg.ShuffleQuestions)
	snapshot := make([]model.SnapshotQuestion, len(drawn))
	for i, q := range drawn {
		snapshot[i] = model.SnapshotQuestion{
			QuestionID:    q.ID,
			Text:          q.Text,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Points:        q.Points,
		}
	}

	attempt := &model.QuizAttempt{
		UserID:           userID,
		CourseID:         gc.unit.CourseID,
		UnitID:           unitID,
		PoolID:           gc.pool.ID,
		Questions:        snapshot,
		StartedAt:        time.Now(),
		TimeLimitSeconds: gc.cfg.TimeLimitSeconds,
	}
	if err := s.AttemptRepo.Create(attempt); err != nil {
		return nil, nil, err
	}

	return attemptView(attempt), avail, nil
}

func drawQuestions(pool []model.QuizQuestion, count int, shuffle bool) []model.QuizQuestion {
	if !shuffle {
		// 文档顺序出题
		return pool[:count]
	}
	shuffled := make([]model.QuizQuestion, len(pool))
	copy(shuffled, pool)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:count]
}

func attemptView(a *model.QuizAttempt) *AttemptView {
	view := &AttemptView{
		PublicID:         a.PublicID,
		UnitID:           a.UnitID,
		PoolID:           a.PoolID,
		StartedAt:        a.StartedAt,
		TimeLimitSeconds: a.TimeLimitSeconds,
	}
	for _, q := range a.Questions {
		view.Questions = append(view.Questions, AttemptQuestionView{
			QuestionID: q.QuestionID,
			Text:       q.Text,
			Options:    q.Options,
			Points:     q.Points,
		})
	}
	return view
}

// SubmitAttempt 提交并判分，作答随即冻结。
// 已提交的作答二次提交按冲突处理：返回原始结果，不重新判分。
// 自动提交（时间耗尽）与普通提交走完全相同的判分路径。
func (s *QuizAttemptService) SubmitAttempt(userID uint, publicID string, req SubmitAttemptRequest) (*AttemptResult, error) {
	unlock := s.Keys.Lock(attemptKey(publicID))
	defer unlock()

	attempt, err := s.AttemptRepo.FindByPublicID(publicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, util.ErrNotAttemptOwner
	}
	if attempt.CompletedAt != nil {
		return attemptResult(attempt, nil), util.ErrAttemptAlreadySubmitted
	}

	gc, err := s.Gate.load(userID, attempt.UnitID)
	if err != nil {
		return nil, err
	}

	s.grade(attempt, req, gc.cfg.PassingPercent)

	if err := s.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(attempt).Error
	}); err != nil {
		return nil, err
	}

	outcome := "fail"
	if attempt.Passed {
		outcome = "pass"
	}
	monitoring.QuizSubmissions.WithLabelValues(outcome).Inc()

	result := attemptResult(attempt, nil)

	if attempt.Passed {
		if _, err := s.Progress.RecordQuizResult(userID, attempt.CourseID, attempt.UnitID, true); err != nil {
			logger.Log.Error("quiz pass progress update failed",
				zap.String("attemptId", publicID), zap.Error(err))
		}
		// 证书再生是旁路协作方，失败绝不影响提交
		go func(uid, cid uint) {
			defer func() {
				if r := recover(); r != nil {
					logger.Log.Error("certificate regeneration panic", zap.Any("recover", r))
				}
			}()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			s.Certificates.RegenerateIfExists(ctx, uid, cid)
		}(userID, attempt.CourseID)
	} else {
		if _, err := s.Progress.RecordQuizResult(userID, attempt.CourseID, attempt.UnitID, false); err != nil {
			logger.Log.Error("quiz fail progress update failed",
				zap.String("attemptId", publicID), zap.Error(err))
		}
		taken, err := s.AttemptRepo.CountCompleted(userID, attempt.PoolID)
		if err != nil {
			return nil, err
		}
		gc.taken = int(taken)
		limit := s.Gate.effectiveLimit(gc)
		lock, err := s.Locks.EvaluateAfterFailure(attempt, gc.taken, limit, s.Cfg.Quiz.ViolationLockThreshold)
		if err != nil {
			return nil, err
		}
		result.Lock = &LockInfo{
			IsLocked:                 lock.IsLocked,
			FailureReason:            lock.FailureReason,
			UnlockAuthorizationLevel: lock.UnlockAuthorizationLevel,
			TotalUnlockGrants:        lock.TotalUnlockGrants(),
		}
	}

	return result, nil
}

// grade 快照判分：选项与固化的正确答案逐题比对，未作答计零分
func (s *QuizAttemptService) grade(attempt *model.QuizAttempt, req SubmitAttemptRequest, passingPercent int) {
	selected := make(map[uint]int, len(req.Answers))
	for _, a := range req.Answers {
		selected[a.QuestionID] = a.SelectedOption
	}

	score, maxScore := 0, 0
	answers := make([]model.AttemptAnswer, 0, len(attempt.Questions))
	for _, q := range attempt.Questions {
		maxScore += q.Points
		sel, answered := selected[q.QuestionID]
		if !answered {
			sel = -1
		}
		correct := answered && sel == q.CorrectOption
		if correct {
			score += q.Points
		}
		answers = append(answers, model.AttemptAnswer{
			QuestionID:     q.QuestionID,
			SelectedOption: sel,
			Correct:        correct,
		})
	}

	percentage := 0
	if maxScore > 0 {
		percentage = int(math.Round(float64(score) / float64(maxScore) * 100))
	}

	now := time.Now()
	attempt.Answers = answers
	attempt.Score = score
	attempt.MaxScore = maxScore
	attempt.Percentage = percentage
	attempt.Passed = percentage >= passingPercent
	attempt.CompletedAt = &now
	attempt.IsAutoSubmit = req.IsAutoSubmit
	attempt.TabSwitchCount = req.TabSwitchCount

	// 违规只审计不扣分
	for _, v := range req.Violations {
		occurred := v.OccurredAt
		if occurred.IsZero() {
			occurred = now
		}
		attempt.Violations = append(attempt.Violations, model.SecurityViolation{
			Type:       v.Type,
			Severity:   ClassifySeverity(v.Type, req.TabSwitchCount),
			Detail:     v.Detail,
			OccurredAt: occurred,
		})
	}
}

func attemptResult(a *model.QuizAttempt, lock *LockInfo) *AttemptResult {
	return &AttemptResult{
		PublicID:     a.PublicID,
		Score:        a.Score,
		MaxScore:     a.MaxScore,
		Percentage:   a.Percentage,
		Passed:       a.Passed,
		IsAutoSubmit: a.IsAutoSubmit,
		CompletedAt:  a.CompletedAt,
		Lock:         lock,
	}
}

// GetAttemptResult 查询作答结果，仅限本人或教学角色
func (s *QuizAttemptService) GetAttemptResult(requester *model.User, publicID string) (*AttemptResult, error) {
	attempt, err := s.AttemptRepo.FindByPublicID(publicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.UserID != requester.ID && model.TierRank(requester.Role) == 0 {
		return nil, util.ErrNotAttemptOwner
	}
	if attempt.CompletedAt == nil {
		return nil, util.ErrAttemptNotSubmitted
	}
	return attemptResult(attempt, nil), nil
}
