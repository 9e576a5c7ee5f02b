package service

import (
	"errors"
	"fmt"

	"course_delivery_backend/internal/model"
	"course_delivery_backend/internal/repository"
	"course_delivery_backend/internal/util"
	"course_delivery_backend/pkg/monitoring"

	"gorm.io/gorm"
)

// LockService 锁定/解锁权限机：学生×题库锁记录的唯一写入方。
// 锁定在尝试耗尽或单次作答违规达阈值时挂起；解锁按
// teacher → hod → dean → admin 严格升序逐级授予，每级补一次机会。
type LockService struct {
	LockRepo *repository.LockRepository
	Keys     *util.KeyedMutex
	DB       *gorm.DB
}

func NewLockService(lockRepo *repository.LockRepository, keys *util.KeyedMutex, db *gorm.DB) *LockService {
	return &LockService{LockRepo: lockRepo, Keys: keys, DB: db}
}

func lockKey(userID, poolID uint) string {
	return fmt.Sprintf("lock:%d:%d", userID, poolID)
}

type UnlockGrantRequest struct {
	Tier model.UserRole `json:"tier" binding:"required"`
}

// EvaluateAfterFailure 失败提交后的锁定判定。
// attemptsTaken 为含本次在内的已完成次数，limit 为调整后上限。
// 单次作答违规数达到阈值时立即锁定，不等尝试耗尽。
func (s *LockService) EvaluateAfterFailure(attempt *model.QuizAttempt, attemptsTaken, limit, violationThreshold int) (*model.QuizLock, error) {
	unlock := s.Keys.Lock(lockKey(attempt.UserID, attempt.PoolID))
	defer unlock()

	lock, err := s.LockRepo.FindOrCreate(attempt.UserID, attempt.PoolID)
	if err != nil {
		return nil, err
	}

	lock.ScoreHistory = append(lock.ScoreHistory, attempt.Percentage)

	violated := len(attempt.Violations) > 0
	severeSession := len(attempt.Violations) >= violationThreshold

	if severeSession && !lock.IsLocked {
		lock.IsLocked = true
		lock.FailureReason = model.LockSecurityViolation
		monitoring.QuizLocksEngaged.WithLabelValues(string(model.LockSecurityViolation)).Inc()
	} else if attemptsTaken >= limit && !lock.IsLocked {
		lock.IsLocked = true
		if violated {
			lock.FailureReason = model.LockSecurityViolation
		} else {
			lock.FailureReason = model.LockBelowPassingScore
		}
		monitoring.QuizLocksEngaged.WithLabelValues(string(lock.FailureReason)).Inc()
	}

	if err := s.LockRepo.Save(lock); err != nil {
		return nil, err
	}
	return lock, nil
}

// Refresh 解锁授予后上限抬高，尝试次数回到上限之内时锁自然解除，
// 无需任何显式的"解锁"开关。
// 调用方持有的是判定时的快照，落库前必须在 key 锁内重读：
// 快照之后的并发授予不能被旧计数覆盖。
func (s *LockService) Refresh(lock *model.QuizLock, attemptsTaken, limit int) error {
	if !lock.IsLocked || attemptsTaken >= limit {
		return nil
	}

	unlock := s.Keys.Lock(lockKey(lock.UserID, lock.PoolID))
	defer unlock()

	fresh, err := s.LockRepo.Find(lock.UserID, lock.PoolID)
	if err != nil {
		return err
	}
	if fresh.IsLocked {
		fresh.IsLocked = false
		if err := s.LockRepo.Save(fresh); err != nil {
			return err
		}
	}
	*lock = *fresh
	return nil
}

// nextTier 返回某层级之后的下一授权层级，admin 之后无更高层级
func nextTier(r model.UserRole) (model.UserRole, bool) {
	switch r {
	case model.Teacher:
		return model.HOD, true
	case model.HOD:
		return model.Dean, true
	case model.Dean:
		return model.Admin, true
	default:
		return "", false
	}
}

func grantCounter(lock *model.QuizLock, tier model.UserRole) {
	switch tier {
	case model.Teacher:
		lock.TeacherUnlocks++
	case model.HOD:
		lock.HodUnlocks++
	case model.Dean:
		lock.DeanUnlocks++
	case model.Admin:
		lock.AdminUnlocks++
	}
}

// GrantUnlock 某层级授予一次追加作答机会。
// 层级必须等于锁记录当前要求的授权层级；低于当前层级视为并发冲突
// （该层已被抢先消耗），高于当前层级视为越级。操作者角色不得低于
// 所授层级，admin 可代任何层级操作。
func (s *LockService) GrantUnlock(actor *model.User, studentID, poolID uint, tier model.UserRole) (*model.QuizLock, error) {
	if model.TierRank(tier) == 0 {
		return nil, util.ErrTierMismatch
	}
	if actor.Role != model.Admin && model.TierRank(actor.Role) < model.TierRank(tier) {
		return nil, util.ErrPermissionDenied
	}

	unlock := s.Keys.Lock(lockKey(studentID, poolID))
	defer unlock()

	lock, err := s.LockRepo.Find(studentID, poolID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLockNotFound
		}
		return nil, err
	}

	current := lock.UnlockAuthorizationLevel
	if model.TierRank(current) == 0 {
		// 四级授权已全部用尽
		return nil, util.ErrUnlockTierExhausted
	}
	if tier != current {
		if model.TierRank(tier) < model.TierRank(current) {
			return nil, util.ErrUnlockConflict
		}
		return nil, util.ErrTierMismatch
	}

	grantCounter(lock, tier)
	if next, ok := nextTier(tier); ok {
		lock.UnlockAuthorizationLevel = next
	} else {
		lock.UnlockAuthorizationLevel = ""
	}

	if err := s.LockRepo.Save(lock); err != nil {
		return nil, err
	}
	return lock, nil
}

// ClassifySeverity 违规严重度分级，仅用于审计展示
func ClassifySeverity(violationType string, tabSwitchCount int) model.ViolationSeverity {
	switch violationType {
	case model.ViolationClockTamper:
		return model.SeverityCritical
	case model.ViolationDevTools, model.ViolationCopyPaste:
		return model.SeverityHigh
	case model.ViolationTabSwitch:
		if tabSwitchCount >= util.TabSwitchHighAt {
			return model.SeverityHigh
		}
		if tabSwitchCount >= util.TabSwitchMediumAt {
			return model.SeverityMedium
		}
		return model.SeverityLow
	case model.ViolationFullscreenOut:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}
