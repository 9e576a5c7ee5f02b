package util

import "errors"

// not-found
var (
	ErrUserNotFound        = errors.New("用户不存在")
	ErrCourseNotFound      = errors.New("course not found")
	ErrUnitNotFound        = errors.New("unit not found")
	ErrVideoNotFound       = errors.New("video not found")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrQuizPoolNotFound    = errors.New("quiz pool not found")
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrAttemptNotSubmitted = errors.New("attempt not yet submitted")
	ErrLockNotFound        = errors.New("lock record not found")
)

// not-authorized
var (
	ErrEmailRegistered  = errors.New("该邮箱已被注册")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotAttemptOwner  = errors.New("attempt not owned by requester")
	ErrTierMismatch     = errors.New("unlock tier does not match required authorization level")
)

// precondition-failed（门禁细分原因见 service 层 Reason 常量）
var (
	ErrQuizNotAvailable              = errors.New("quiz not available")
	ErrQuizPoolEmpty                 = errors.New("quiz pool has no approved questions")
	ErrInsufficientApprovedQuestions = errors.New("approved question pool smaller than configured question count")
	ErrAttemptsExhausted             = errors.New("attempts exhausted")
	ErrQuizLocked                    = errors.New("quiz is locked")
	ErrArrangementNotOpen            = errors.New("arrangement is not in open state")
	ErrArrangementNotSubmitted       = errors.New("arrangement is not awaiting review")
	ErrUnlockTierExhausted           = errors.New("all unlock tiers already granted")
)

// conflict
var (
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")
	ErrUnlockConflict          = errors.New("concurrent unlock grant detected")
)

// integrity
var (
	ErrRevalidationRequired = errors.New("unit requires revalidation before further progression")
)
