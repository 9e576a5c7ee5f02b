package model

type LockFailureReason string

const (
	LockBelowPassingScore LockFailureReason = "BELOW_PASSING_SCORE"
	LockSecurityViolation LockFailureReason = "SECURITY_VIOLATION"
)

// QuizLock 学生×题库的锁定记录。
// 计数器只增不减；IsLocked 可在记录生命周期内多次翻转。
// 解锁授权按 teacher → hod → dean → admin 严格升序，每层恰好补一次作答机会。
// swagger:model QuizLock
type QuizLock struct {
	BaseModel
	UserID         uint              `gorm:"index:idx_lock_user_pool,unique" json:"userId"`
	PoolID         uint              `gorm:"index:idx_lock_user_pool,unique" json:"poolId"`
	IsLocked       bool              `gorm:"default:false" json:"isLocked"`
	FailureReason  LockFailureReason `gorm:"size:30" json:"failureReason"`
	ScoreHistory   []int             `gorm:"serializer:json" json:"scoreHistory"`
	TeacherUnlocks int               `gorm:"default:0" json:"teacherUnlocks"`
	HodUnlocks     int               `gorm:"default:0" json:"hodUnlocks"`
	DeanUnlocks    int               `gorm:"default:0" json:"deanUnlocks"`
	AdminUnlocks   int               `gorm:"default:0" json:"adminUnlocks"`
	// 当前需要哪个层级授权下一次解锁
	UnlockAuthorizationLevel UserRole `gorm:"size:20;default:'teacher'" json:"unlockAuthorizationLevel"`
}

func (QuizLock) TableName() string {
	return "quiz_locks"
}

// TotalUnlockGrants 各层级解锁授权之和，即追加的作答机会总数
func (l *QuizLock) TotalUnlockGrants() int {
	return l.TeacherUnlocks + l.HodUnlocks + l.DeanUnlocks + l.AdminUnlocks
}
