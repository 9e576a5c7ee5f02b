package model

import (
	"time"

	"gorm.io/gorm"
)

// SnapshotQuestion 试卷生成时固化的题目快照（含正确答案，供重评分使用）
type SnapshotQuestion struct {
	QuestionID    uint     `json:"questionId"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
	Points        int      `json:"points"`
}

// QuizAttempt 一次测验作答。提交后冻结，二次提交按冲突拒绝。
// swagger:model QuizAttempt
type QuizAttempt struct {
	BaseModel
	PublicID string `gorm:"size:36;uniqueIndex" json:"publicId"`
	UserID   uint   `gorm:"index" json:"userId"`
	CourseID uint   `gorm:"index" json:"courseId"`
	UnitID   uint   `gorm:"index" json:"unitId"`
	PoolID   uint   `gorm:"index" json:"poolId"`
	// 展示给学生的确切题目集合
	Questions        []SnapshotQuestion  `gorm:"serializer:json" json:"-"`
	Answers          []AttemptAnswer     `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`
	Score            int                 `gorm:"default:0" json:"score"`
	MaxScore         int                 `gorm:"default:0" json:"maxScore"`
	Percentage       int                 `gorm:"default:0" json:"percentage"`
	Passed           bool                `gorm:"default:false" json:"passed"`
	StartedAt        time.Time           `json:"startedAt"`
	CompletedAt      *time.Time          `json:"completedAt,omitempty"`
	TabSwitchCount   int                 `gorm:"default:0" json:"tabSwitchCount"`
	IsAutoSubmit     bool                `gorm:"default:false" json:"isAutoSubmit"`
	TimeLimitSeconds int                 `gorm:"default:0" json:"timeLimitSeconds"`
	Violations       []SecurityViolation `gorm:"foreignKey:AttemptID" json:"violations,omitempty"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

func (a *QuizAttempt) BeforeCreate(tx *gorm.DB) (err error) {
	if a.PublicID == "" {
		a.PublicID = GenerateUUID()
	}
	return
}

// AttemptAnswer 单题作答，SelectedOption 为 -1 表示未作答
type AttemptAnswer struct {
	BaseModel
	AttemptID      uint `gorm:"index" json:"attemptId"`
	QuestionID     uint `json:"questionId"`
	SelectedOption int  `gorm:"default:-1" json:"selectedOption"`
	Correct        bool `gorm:"default:false" json:"correct"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}

type ViolationSeverity string

const (
	SeverityLow      ViolationSeverity = "LOW"
	SeverityMedium   ViolationSeverity = "MEDIUM"
	SeverityHigh     ViolationSeverity = "HIGH"
	SeverityCritical ViolationSeverity = "CRITICAL"
)

const (
	ViolationTabSwitch     = "TAB_SWITCH"
	ViolationDevTools      = "DEV_TOOLS"
	ViolationCopyPaste     = "COPY_PASTE"
	ViolationClockTamper   = "CLOCK_TAMPER"
	ViolationFullscreenOut = "FULLSCREEN_EXIT"
)

// SecurityViolation 作答期间捕获的安全违规，仅做审计与锁定判断，不扣分
type SecurityViolation struct {
	BaseModel
	AttemptID  uint              `gorm:"index" json:"attemptId"`
	Type       string            `gorm:"size:40" json:"type"`
	Severity   ViolationSeverity `gorm:"size:20" json:"severity"`
	Detail     string            `gorm:"size:512" json:"detail"`
	OccurredAt time.Time         `json:"occurredAt"`
}

func (SecurityViolation) TableName() string {
	return "security_violations"
}
