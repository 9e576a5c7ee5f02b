package model

import (
	"time"
)

// CourseProgress 学生×课程的进度记录，解锁与完成状态的唯一权威来源。
// OverallProgress 是派生值（封顶 100），写入方负责在同一事务内维护一致性。
// swagger:model CourseProgress
type CourseProgress struct {
	BaseModel
	UserID   uint `gorm:"index:idx_progress_user_course,unique" json:"userId"`
	CourseID uint `gorm:"index:idx_progress_user_course,unique" json:"courseId"`
	// 有序的已解锁视频 ID 集合
	UnlockedVideoIDs     []uint         `gorm:"serializer:json" json:"unlockedVideoIds"`
	UnlockedDocumentIDs  []uint         `gorm:"serializer:json" json:"unlockedDocumentIds"`
	CompletedDocumentIDs []uint         `gorm:"serializer:json" json:"completedDocumentIds"`
	ArrangementVersion   int            `gorm:"default:0" json:"arrangementVersion"`
	OverallProgress      int            `gorm:"default:0" json:"overallProgress"`
	LastActivityAt       time.Time      `json:"lastActivityAt"`
	Units                []UnitProgress `gorm:"foreignKey:ProgressID" json:"units,omitempty"`
}

func (CourseProgress) TableName() string {
	return "course_progress"
}

type UnitStatus string

const (
	UnitLocked     UnitStatus = "locked"
	UnitInProgress UnitStatus = "in_progress"
	UnitCompleted  UnitStatus = "completed"
	// Launch 后新增内容时由 completed 进入，补学完成后回到 completed
	UnitNeedsReview UnitStatus = "needs_review"
)

// UnitProgress 单元级进度
type UnitProgress struct {
	BaseModel
	ProgressID        uint       `gorm:"index" json:"progressId"`
	UserID            uint       `gorm:"index" json:"userId"`
	UnitID            uint       `gorm:"index" json:"unitId"`
	Status            UnitStatus `gorm:"size:20;default:'locked'" json:"status"`
	Unlocked          bool       `gorm:"default:false" json:"unlocked"`
	UnlockedAt        *time.Time `json:"unlockedAt,omitempty"`
	UnitQuizCompleted bool       `gorm:"default:false" json:"unitQuizCompleted"`
	UnitQuizPassed    bool       `gorm:"default:false" json:"unitQuizPassed"`
	// 管理员在层级解锁体系之外追加的补考次数
	ExtraAttempts int `gorm:"default:0" json:"extraAttempts"`
	// needs_review 状态下待补学的内容键（ContentKey 形式）
	PendingContentKeys []string     `gorm:"serializer:json" json:"pendingContentKeys"`
	Watches            []VideoWatch `gorm:"foreignKey:UnitProgressID" json:"watches,omitempty"`
}

func (UnitProgress) TableName() string {
	return "unit_progress"
}

// VideoWatch 单视频观看记录。Completed 单调：一旦为 true 不再回退。
type VideoWatch struct {
	BaseModel
	UnitProgressID      uint       `gorm:"index" json:"unitProgressId"`
	VideoID             uint       `gorm:"index" json:"videoId"`
	TimeSpentSeconds    int        `gorm:"default:0" json:"timeSpentSeconds"`
	LastPositionSeconds int        `gorm:"default:0" json:"lastPositionSeconds"`
	Completed           bool       `gorm:"default:false" json:"completed"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
}

func (VideoWatch) TableName() string {
	return "video_watches"
}
