package model

import (
	"time"
)

// QuizPool 单元测验题库，每个单元最多一个
// swagger:model QuizPool
type QuizPool struct {
	BaseModel
	UnitID uint   `gorm:"uniqueIndex" json:"unitId"`
	Title  string `gorm:"size:255" json:"title"`
	// 每次生成试卷抽取的题目数，0 表示使用全局默认
	QuestionCount    int  `gorm:"default:0" json:"questionCount"`
	ShuffleQuestions bool `gorm:"default:true" json:"shuffleQuestions"`
	PassingPercent   int  `gorm:"default:0" json:"passingPercent"`
	AttemptLimit     int  `gorm:"default:0" json:"attemptLimit"`
	TimeLimitSeconds int  `gorm:"default:0" json:"timeLimitSeconds"`
}

func (QuizPool) TableName() string {
	return "quiz_pools"
}

type QuestionApprovalStatus string

const (
	QuestionPending  QuestionApprovalStatus = "pending"
	QuestionApproved QuestionApprovalStatus = "approved"
	QuestionRejected QuestionApprovalStatus = "rejected"
)

// QuizQuestion 题目，只有通过课程协调人审核（approved）的题目才能进入试卷
type QuizQuestion struct {
	BaseModel
	PoolID         uint                   `gorm:"index" json:"poolId"`
	Text           string                 `gorm:"type:text;not null" json:"text"`
	Options        []string               `gorm:"serializer:json" json:"options"`
	CorrectOption  int                    `json:"-"`
	Points         int                    `gorm:"default:1" json:"points"`
	Order          int                    `gorm:"default:0" json:"order"`
	ApprovalStatus QuestionApprovalStatus `gorm:"size:20;default:'pending'" json:"approvalStatus"`
	ReviewerID     *uint                  `json:"reviewerId,omitempty"`
	ReviewedAt     *time.Time             `json:"reviewedAt,omitempty"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// SectionQuizConfig 班级级测验配置覆盖，字段为 0 时回落到题库/课程配置
type SectionQuizConfig struct {
	BaseModel
	SectionID        uint `gorm:"index:idx_section_course,unique" json:"sectionId"`
	CourseID         uint `gorm:"index:idx_section_course,unique" json:"courseId"`
	TimeLimitSeconds int  `gorm:"default:0" json:"timeLimitSeconds"`
	QuestionCount    int  `gorm:"default:0" json:"questionCount"`
	PassingPercent   int  `gorm:"default:0" json:"passingPercent"`
	MaxAttempts      int  `gorm:"default:0" json:"maxAttempts"`
}

func (SectionQuizConfig) TableName() string {
	return "section_quiz_configs"
}
